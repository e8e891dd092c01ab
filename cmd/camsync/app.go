package main

import (
	"context"
	"time"

	"codeberg.org/mutker/camsync/internal/camera"
	"codeberg.org/mutker/camsync/internal/config"
	"codeberg.org/mutker/camsync/internal/ingest"
	"codeberg.org/mutker/camsync/internal/logger"
	"codeberg.org/mutker/camsync/internal/metrics"
	"codeberg.org/mutker/camsync/internal/procvalue"
	"codeberg.org/mutker/camsync/internal/trigger"
	"codeberg.org/mutker/camsync/internal/vision"
	"codeberg.org/mutker/camsync/internal/vision/emulator"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	cfg *config.Config
	log logger.Logger

	transport vision.TransportLayer
	registry  *camera.Registry
	cameras   []*camera.Device
	trigger   trigger.Trigger
	store     *procvalue.Store
	ingest    *ingest.Client
	collector metrics.Collector
}

func newApp(cfg *config.Config, log logger.Logger) *app {
	return &app{
		cfg: cfg,
		log: log,
		// A physical SDK binding implements vision.TransportLayer as well;
		// this build lists emulated devices only.
		transport: emulator.NewTransportLayer(),
		registry:  camera.NewRegistry(),
		store:     procvalue.NewStore(),
	}
}

func (a *app) run(ctx context.Context) error {
	collector, err := metrics.NewService(a.cfg.Metrics, a.log)
	if err != nil {
		return err
	}
	a.collector = collector

	if err := a.connectCameras(); err != nil {
		return err
	}

	if err := a.startIngest(ctx); err != nil {
		a.log.Error().Err(err).Msg("Process value ingestion unavailable")
	}

	if err := a.startTrigger(ctx); err != nil {
		a.log.Error().Err(err).Msg("Trigger unavailable")
	}

	return a.loop(ctx)
}

func (a *app) connectCameras() error {
	enum := vision.NewEnumerator(a.transport)

	infos, err := enum.All(a.cfg.Cameras.Virtual)
	if err != nil {
		return err
	}

	n := len(infos)
	if a.cfg.Cameras.Count > 0 {
		n = min(n, a.cfg.Cameras.Count)
	}

	log := a.log.WithComponent("camera")
	for i, info := range infos[:n] {
		params := a.cfg.Cameras.Params
		if i < len(a.cfg.Cameras.Names) {
			params.Name = a.cfg.Cameras.Names[i]
		}

		dev, err := camera.New(a.registry, params, camera.WithLogger(log))
		if err != nil {
			return err
		}

		handle, err := enum.Open(info)
		if err != nil {
			log.Error().Err(err).Str("serial", info.SerialNumber).Msg("Failed to create device")
			continue
		}

		if err := dev.Connect(handle); err != nil {
			log.Error().Err(err).Str("serial", info.SerialNumber).Msg("Failed to connect camera")
			continue
		}

		if err := dev.StartGrabbing(); err != nil {
			log.Error().Err(err).Str("camera", dev.Name()).Msg("Failed to start grabbing")
		}

		log.Info().Str("camera", dev.String()).Msg("Camera ready")
		a.cameras = append(a.cameras, dev)
	}

	if len(a.cameras) == 0 {
		log.Warn().Int("found", len(infos)).Msg("No cameras connected")
	}

	return nil
}

func (a *app) startTrigger(ctx context.Context) error {
	var (
		t   trigger.Trigger
		err error
	)

	switch a.cfg.Trigger.Kind {
	case trigger.KindSSH:
		t, err = trigger.NewSSHTrigger(ctx, a.cfg.Trigger, a.log)
	case trigger.KindSerial:
		t, err = trigger.NewSerialTrigger(a.cfg.Trigger, a.log)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	a.trigger = t

	if a.cfg.TriggerFrequency <= 0 || !a.cfg.Cameras.Params.Triggered {
		return nil
	}

	return t.Start(ctx, a.cfg.TriggerFrequency)
}

func (a *app) startIngest(ctx context.Context) error {
	if a.cfg.Broker.Kind == ingest.KindNone {
		return nil
	}

	client, err := ingest.New(a.cfg.Broker, a.store, a.log)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}
	a.ingest = client

	return nil
}

func (a *app) loop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	sources := make([]metrics.CameraSource, 0, len(a.cameras))
	for _, cam := range a.cameras {
		sources = append(sources, cam)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			var trig metrics.TriggerSource
			if a.trigger != nil {
				trig = a.trigger
			}

			snapshot := metrics.Capture(now, a.store, trig, sources)
			a.logSnapshot(snapshot)

			if err := a.collector.Record(ctx, snapshot); err != nil {
				a.log.Warn().Err(err).Msg("Failed to record sample")
			}
		}
	}
}

func (a *app) logSnapshot(s *metrics.Snapshot) {
	ev := a.log.Info()
	for _, k := range procvalue.Keys {
		ev.Float64(string(k), s.Values[k])
	}
	ev.Bool("trigger", s.Trigger.Connected).
		Float64("frequency", s.Trigger.Frequency).
		Int("cameras", len(s.Cameras)).
		Msg("")

	for _, c := range s.Cameras {
		ev := a.log.Debug().
			Str("camera", c.Name).
			Bool("grabbing", c.Grabbing).
			Float64("framerate", c.Framerate).
			Str("temperature_state", c.TemperatureState)
		if c.TemperatureKnown {
			ev.Float64("temperature", c.Temperature)
		}
		ev.Msg("")
	}
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.trigger != nil {
		if a.trigger.Connected() {
			if err := a.trigger.Stop(ctx); err != nil {
				a.log.Error().Err(err).Msg("Failed to stop trigger")
			}
		}
		if err := a.trigger.Disconnect(); err != nil {
			a.log.Error().Err(err).Msg("Failed to disconnect trigger")
		}
	}

	for _, cam := range a.cameras {
		name := cam.Name()
		if err := cam.Disconnect(); err != nil {
			a.log.Error().Err(err).Str("camera", name).Msg("Failed to disconnect camera")
		}
	}

	if a.ingest != nil {
		if err := a.ingest.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close ingestion client")
		}
	}

	if a.collector != nil {
		if err := a.collector.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close metrics")
		}
	}
}
