package metrics

import (
	"context"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
)

type service struct {
	repo Repository
}

type noopCollector struct{}

// NewService returns a Collector backed by SQLite, or a no-op collector when
// cfg.Enabled is false.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = log.WithComponent("metrics")

	if !cfg.Enabled {
		log.Debug().Msg("Metrics collection disabled, using no-op collector")
		return noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitMetrics, err)
	}

	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidSnapshot)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	if err := s.repo.Record(snapshot); err != nil {
		return errFactory.Wrap(ErrCollection, err)
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(errors.ErrCloseMetrics, err)
	}

	return nil
}

func (noopCollector) Record(context.Context, *Snapshot) error { return nil }

func (noopCollector) Close() error { return nil }
