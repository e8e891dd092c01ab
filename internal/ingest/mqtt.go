package ingest

import (
	"context"
	"net"
	"strconv"
	"sync"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const disconnectQuiesceMs = 250

// MQTTTransport subscribes through an MQTT broker. Subscriptions are renewed
// on every (re)connect.
type MQTTTransport struct {
	cfg    Config
	log    logger.Logger
	client mqtt.Client

	mu   sync.Mutex
	subs map[string]Handler
}

var _ Transport = (*MQTTTransport)(nil)

func NewMQTTTransport(cfg Config, log logger.Logger) *MQTTTransport {
	t := &MQTTTransport{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]Handler),
	}

	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			t.log.Warn().Err(err).Str("host", cfg.Host).Msg("Broker connection lost")
		})
	t.client = mqtt.NewClient(opts)

	return t
}

func (t *MQTTTransport) Connect(ctx context.Context) error {
	errFactory := errors.New()

	tok := t.client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return errFactory.Wrap(ErrConnectionFailed, err).WithData(t.cfg.Host)
		}
	case <-ctx.Done():
		return errFactory.Wrap(ErrTimeout, ctx.Err()).WithData(t.cfg.Host)
	}

	return nil
}

func (t *MQTTTransport) Subscribe(topic string, handler Handler) error {
	t.mu.Lock()
	t.subs[topic] = handler
	t.mu.Unlock()

	if !t.client.IsConnectionOpen() {
		// picked up by onConnect
		return nil
	}

	tok := t.client.Subscribe(topic, t.cfg.QoS, deliver(topic, handler))
	if !tok.WaitTimeout(t.cfg.ConnectTimeout) {
		return errors.New().WithData(ErrSubscribeFailed, topic+": no acknowledgement")
	}
	if err := tok.Error(); err != nil {
		return errors.New().Wrap(ErrSubscribeFailed, err).WithData(topic)
	}

	return nil
}

func (t *MQTTTransport) onConnect(c mqtt.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log.Info().Str("host", t.cfg.Host).Int("subscriptions", len(t.subs)).Msg("Broker connected")

	for topic, handler := range t.subs {
		tok := c.Subscribe(topic, t.cfg.QoS, deliver(topic, handler))
		go func(topic string) {
			if tok.Wait(); tok.Error() != nil {
				t.log.Warn().Err(tok.Error()).Str("topic", topic).Msg("Resubscribe failed")
			}
		}(topic)
	}
}

func deliver(topic string, handler Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		handler(topic, m.Payload())
	}
}

func (t *MQTTTransport) Close() error {
	if t.client.IsConnected() {
		t.client.Disconnect(disconnectQuiesceMs)
	}

	return nil
}
