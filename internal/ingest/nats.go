package ingest

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"github.com/nats-io/nats.go"
)

// NATSTransport receives the same channels bridged onto NATS subjects, with
// topic levels separated by dots instead of slashes. NATS core delivery is at
// most once, so QoS does not apply.
type NATSTransport struct {
	cfg Config
	log logger.Logger

	mu   sync.Mutex
	conn *nats.Conn
	subs []*nats.Subscription
}

var _ Transport = (*NATSTransport)(nil)

func NewNATSTransport(cfg Config, log logger.Logger) *NATSTransport {
	return &NATSTransport{cfg: cfg, log: log}
}

func (t *NATSTransport) Connect(ctx context.Context) error {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrTimeout, err).WithData(t.cfg.Host)
	}

	url := "nats://" + net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	conn, err := nats.Connect(url,
		nats.Name(t.cfg.ClientID),
		nats.Timeout(t.cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			t.log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			t.log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			t.log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return errFactory.Wrap(ErrConnectionFailed, err).WithData(url)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	return nil
}

func (t *NATSTransport) Subscribe(topic string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return errors.New().WithMessage(errors.ErrInvalidState, "not connected")
	}

	sub, err := t.conn.Subscribe(Subject(topic), func(m *nats.Msg) {
		handler(topic, m.Data)
	})
	if err != nil {
		return errors.New().Wrap(ErrSubscribeFailed, err).WithData(topic)
	}
	t.subs = append(t.subs, sub)

	return nil
}

// Subject maps an MQTT topic to the NATS subject it is bridged to.
func Subject(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

func (t *NATSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	err := t.conn.Drain()
	t.conn = nil
	t.subs = nil
	if err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}
