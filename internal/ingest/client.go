// Package ingest subscribes to the process-value topics and keeps a
// procvalue.Store current.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"codeberg.org/mutker/camsync/internal/procvalue"
	"github.com/google/uuid"
)

type Client struct {
	cfg       Config
	store     *procvalue.Store
	log       logger.Logger
	transport Transport
	channels  map[string]Channel

	mu      sync.Mutex
	started bool
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the broker connection built from Config.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithChannels replaces DefaultChannels.
func WithChannels(channels []Channel) Option {
	return func(c *Client) {
		c.channels = indexChannels(channels)
	}
}

func indexChannels(channels []Channel) map[string]Channel {
	m := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		m[ch.Topic] = ch
	}

	return m
}

// New prepares a client. No network I/O happens until Start.
func New(cfg Config, store *procvalue.Store, log logger.Logger, opts ...Option) (*Client, error) {
	errFactory := errors.New()

	if store == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "process value store is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "camsync-" + uuid.NewString()
	}

	c := &Client{
		cfg:      cfg,
		store:    store,
		log:      log.WithComponent("ingest"),
		channels: indexChannels(DefaultChannels()),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.applyPolicies(cfg.Policies); err != nil {
		return nil, err
	}

	if c.transport != nil {
		return c, nil
	}

	if cfg.Host == "" || cfg.Port == 0 {
		return nil, errFactory.WithData(ErrMissingConfig, "MQTT_HOST and MQTT_PORT must be set")
	}

	switch cfg.Kind {
	case KindMQTT:
		c.transport = NewMQTTTransport(cfg, c.log)
	case KindNATS:
		c.transport = NewNATSTransport(cfg, c.log)
	default:
		return nil, errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("broker kind %q has no transport", cfg.Kind))
	}

	return c, nil
}

func (c *Client) applyPolicies(policies map[string]string) error {
	for key, name := range policies {
		policy, err := ParsePolicy(name)
		if err != nil {
			return err
		}

		found := false
		for topic, ch := range c.channels {
			if string(ch.Key) == key {
				ch.Policy = policy
				c.channels[topic] = ch
				found = true
			}
		}
		if !found {
			return errors.New().WithData(errors.ErrInvalidConfig, fmt.Sprintf("no channel for process value %q", key))
		}
	}

	return nil
}

// Start connects and subscribes every channel. Messages are decoded on the
// transport's goroutine from then on.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New().WithMessage(errors.ErrInvalidState, "ingestion client already started")
	}

	if err := c.transport.Connect(ctx); err != nil {
		return err
	}

	for topic := range c.channels {
		if err := c.transport.Subscribe(topic, c.handle); err != nil {
			_ = c.transport.Close()
			return err
		}
	}

	c.started = true
	c.log.Info().Str("host", c.cfg.Host).Int("channels", len(c.channels)).Msg("Ingestion started")

	return nil
}

// handle never returns an error; failures end up in the store and the log.
func (c *Client) handle(topic string, payload []byte) {
	ch, ok := c.channels[topic]
	if !ok {
		c.log.Debug().Str("topic", topic).Msg("Message on unknown topic")
		return
	}

	v, err := decode(ch.Format, payload)
	if err != nil {
		if ch.Policy == Sentinel {
			c.store.Fail(ch.Key)
		}
		c.log.Warn().
			Err(err).
			Str("key", string(ch.Key)).
			Str("topic", topic).
			Str("payload", string(payload)).
			Str("policy", ch.Policy.String()).
			Msg("Process value acquisition failed")

		return
	}

	c.store.Set(ch.Key, v)
}

// Close disconnects from the broker. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	c.started = false

	return c.transport.Close()
}

// Channels returns the configured channels keyed by topic.
func (c *Client) Channels() map[string]Channel {
	out := make(map[string]Channel, len(c.channels))
	for k, v := range c.channels {
		out[k] = v
	}

	return out
}
