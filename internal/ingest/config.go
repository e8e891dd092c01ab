package ingest

import (
	"fmt"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/procvalue"
)

// Kind selects the broker protocol.
type Kind string

const (
	KindMQTT Kind = "mqtt"
	KindNATS Kind = "nats"
	KindNone Kind = "none"
)

const (
	defaultQoS            = 2
	defaultConnectTimeout = 10 * time.Second
)

type Config struct {
	Kind     Kind
	Host     string
	Port     int
	ClientID string
	QoS      byte

	ConnectTimeout time.Duration

	// Policies overrides the decode-failure policy per channel key
	// ("keep_last" or "sentinel").
	Policies map[string]string
}

func DefaultConfig() Config {
	return Config{
		Kind:           KindNone,
		QoS:            defaultQoS,
		ConnectTimeout: defaultConnectTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Kind {
	case KindMQTT, KindNATS, KindNone:
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("unknown broker kind %q", c.Kind))
	}

	if c.QoS > 2 {
		return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("invalid QoS %d", c.QoS))
	}
	if c.Port < 0 || c.Port > 65535 {
		return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("invalid broker port %d", c.Port))
	}

	for key, policy := range c.Policies {
		if !procvalue.Key(key).Valid() {
			return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("unknown process value %q", key))
		}
		if _, err := ParsePolicy(policy); err != nil {
			return err
		}
	}

	return nil
}
