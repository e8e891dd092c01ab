package trigger

import (
	"testing"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "ssh", mutate: func(c *Config) { c.Kind = KindSSH }},
		{name: "unknown kind", mutate: func(c *Config) { c.Kind = "gpio" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Kind = KindSSH; c.Port = 70000 }, wantErr: true},
		{name: "bad baud", mutate: func(c *Config) { c.Kind = KindSerial; c.BaudRate = 0 }, wantErr: true},
		{name: "unbounded commands", mutate: func(c *Config) { c.CommandTimeout = 0 }},
		{name: "negative settle", mutate: func(c *Config) { c.SettleDelay = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}
