// Package config loads camsync settings. Sources, lowest precedence first:
// built-in defaults, the TOML file, a .env file, the environment and
// command-line flags.
package config

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/camsync/internal/camera"
	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/ingest"
	"codeberg.org/mutker/camsync/internal/metrics"
	"codeberg.org/mutker/camsync/internal/pid"
	"codeberg.org/mutker/camsync/internal/sysutil"
	"codeberg.org/mutker/camsync/internal/trigger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvPrefix = "CAMSYNC"
	defaultDotEnv    = ".env"
	configName       = "camsync"
	defaultInterval  = 5 * time.Second
)

var configDirs = []string{"/etc/camsync", "."}

// legacyEnv maps the unprefixed variable names deployments already use.
var legacyEnv = map[string]string{
	"trigger.host":     "TRIGGER_HOST",
	"trigger.user":     "TRIGGER_USER",
	"trigger.password": "TRIGGER_PASS",
	"trigger.comport":  "TRIGGER_COMPORT",
	"broker.host":      "MQTT_HOST",
	"broker.port":      "MQTT_PORT",
}

type Config struct {
	LogLevel   LogLevel
	Debug      bool
	Verbose    bool
	Interval   time.Duration
	PIDFile    string
	FileLimit  uint64
	ConfigFile string

	Cameras CameraConfig
	Trigger trigger.Config
	// TriggerFrequency is the pulse rate started once cameras are grabbing.
	TriggerFrequency float64
	Broker           ingest.Config
	Metrics          metrics.Config
}

type CameraConfig struct {
	// Count limits how many devices are connected; 0 connects all.
	Count int
	// Virtual is the number of emulated devices to provision.
	Virtual int
	Names   []string
	Params  camera.Params
}

func setDefaults(v *viper.Viper) {
	params := camera.DefaultParams()
	trig := trigger.DefaultConfig()
	broker := ingest.DefaultConfig()
	m := metrics.DefaultConfig()

	v.SetDefault("log_level", string(LogLevelWarning))
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("pid_file", pid.DefaultPath())
	v.SetDefault("file_limit", sysutil.DefaultFileLimit)

	v.SetDefault("cameras.count", 0)
	v.SetDefault("cameras.virtual", 0)
	v.SetDefault("cameras.names", []string{})
	v.SetDefault("cameras.triggered", params.Triggered)
	v.SetDefault("cameras.framerate", params.Framerate)
	v.SetDefault("cameras.exposure", params.Exposure)
	v.SetDefault("cameras.gain", params.Gain)
	v.SetDefault("cameras.gamma", params.Gamma)
	v.SetDefault("cameras.black_level", params.BlackLevel)
	v.SetDefault("cameras.binning", params.Binning)
	v.SetDefault("cameras.binning_mode", params.BinningMode)

	// empty kind is inferred from which endpoint settings are present
	v.SetDefault("trigger.kind", "")
	v.SetDefault("trigger.host", "")
	v.SetDefault("trigger.user", "")
	v.SetDefault("trigger.password", "")
	v.SetDefault("trigger.comport", "")
	v.SetDefault("trigger.port", trig.Port)
	v.SetDefault("trigger.pin", trig.PWMPin)
	v.SetDefault("trigger.baud_rate", trig.BaudRate)
	v.SetDefault("trigger.frequency", params.Framerate)
	v.SetDefault("trigger.ping_timeout", trig.PingTimeout)
	v.SetDefault("trigger.command_timeout", trig.CommandTimeout)
	v.SetDefault("trigger.settle_delay", trig.SettleDelay)

	v.SetDefault("broker.kind", "")
	v.SetDefault("broker.host", "")
	v.SetDefault("broker.port", 0)
	v.SetDefault("broker.client_id", "")
	v.SetDefault("broker.qos", broker.QoS)
	v.SetDefault("broker.connect_timeout", broker.ConnectTimeout)
	v.SetDefault("broker.policies", map[string]string{})

	v.SetDefault("metrics.enabled", m.Enabled)
	v.SetDefault("metrics.db_path", m.DBPath)
	v.SetDefault("metrics.backup_dir", m.BackupDir)
	v.SetDefault("metrics.batch_size", m.BatchSize)
	v.SetDefault("metrics.batch_timeout", m.BatchTimeout)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)

	fs.StringP("config", "c", "", "Path to configuration file")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	fs.Duration("interval", 0, "Interval between process value samples")
	fs.String("pid-file", "", "PID file location")

	fs.Int("cameras", 0, "Number of cameras to connect (0 = all)")
	fs.Int("virtual", 0, "Number of emulated cameras to provision")
	fs.Bool("triggered", true, "Cameras expose on the hardware trigger line")
	fs.Float64("framerate", 0, "Camera framerate in Hz")
	fs.Float64("exposure", 0, "Exposure time in microseconds")
	fs.Int("binning", 0, "Binning factor (1-4)")

	fs.String("trigger", "", "Trigger kind (ssh, serial, none)")
	fs.Float64("trigger-frequency", 0, "Trigger pulse frequency in Hz")
	fs.String("broker", "", "Process value broker kind (mqtt, nats, none)")
	fs.Bool("metrics", false, "Record process value samples")
	fs.String("metrics-db", "", "Sample database path")

	return fs
}

var flagKeys = map[string]string{
	"debug":             "debug",
	"verbose":           "verbose",
	"log-level":         "log_level",
	"interval":          "interval",
	"pid-file":          "pid_file",
	"cameras":           "cameras.count",
	"virtual":           "cameras.virtual",
	"triggered":         "cameras.triggered",
	"framerate":         "cameras.framerate",
	"exposure":          "cameras.exposure",
	"binning":           "cameras.binning",
	"trigger":           "trigger.kind",
	"trigger-frequency": "trigger.frequency",
	"broker":            "broker.kind",
	"metrics":           "metrics.enabled",
	"metrics-db":        "metrics.db_path",
}

// Load reads and validates the configuration.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix:  defaultEnvPrefix,
		dotEnvPath: defaultDotEnv,
		args:       os.Args[1:],
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	configPath := o.configPath
	if p, _ := fs.GetString("config"); p != "" {
		configPath = p
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	if o.dotEnvPath != "" {
		if err := mergeDotEnv(v, o.dotEnvPath, o.envPrefix); err != nil {
			return nil, err
		}
	}

	if err := bindEnv(v, o.envPrefix); err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	cfg := build(v)
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		for _, dir := range configDirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && stderrors.As(err, &notFound) {
			return nil
		}

		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func envName(prefix, key string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func bindEnv(v *viper.Viper, prefix string) error {
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(prefix, key), legacy); err != nil {
			return errors.New().Wrap(errors.ErrBindFlags, err)
		}
	}

	return nil
}

// mergeDotEnv layers a .env file between the config file and the real
// environment. Unknown names are ignored.
func mergeDotEnv(v *viper.Viper, path, prefix string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	names := make(map[string]string)
	for _, key := range v.AllKeys() {
		names[strings.ToLower(envName(prefix, key))] = key
	}
	for key, legacy := range legacyEnv {
		names[strings.ToLower(legacy)] = key
	}

	merged := make(map[string]interface{})
	for _, name := range env.AllKeys() {
		key, ok := names[name]
		if !ok {
			continue
		}
		nest(merged, strings.Split(key, "."), env.GetString(name))
	}

	if err := v.MergeConfigMap(merged); err != nil {
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func nest(m map[string]interface{}, path []string, value interface{}) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}

	child, ok := m[path[0]].(map[string]interface{})
	if !ok {
		child = make(map[string]interface{})
		m[path[0]] = child
	}
	nest(child, path[1:], value)
}

func build(v *viper.Viper) *Config {
	cfg := &Config{
		LogLevel:         normalizeLevel(v.GetString("log_level")),
		Debug:            v.GetBool("debug"),
		Verbose:          v.GetBool("verbose"),
		Interval:         v.GetDuration("interval"),
		PIDFile:          v.GetString("pid_file"),
		FileLimit:        v.GetUint64("file_limit"),
		TriggerFrequency: v.GetFloat64("trigger.frequency"),
	}

	cfg.Cameras = CameraConfig{
		Count:   v.GetInt("cameras.count"),
		Virtual: v.GetInt("cameras.virtual"),
		Names:   v.GetStringSlice("cameras.names"),
		Params: camera.Params{
			Name:        camera.DefaultName,
			Triggered:   v.GetBool("cameras.triggered"),
			Framerate:   v.GetFloat64("cameras.framerate"),
			Exposure:    v.GetFloat64("cameras.exposure"),
			Gain:        v.GetFloat64("cameras.gain"),
			Gamma:       v.GetFloat64("cameras.gamma"),
			BlackLevel:  v.GetFloat64("cameras.black_level"),
			Binning:     v.GetInt("cameras.binning"),
			BinningMode: v.GetString("cameras.binning_mode"),
		},
	}

	cfg.Trigger = trigger.Config{
		Kind:           trigger.Kind(strings.ToLower(v.GetString("trigger.kind"))),
		Host:           v.GetString("trigger.host"),
		User:           v.GetString("trigger.user"),
		Password:       v.GetString("trigger.password"),
		Port:           v.GetInt("trigger.port"),
		PWMPin:         v.GetInt("trigger.pin"),
		ComPort:        v.GetString("trigger.comport"),
		BaudRate:       v.GetInt("trigger.baud_rate"),
		PingTimeout:    v.GetDuration("trigger.ping_timeout"),
		CommandTimeout: v.GetDuration("trigger.command_timeout"),
		SettleDelay:    v.GetDuration("trigger.settle_delay"),
	}
	if cfg.Trigger.Kind == "" {
		switch {
		case cfg.Trigger.Host != "":
			cfg.Trigger.Kind = trigger.KindSSH
		case cfg.Trigger.ComPort != "":
			cfg.Trigger.Kind = trigger.KindSerial
		default:
			cfg.Trigger.Kind = trigger.KindNone
		}
	}

	cfg.Broker = ingest.Config{
		Kind:           ingest.Kind(strings.ToLower(v.GetString("broker.kind"))),
		Host:           v.GetString("broker.host"),
		Port:           v.GetInt("broker.port"),
		ClientID:       v.GetString("broker.client_id"),
		QoS:            byte(v.GetUint("broker.qos")),
		ConnectTimeout: v.GetDuration("broker.connect_timeout"),
		Policies:       upperKeys(v.GetStringMapString("broker.policies")),
	}
	if cfg.Broker.Kind == "" {
		cfg.Broker.Kind = ingest.KindNone
		if cfg.Broker.Host != "" {
			cfg.Broker.Kind = ingest.KindMQTT
		}
	}

	cfg.Metrics = metrics.Config{
		Enabled:      v.GetBool("metrics.enabled"),
		DBPath:       v.GetString("metrics.db_path"),
		BackupDir:    v.GetString("metrics.backup_dir"),
		BatchSize:    v.GetInt("metrics.batch_size"),
		BatchTimeout: v.GetDuration("metrics.batch_timeout"),
	}

	return cfg
}

// viper lowercases map keys; channel keys are upper case.
func upperKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}

	return out
}

func normalizeLevel(s string) LogLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warn" {
		return LogLevelWarning
	}

	return LogLevel(s)
}

// Validate checks every section and reports the first problem as
// ErrInvalidConfig wrapping a ValidationError.
func (c *Config) Validate() error {
	errFactory := errors.New()

	invalid := func(field string, value interface{}, reason string) error {
		return errFactory.Wrap(errors.ErrInvalidConfig, &fieldError{field: field, value: value, reason: reason})
	}

	if !c.LogLevel.IsValid() {
		return invalid("log_level", c.LogLevel, "must be debug, info, warning or error")
	}
	if c.Interval <= 0 {
		return invalid("interval", c.Interval, "must be positive")
	}
	if c.Cameras.Count < 0 {
		return invalid("cameras.count", c.Cameras.Count, "must not be negative")
	}
	if c.Cameras.Virtual < 0 {
		return invalid("cameras.virtual", c.Cameras.Virtual, "must not be negative")
	}
	if b := c.Cameras.Params.Binning; b < 1 || b > 4 {
		return invalid("cameras.binning", b, "must be 1, 2, 3 or 4")
	}
	if c.Cameras.Params.Framerate <= 0 {
		return invalid("cameras.framerate", c.Cameras.Params.Framerate, "must be positive")
	}
	if c.TriggerFrequency < 0 {
		return invalid("trigger.frequency", c.TriggerFrequency, "must not be negative")
	}

	if err := c.Trigger.Validate(); err != nil {
		return err
	}
	if err := c.Broker.Validate(); err != nil {
		return err
	}

	return c.Metrics.Validate()
}
