package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/virtmem/memctl/internal/errors"
)

const (
	DefaultLogLevel      = "info"
	defaultInterval      = 10
	defaultHistoryLength = 10
	defaultTelemetryDB   = "/var/lib/memctl/telemetry.db"
)

type Config struct {
	Interval        int    `mapstructure:"interval"`
	HistoryLength   int    `mapstructure:"sample_history_length"`
	Running         bool   `mapstructure:"running"`
	LogLevel        string `mapstructure:"log_level"`
	PlotDir         string `mapstructure:"plot_dir"`
	Telemetry       bool   `mapstructure:"telemetry"`
	TelemetryDB     string `mapstructure:"database"`
	HostCollectors  string `mapstructure:"host_collectors"`
	GuestCollectors string `mapstructure:"guest_collectors"`
	KSM             bool   `mapstructure:"ksm"`

	// Raw key/value sections keyed by lowercased collector name,
	// injected into that collector's construction context.
	collectorSections map[string]map[string]string
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("sample_history_length", defaultHistoryLength)
	v.SetDefault("running", true)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("plot_dir", "")
	v.SetDefault("telemetry", false)
	v.SetDefault("database", defaultTelemetryDB)
	v.SetDefault("host_collectors", "HostMemory,HostKSM")
	v.SetDefault("guest_collectors", "GuestMemory")
	v.SetDefault("ksm", true)

	flags := pflag.NewFlagSet("memctl", pflag.ContinueOnError)
	// Tolerate foreign flags so Load stays usable under `go test`.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configPath := flags.String("config", "", "Path to config file")
	flags.Int("interval", defaultInterval, "Seconds between collection cycles")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.String("plot-dir", "", "Directory for plot data files")
	flags.Bool("telemetry", false, "Enable the telemetry database")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		v.Set("log_level", level)
	}
	if flags.Changed("interval") {
		interval, _ := flags.GetInt("interval")
		v.Set("interval", interval)
	}
	if flags.Changed("plot-dir") {
		dir, _ := flags.GetString("plot-dir")
		v.Set("plot_dir", dir)
	}
	if flags.Changed("telemetry") {
		enabled, _ := flags.GetBool("telemetry")
		v.Set("telemetry", enabled)
	}

	v.SetEnvPrefix("MEMCTL")
	v.AutomaticEnv()

	if *configPath == "" {
		*configPath = os.Getenv("MEMCTL_CONFIG")
	}
	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName("memctl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	config.collectorSections = make(map[string]map[string]string)
	for name := range v.GetStringMap("collector") {
		config.collectorSections[strings.ToLower(name)] =
			v.GetStringMapString("collector." + name)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.HistoryLength <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, c.HistoryLength)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// CollectorConfig returns the raw key/value section configured for the
// named collector, or nil if the config file has no such section.
func (c *Config) CollectorConfig(name string) map[string]string {
	return c.collectorSections[strings.ToLower(name)]
}
