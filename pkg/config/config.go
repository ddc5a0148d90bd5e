package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the startup configuration of a service process.
// It's populated once from defaults, an optional config.yaml and the environment.
type Config struct {
	ServiceName string          `mapstructure:"service_name"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Upstream    UpstreamConfig  `mapstructure:"upstream"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Store       StoreConfig     `mapstructure:"store"`
	Profiling   ProfilingConfig `mapstructure:"profiling"`
}

// ServerConfig describes the main service listener.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// UpstreamConfig describes the single forwarding target.
type UpstreamConfig struct {
	URL string `mapstructure:"url"`
}

// MetricsConfig describes the pull-based exposition endpoint and metric naming.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Path       string `mapstructure:"path"`
	// Prefix is prepended to every metric name, e.g. "frontend_service".
	Prefix string `mapstructure:"prefix"`
	// Runtime adds Go runtime and process collectors to the endpoint.
	Runtime bool `mapstructure:"runtime"`
}

// TracingConfig describes the span export pipeline.
type TracingConfig struct {
	// Exporter is one of "jaeger", "otlp", "log" or "none".
	Exporter     string        `mapstructure:"exporter"`
	JaegerHost   string        `mapstructure:"jaeger_host"`
	JaegerPort   string        `mapstructure:"jaeger_port"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxQueueSize int           `mapstructure:"max_queue_size"`
	// NPlusOneThreshold is the number of identical statements within one
	// trace that triggers a warning. Zero disables detection.
	NPlusOneThreshold int `mapstructure:"nplusone_threshold"`
}

// StoreConfig is only used by the book service.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ProfilingConfig drives CPU profiling of slow requests.
type ProfilingConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	LatencyThreshold time.Duration `mapstructure:"latency_threshold"`
	Duration         time.Duration `mapstructure:"duration"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
	// Dir receives the profiles. Empty means os.TempDir().
	Dir string `mapstructure:"dir"`
}

const (
	ExporterJaeger = "jaeger"
	ExporterOTLP   = "otlp"
	ExporterLog    = "log"
	ExporterNone   = "none"
)

// FrontendDefaults returns the fixed settings of the frontend service.
func FrontendDefaults() Config {
	return Config{
		ServiceName: "frontend_service",
		LogLevel:    "info",
		Server: ServerConfig{
			ListenAddr:      ":5000",
			ShutdownTimeout: 5 * time.Second,
		},
		Upstream: UpstreamConfig{
			URL: "http://backend_service:8080/books",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9464",
			Path:       "/metrics",
			Prefix:     "frontend_service",
			Runtime:    true,
		},
		Tracing: TracingConfig{
			Exporter:     ExporterJaeger,
			JaegerHost:   "jaeger",
			JaegerPort:   "6831",
			OTLPEndpoint: "otel-collector:4318",
			BatchTimeout: time.Second,
			MaxQueueSize: 2048,
		},
		Profiling: ProfilingConfig{
			LatencyThreshold: 500 * time.Millisecond,
			Duration:         10 * time.Second,
			Cooldown:         time.Minute,
		},
	}
}

// BackendDefaults returns the fixed settings of the book service.
func BackendDefaults() Config {
	cfg := FrontendDefaults()
	cfg.ServiceName = "backend_service"
	cfg.Server.ListenAddr = ":8080"
	cfg.Upstream.URL = ""
	cfg.Metrics.ListenAddr = ":9465"
	cfg.Metrics.Prefix = "backend_service"
	cfg.Store.DSN = "file:books?mode=memory&cache=shared"
	cfg.Tracing.NPlusOneThreshold = 5
	return cfg
}

// Load reads config.yaml from path (if present) and environment variables on
// top of base. Nested keys map to env names with "." replaced by "_", e.g.
// UPSTREAM_URL or TRACING_EXPORTER.
func Load(path string, base Config) (*Config, error) {
	v := viper.New()
	setDefaults(v, base)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that would make the process unable to start.
func (c *Config) Validate() error {
	switch c.Tracing.Exporter {
	case ExporterJaeger, ExporterOTLP, ExporterLog, ExporterNone:
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must be set")
	}
	if c.Metrics.ListenAddr == c.Server.ListenAddr {
		return fmt.Errorf("metrics.listen_addr must differ from server.listen_addr (%s)", c.Server.ListenAddr)
	}
	if c.Metrics.Prefix == "" {
		return errors.New("metrics.prefix must be set")
	}
	if c.Tracing.NPlusOneThreshold < 0 {
		return errors.New("tracing.nplusone_threshold must not be negative")
	}
	if c.Profiling.Enabled && c.Profiling.LatencyThreshold <= 0 {
		return errors.New("profiling.latency_threshold must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, base Config) {
	v.SetDefault("service_name", base.ServiceName)
	v.SetDefault("log_level", base.LogLevel)

	v.SetDefault("server.listen_addr", base.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", base.Server.ShutdownTimeout)

	v.SetDefault("upstream.url", base.Upstream.URL)

	v.SetDefault("metrics.listen_addr", base.Metrics.ListenAddr)
	v.SetDefault("metrics.path", base.Metrics.Path)
	v.SetDefault("metrics.prefix", base.Metrics.Prefix)
	v.SetDefault("metrics.runtime", base.Metrics.Runtime)

	v.SetDefault("tracing.exporter", base.Tracing.Exporter)
	v.SetDefault("tracing.jaeger_host", base.Tracing.JaegerHost)
	v.SetDefault("tracing.jaeger_port", base.Tracing.JaegerPort)
	v.SetDefault("tracing.otlp_endpoint", base.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.batch_timeout", base.Tracing.BatchTimeout)
	v.SetDefault("tracing.max_queue_size", base.Tracing.MaxQueueSize)
	v.SetDefault("tracing.nplusone_threshold", base.Tracing.NPlusOneThreshold)

	v.SetDefault("store.dsn", base.Store.DSN)

	v.SetDefault("profiling.enabled", base.Profiling.Enabled)
	v.SetDefault("profiling.latency_threshold", base.Profiling.LatencyThreshold)
	v.SetDefault("profiling.duration", base.Profiling.Duration)
	v.SetDefault("profiling.cooldown", base.Profiling.Cooldown)
	v.SetDefault("profiling.dir", base.Profiling.Dir)
}
