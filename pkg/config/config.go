package config

import (
	"net"
	"strconv"
	"time"
)

// Defaults match the Flask development server.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 5000
	DefaultTemplatesDir  = "templates"
	DefaultStaticDir     = "static"
	DefaultStaticURLPath = "/static"
	DefaultMaxBodySize   = 10 << 20
	DefaultMetricsPath   = "/metrics"
)

// Config holds the settings of a feo application and its development server.
type Config struct {
	// Host is the interface the server binds to.
	Host string `json:"host" yaml:"host" validate:"required"`

	// Port is the TCP port. Zero picks a free port.
	Port int `json:"port" yaml:"port" validate:"min=0,max=65535"`

	// Debug shows error details on 500 pages, logs every request at debug
	// level and reloads templates when they change.
	Debug bool `json:"debug" yaml:"debug"`

	// TemplatesDir is read at render time.
	TemplatesDir string `json:"templates" yaml:"templates"`

	// StaticDir is served under StaticURLPath. Empty disables static files.
	StaticDir     string `json:"static" yaml:"static"`
	StaticURLPath string `json:"staticUrlPath" yaml:"staticUrlPath" validate:"omitempty,startswith=/"`

	// MaxBodySize caps request bodies in bytes.
	MaxBodySize int64 `json:"maxBodySize" yaml:"maxBodySize" validate:"min=0"`

	// MaxConnections caps concurrent connections. Zero means unlimited.
	MaxConnections int `json:"maxConnections" yaml:"maxConnections" validate:"min=0"`

	// Timeouts in seconds.
	ReadTimeout     int `json:"readTimeout" yaml:"readTimeout" validate:"min=0"`
	WriteTimeout    int `json:"writeTimeout" yaml:"writeTimeout" validate:"min=0"`
	ShutdownTimeout int `json:"shutdownTimeout" yaml:"shutdownTimeout" validate:"min=0"`

	// Compress gzips responses for clients that accept it.
	Compress bool `json:"compress" yaml:"compress"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json TEXT JSON"`
}

// Default returns the development server defaults.
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		TemplatesDir:    DefaultTemplatesDir,
		StaticDir:       DefaultStaticDir,
		StaticURLPath:   DefaultStaticURLPath,
		MaxBodySize:     DefaultMaxBodySize,
		ReadTimeout:     30,
		WriteTimeout:    30,
		ShutdownTimeout: 5,
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}
