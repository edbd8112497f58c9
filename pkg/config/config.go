// Package config provides the configuration for csvfits.
//
// Configuration is layered with viper, highest precedence first:
//   - command line flags
//   - CSVFITS_* environment variables (CSVFITS_LOG_LEVEL, CSVFITS_OUTPUT_OVERWRITE, ...)
//   - an optional YAML config file
//   - the defaults from Default
//
// With no flags, variables or file the converter behaves exactly like the
// plain two-argument invocation: FITS output, no overwrite, quiet logging.
//
// Example configuration file:
//
//	log:
//	  level: info
//	  encoding: json
//	output:
//	  format: auto
//	  overwrite: false
//	  compression_level: default
//	metrics:
//	  textfile: /var/lib/node_exporter/csvfits.prom
//	tracing:
//	  enabled: false
package config

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/csvfits/pkg/compression"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/formats"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "CSVFITS"

// Config is the complete converter configuration
type Config struct {
	// Log controls structured logging
	Log LogConfig `mapstructure:"log" yaml:"log" json:"log"`
	// Output controls how the result file is written
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	// Metrics controls conversion metrics export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	// Tracing controls span export
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing" json:"tracing"`
}

// LogConfig contains logging settings
type LogConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	// Encoding is console or json
	Encoding string `mapstructure:"encoding" yaml:"encoding" json:"encoding"`
	// Development enables colored levels and stack traces on errors
	Development bool `mapstructure:"development" yaml:"development" json:"development"`
}

// OutputConfig contains output file settings
type OutputConfig struct {
	// Format is auto, fits, arrow, parquet or avro
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// Overwrite allows replacing an existing output file
	Overwrite bool `mapstructure:"overwrite" yaml:"overwrite" json:"overwrite"`
	// CompressionLevel applies when the output name ends in .gz, .zst or .lz4
	CompressionLevel string `mapstructure:"compression_level" yaml:"compression_level" json:"compression_level"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	// Textfile, when set, receives the conversion metrics in Prometheus
	// text exposition format after every run
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// TracingConfig contains tracing settings
type TracingConfig struct {
	// Enabled exports one span per conversion stage to stderr
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "warn",
			Encoding: "console",
		},
		Output: OutputConfig{
			Format:           string(formats.Auto),
			Overwrite:        false,
			CompressionLevel: compression.Default.String(),
		},
	}
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"log-level":         "log.level",
	"log-encoding":      "log.encoding",
	"format":            "output.format",
	"overwrite":         "output.overwrite",
	"compression-level": "output.compression_level",
	"metrics-textfile":  "metrics.textfile",
	"trace":             "tracing.enabled",
}

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	fs.String("log-encoding", d.Log.Encoding, "Log encoding (console, json)")
	fs.String("format", d.Output.Format, "Output format (auto, fits, arrow, parquet, avro)")
	fs.Bool("overwrite", d.Output.Overwrite, "Replace the output file if it already exists")
	fs.String("compression-level", d.Output.CompressionLevel, "Compression level for .gz/.zst/.lz4 outputs (fastest, default, better, best)")
	fs.String("metrics-textfile", d.Metrics.Textfile, "Write conversion metrics to this file in Prometheus text format")
	fs.Bool("trace", d.Tracing.Enabled, "Export conversion stage spans to stderr")
}

// Load builds the configuration from defaults, the file named by the
// --config flag, the environment and fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").WithDetail("flag", name)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
					WithDetail("path", f.Value.String())
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.overwrite", d.Output.Overwrite)
	v.SetDefault("output.compression_level", d.Output.CompressionLevel)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
}

// Validate checks that every setting has a supported value
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrorTypeConfig, "invalid log level").WithDetail("level", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return errors.New(errors.ErrorTypeConfig, "invalid log encoding").WithDetail("encoding", c.Log.Encoding)
	}
	if _, err := c.OutputFormat(); err != nil {
		return err
	}
	if _, err := c.CompressionLevel(); err != nil {
		return err
	}
	return nil
}

// OutputFormat returns the parsed output format
func (c *Config) OutputFormat() (formats.Format, error) {
	return formats.ParseFormat(c.Output.Format)
}

// CompressionLevel returns the parsed compression level
func (c *Config) CompressionLevel() (compression.Level, error) {
	return compression.ParseLevel(c.Output.CompressionLevel)
}

// WriteYAML writes the configuration as YAML
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode configuration")
	}
	return enc.Close()
}
