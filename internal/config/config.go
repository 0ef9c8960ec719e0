// Package config loads the tracegraph YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
)

// Config is the full configuration file. Every section is optional.
type Config struct {
	Build   Build   `yaml:"build"`
	Records Records `yaml:"records"`
	Topics  Topics  `yaml:"topics"`
	Log     Log     `yaml:"log"`
}

// Build toggles the optional graph construction passes.
type Build struct {
	TimerEvents        bool `yaml:"timer_events"`
	CallbackEvents     bool `yaml:"callback_events"`
	PublishEvents      bool `yaml:"publish_events"`
	SubscriptionEvents bool `yaml:"subscription_events"`
	Verify             bool `yaml:"verify"`
}

// Records controls record loading.
type Records struct {
	// Validate drops records that fail the tracepoint schema.
	Validate bool `yaml:"validate"`

	// Ignore lists tracepoints dropped before building.
	Ignore []string `yaml:"ignore"`

	// Concurrency bounds parallel file reads. Zero means one per file.
	Concurrency int `yaml:"concurrency"`
}

// Topics controls which system topics summaries include.
type Topics struct {
	IncludeRosout          bool `yaml:"include_rosout"`
	IncludeParameterEvents bool `yaml:"include_parameter_events"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Build: Build{
			TimerEvents:        true,
			CallbackEvents:     true,
			PublishEvents:      true,
			SubscriptionEvents: true,
			Verify:             true,
		},
		Records: Records{
			Validate: true,
			Ignore:   append([]string(nil), record.DefaultIgnored...),
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a configuration file. Keys absent from the file keep their
// defaults; unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks values the YAML types cannot constrain.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Records.Concurrency < 0 {
		return fmt.Errorf("records.concurrency must not be negative, got %d", c.Records.Concurrency)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// LogLevel returns the configured level. Validate has already rejected
// unknown names, so the fallback is unreachable for loaded configs.
func (c Config) LogLevel() slog.Level {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// BuildOptions converts the build section into builder options.
func (c Config) BuildOptions(logger *slog.Logger) builder.Options {
	return builder.Options{
		TimerEvents:        c.Build.TimerEvents,
		CallbackEvents:     c.Build.CallbackEvents,
		PublishEvents:      c.Build.PublishEvents,
		SubscriptionEvents: c.Build.SubscriptionEvents,
		Verify:             c.Build.Verify,
		Logger:             logger,
	}
}

// LoadOptions converts the records section into record loading options.
func (c Config) LoadOptions(logger *slog.Logger) record.LoadOptions {
	return record.LoadOptions{
		Ignore:      c.Records.Ignore,
		Validate:    c.Records.Validate,
		Concurrency: c.Records.Concurrency,
		Logger:      logger,
	}
}

// TopicFilter converts the topics section into a graph topic filter.
func (c Config) TopicFilter() graph.TopicFilter {
	return graph.TopicFilter{
		IncludeRosout:          c.Topics.IncludeRosout,
		IncludeParameterEvents: c.Topics.IncludeParameterEvents,
	}
}
