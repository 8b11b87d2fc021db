package interp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
)

// Config controls a Runner.
type Config struct {
	// MaxDepth bounds the number of live frames of any one scope.
	// Deeper recursion fails with ErrDepthExceeded.
	MaxDepth int `yaml:"max_depth"`
	// DefaultPrecision is the number of fraction digits written for reals
	// without rounding metadata.
	DefaultPrecision int    `yaml:"default_precision"`
	TrueToken        string `yaml:"true_token"`
	FalseToken       string `yaml:"false_token"`
	// Logger receives call and frame traces at debug level. nil discards them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxDepth:         1024,
		DefaultPrecision: intrinsic.DefaultPrecision,
		TrueToken:        "TRUE",
		FalseToken:       "FALSE",
	}
}

// LoadConfig reads YAML overrides of DefaultConfig from r. Unknown keys are an error.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration values a Runner cannot work with.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.DefaultPrecision < 0 {
		return fmt.Errorf("default_precision must not be negative, got %d", c.DefaultPrecision)
	}
	return nil
}

// Formatter returns the output formatting described by c.
func (c Config) Formatter() intrinsic.Formatter {
	return intrinsic.Formatter{
		Precision:  c.DefaultPrecision,
		TrueToken:  c.TrueToken,
		FalseToken: c.FalseToken,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}
