// Package train drives the training and evaluation of classification
// models: epochs of gradient descent over batches, followed by a no-grad
// evaluation pass reporting mean loss and accuracy.
package train

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration indicates an invalid training configuration. It is
// raised once, at validation time, before any training work starts.
var ErrConfiguration = errors.New("configuration error")

// Configf builds an ErrConfiguration-wrapped error with context.
func Configf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

// Config holds the training hyperparameters.
type Config struct {
	LearningRate float64 `yaml:"learning_rate"`
	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	LogEvery     int     `yaml:"log_every"`
}

// DefaultConfig returns a config that trains a small classifier sensibly.
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.01,
		BatchSize:    64,
		Epochs:       10,
		LogEvery:     100,
	}
}

// Validate checks every field once. All fields must be positive.
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return Configf("learning rate must be positive, got %v", c.LearningRate)
	}
	if c.BatchSize <= 0 {
		return Configf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Epochs <= 0 {
		return Configf("epochs must be positive, got %d", c.Epochs)
	}
	if c.LogEvery <= 0 {
		return Configf("log interval must be positive, got %d", c.LogEvery)
	}
	return nil
}

// LoadConfig reads a YAML config file and validates it. Fields absent
// from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return config, Configf("reading config file %q: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return config, Configf("parsing config file %q: %v", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}
