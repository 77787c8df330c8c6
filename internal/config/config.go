// Package config holds the settings of the blockring demo pipeline.
//
// A config file is plain YAML:
//
//	blocks: 5
//	block_size: 256
//	producers: 1
//	consumers: 1
//	duration: 5s
//	produce_interval: 1s
//	jitter: 200ms
//	read_timeout: 1s
//	payload_size: 32
//
// Missing keys keep their Default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config describes one pipeline run.
type Config struct {
	// Blocks is the number of ring slots.
	Blocks int `yaml:"blocks"`
	// BlockSize is the slot capacity in bytes.
	BlockSize int `yaml:"block_size"`

	Producers int `yaml:"producers"`
	Consumers int `yaml:"consumers"`

	// Duration bounds the whole run; zero runs until cancelled.
	Duration time.Duration `yaml:"duration"`

	// ProduceInterval is the pause between two records of one producer,
	// Jitter a random extra of up to that much.
	ProduceInterval time.Duration `yaml:"produce_interval"`
	Jitter          time.Duration `yaml:"jitter"`

	// ReadTimeout is how long a consumer waits for a slot before it checks
	// for cancellation again.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// PayloadSize is the number of payload bytes per record.
	PayloadSize int `yaml:"payload_size"`
}

// Default returns the stock demo settings: five slots, one
// producer and one consumer, a record per second for five seconds.
func Default() Config {
	return Config{
		Blocks:          5,
		BlockSize:       256,
		Producers:       1,
		Consumers:       1,
		Duration:        5 * time.Second,
		ProduceInterval: time.Second,
		ReadTimeout:     time.Second,
		PayloadSize:     32,
	}
}

// Load reads path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("config %s not found", path)
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Blocks <= 0 {
		errs = append(errs, fmt.Errorf("blocks must be > 0, got %d", c.Blocks))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block_size must be > 0, got %d", c.BlockSize))
	}
	if c.Producers <= 0 {
		errs = append(errs, fmt.Errorf("producers must be > 0, got %d", c.Producers))
	}
	if c.Consumers <= 0 {
		errs = append(errs, fmt.Errorf("consumers must be > 0, got %d", c.Consumers))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative, got %v", c.Duration))
	}
	if c.ProduceInterval < 0 || c.Jitter < 0 {
		errs = append(errs, fmt.Errorf("produce_interval and jitter must not be negative"))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be > 0, got %v", c.ReadTimeout))
	}
	if c.PayloadSize < 0 {
		errs = append(errs, fmt.Errorf("payload_size must not be negative, got %d", c.PayloadSize))
	}
	return errors.Join(errs...)
}
