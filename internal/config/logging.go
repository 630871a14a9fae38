package config

import "github.com/caarlos0/env/v11"

// LogConfig controls the zerolog setup. When File is set, output appends
// there and the file starts over past MaxMB; SampleEvery greater than one
// keeps every Nth event.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

// LoadLog parses the logging section on its own; logging is initialized
// before anything else can be.
func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
