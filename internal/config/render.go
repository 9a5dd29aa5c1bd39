package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

type renderedConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Timeout         string `toml:"timeout"`
	Version         int    `toml:"version"`
	MaxDatagram     int    `toml:"max_datagram"`
	Retries         int    `toml:"retries"`
	RetryDelay      string `toml:"retry_delay"`
	MetricsTextfile string `toml:"metrics_textfile"`
	LogLevel        string `toml:"log_level"`
}

// Render encodes cfg in the same TOML shape LoadClientConfig reads.
func Render(cfg ClientConfig) ([]byte, error) {
	out, err := toml.Marshal(renderedConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Timeout:         cfg.Timeout.String(),
		Version:         cfg.Version,
		MaxDatagram:     cfg.MaxDatagram,
		Retries:         cfg.Retries,
		RetryDelay:      cfg.RetryDelay.String(),
		MetricsTextfile: cfg.MetricsTextfile,
		LogLevel:        cfg.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return out, nil
}
