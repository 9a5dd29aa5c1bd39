package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/smpctl/internal/protocol/frame"
	"github.com/danmuck/smpctl/internal/protocol/session"
	"github.com/danmuck/smpctl/internal/retry"
)

var ErrInvalid = errors.New("config: invalid")

// ClientConfig is the effective smpctl configuration.
type ClientConfig struct {
	Host            string
	Port            int
	Timeout         time.Duration
	Version         int
	MaxDatagram     int
	Retries         int
	RetryDelay      time.Duration
	MetricsTextfile string
	LogLevel        string
}

// fileConfig mirrors the TOML keys; durations arrive as strings.
type fileConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Timeout         string `toml:"timeout"`
	TimeoutMS       int64  `toml:"timeout_ms"`
	Version         int    `toml:"version"`
	MaxDatagram     int    `toml:"max_datagram"`
	Retries         int    `toml:"retries"`
	RetryDelay      string `toml:"retry_delay"`
	MetricsTextfile string `toml:"metrics_textfile"`
	LogLevel        string `toml:"log_level"`
}

func DefaultClientConfig() ClientConfig {
	sess := session.DefaultConfig()
	rc := retry.DefaultConfig()
	return ClientConfig{
		Port:        session.DefaultPort,
		Timeout:     sess.Timeout,
		Version:     int(sess.Version),
		MaxDatagram: sess.MaxDatagram,
		Retries:     int(rc.Attempts),
		RetryDelay:  rc.Backoff.InitialDelay,
		LogLevel:    "info",
	}
}

// LoadClientConfig overlays the keys defined in path onto the defaults. An
// empty path returns the defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return ClientConfig{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("%w: parse timeout: %v", ErrInvalid, err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("timeout_ms") {
		cfg.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("version") {
		cfg.Version = raw.Version
	}
	if meta.IsDefined("max_datagram") {
		cfg.MaxDatagram = raw.MaxDatagram
	}
	if meta.IsDefined("retries") {
		cfg.Retries = raw.Retries
	}
	if meta.IsDefined("retry_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RetryDelay))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("%w: parse retry_delay: %v", ErrInvalid, err)
		}
		cfg.RetryDelay = d
	}
	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, cfg.Port)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrInvalid)
	}
	if cfg.Version < 0 || cfg.Version > 3 {
		return fmt.Errorf("%w: version %d outside [0,3]", ErrInvalid, cfg.Version)
	}
	if cfg.MaxDatagram < frame.HeaderLen || cfg.MaxDatagram > frame.MaxFrameLen {
		return fmt.Errorf("%w: max_datagram %d outside [%d,%d]", ErrInvalid, cfg.MaxDatagram, frame.HeaderLen, frame.MaxFrameLen)
	}
	if cfg.Retries < 1 {
		return fmt.Errorf("%w: retries must be >= 1", ErrInvalid)
	}
	if cfg.RetryDelay < 0 {
		return fmt.Errorf("%w: retry_delay must be >= 0", ErrInvalid)
	}
	return nil
}
