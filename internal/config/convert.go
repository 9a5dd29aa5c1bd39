package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/danmuck/smpctl/internal/protocol/session"
	"github.com/danmuck/smpctl/internal/retry"
)

// Address joins host and port; a host that already names a port wins.
func Address(cfg ClientConfig) string {
	if _, _, err := net.SplitHostPort(cfg.Host); err == nil {
		return cfg.Host
	}
	host := strings.TrimSuffix(strings.TrimPrefix(cfg.Host, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

func SessionConfig(cfg ClientConfig) session.Config {
	return session.Config{
		Timeout:     cfg.Timeout,
		Version:     uint8(cfg.Version),
		MaxDatagram: cfg.MaxDatagram,
	}
}

// RetryConfig doubles the delay per attempt up to eight times retry_delay.
func RetryConfig(cfg ClientConfig) retry.Config {
	return retry.Config{
		Attempts: uint(cfg.Retries),
		Backoff: retry.BackoffConfig{
			InitialDelay: cfg.RetryDelay,
			Multiplier:   2.0,
			MaxDelay:     8 * cfg.RetryDelay,
			Jitter:       cfg.RetryDelay > 0,
		},
	}
}
