package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/smpctl/internal/protocol/frame"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// DefaultPort is the SMP UDP port devices listen on.
const DefaultPort = 1337

// Config defines per-session transport defaults.
type Config struct {
	// Timeout bounds each Call from send to reply.
	Timeout time.Duration
	// Version is stamped into every request header.
	Version uint8
	// MaxDatagram caps both the request size and the receive buffer.
	MaxDatagram int
}

func DefaultConfig() Config {
	return Config{
		Timeout:     5 * time.Second,
		Version:     frame.Version2,
		MaxDatagram: frame.MaxFrameLen,
	}
}

func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrInvalidConfig)
	}
	if c.Version > 3 {
		return fmt.Errorf("%w: version %d exceeds 2 bits", ErrInvalidConfig, c.Version)
	}
	if c.MaxDatagram < frame.HeaderLen || c.MaxDatagram > frame.MaxFrameLen {
		return fmt.Errorf("%w: max datagram %d outside [%d,%d]", ErrInvalidConfig, c.MaxDatagram, frame.HeaderLen, frame.MaxFrameLen)
	}
	return nil
}

// WithDefaultPort appends DefaultPort when address carries no port.
func WithDefaultPort(address string) string {
	address = strings.TrimSpace(address)
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	host := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(DefaultPort))
}
