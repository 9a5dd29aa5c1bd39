package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrEncoding         = errors.New("protocol: encoding error")
	ErrMalformedPayload = errors.New("protocol: malformed payload")
	ErrTruncatedFrame   = errors.New("protocol: truncated frame")
	ErrNoResponse       = errors.New("protocol: no response")
	ErrSequenceMismatch = errors.New("protocol: sequence mismatch")
	ErrSessionClosed    = errors.New("protocol: session closed")
	ErrTransport        = errors.New("protocol: transport failure")
	ErrRemote           = errors.New("protocol: remote error")
)

// SequenceMismatchError is returned when a reply carries a sequence number
// other than the outstanding request's.
type SequenceMismatchError struct {
	Expected uint8
	Got      uint8
}

func (e *SequenceMismatchError) Error() string {
	return fmt.Sprintf("protocol: sequence mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *SequenceMismatchError) Unwrap() error { return ErrSequenceMismatch }

// RemoteError is a command-level failure reported by the device, either as a
// bare non-zero "rc" or as an "err" map carrying group and rc.
type RemoteError struct {
	Command  string
	RC       int64
	Group    uint16
	HasGroup bool
}

func (e *RemoteError) Error() string {
	prefix := "protocol: remote error"
	if e.Command != "" {
		prefix = fmt.Sprintf("protocol: %s: remote error", e.Command)
	}
	if e.HasGroup {
		return fmt.Sprintf("%s: group=%d rc=%d", prefix, e.Group, e.RC)
	}
	return fmt.Sprintf("%s: rc=%d", prefix, e.RC)
}

func (e *RemoteError) Unwrap() error { return ErrRemote }

// Outcome labels returned by Classify.
const (
	OutcomeOK               = "ok"
	OutcomeEncoding         = "encoding"
	OutcomeMalformed        = "malformed"
	OutcomeTruncated        = "truncated"
	OutcomeNoResponse       = "no_response"
	OutcomeSequenceMismatch = "sequence_mismatch"
	OutcomeSessionClosed    = "session_closed"
	OutcomeTransport        = "transport"
	OutcomeRemote           = "remote"
	OutcomeUnknown          = "unknown"
)

// Classify maps err onto a stable outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrRemote):
		return OutcomeRemote
	case errors.Is(err, ErrNoResponse):
		return OutcomeNoResponse
	case errors.Is(err, ErrSequenceMismatch):
		return OutcomeSequenceMismatch
	case errors.Is(err, ErrTruncatedFrame):
		return OutcomeTruncated
	case errors.Is(err, ErrMalformedPayload):
		return OutcomeMalformed
	case errors.Is(err, ErrEncoding):
		return OutcomeEncoding
	case errors.Is(err, ErrSessionClosed):
		return OutcomeSessionClosed
	case errors.Is(err, ErrTransport):
		return OutcomeTransport
	default:
		return OutcomeUnknown
	}
}
