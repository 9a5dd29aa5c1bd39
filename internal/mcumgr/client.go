// Package mcumgr is the typed SMP client: one method per supported
// command, each building its request, checking device-reported errors and
// validating the reply shape before handing it back.
package mcumgr

import (
	"context"
	"fmt"
	"time"

	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/danmuck/smpctl/internal/observability"
	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/payload"
	"github.com/danmuck/smpctl/internal/protocol/schema"
	"github.com/rs/zerolog"
)

// Caller performs one exchange. *session.Session satisfies it.
type Caller interface {
	Call(ctx context.Context, d catalog.Descriptor, req payload.Map) (payload.Map, error)
}

type sequencer interface {
	Seq() uint8
}

// Client is safe for sequential use only, like the Caller it wraps.
type Client struct {
	caller Caller
	logger zerolog.Logger
}

func New(caller Caller) *Client {
	return &Client{caller: caller, logger: logs.Logger()}
}

// WithLogger replaces the logger used for per-call lines.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger
	return c
}

func (c *Client) call(ctx context.Context, name string, req payload.Map) (payload.Map, error) {
	d := catalog.MustLookup(name)
	var seq uint8
	if s, ok := c.caller.(sequencer); ok {
		seq = s.Seq()
	}
	start := time.Now()
	resp, err := c.exchange(ctx, d, req)
	elapsed := time.Since(start)

	group := d.Group.String()
	command := catalog.CommandName(d.Group, d.Command)
	observability.RecordCall(group, command, protocol.Classify(err), elapsed)
	observability.LogCall(c.logger, group, command, seq, elapsed, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) exchange(ctx context.Context, d catalog.Descriptor, req payload.Map) (payload.Map, error) {
	if req == nil {
		req = payload.Map{}
	}
	if err := schema.ValidateRequest(d.Name, req); err != nil {
		return nil, err
	}
	resp, err := c.caller.Call(ctx, d, req)
	if err != nil {
		return nil, err
	}
	if err := remoteError(d.Name, resp); err != nil {
		return nil, err
	}
	if err := schema.ValidateResponse(d.Name, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// remoteError inspects the two ways a device reports failure: a bare
// non-zero "rc" or an "err" map carrying group and rc.
func remoteError(command string, m payload.Map) error {
	if v, ok := m.Get("rc"); ok {
		rc, isInt := v.AsInt()
		if !isInt {
			return fmt.Errorf("%w: %s: rc is %s, want int", protocol.ErrMalformedPayload, command, v.Kind())
		}
		if rc != 0 {
			return &protocol.RemoteError{Command: command, RC: rc}
		}
	}
	v, ok := m.Get("err")
	if !ok {
		return nil
	}
	errMap, isMap := v.AsMap()
	if !isMap {
		return fmt.Errorf("%w: %s: err is %s, want map", protocol.ErrMalformedPayload, command, v.Kind())
	}
	out := &protocol.RemoteError{Command: command}
	if rc, ok := errMap.Int("rc"); ok {
		out.RC = rc
	}
	if group, ok := errMap.Int("group"); ok {
		if group < 0 || group > 0xFFFF {
			return fmt.Errorf("%w: %s: err.group %d out of range", protocol.ErrMalformedPayload, command, group)
		}
		out.Group = uint16(group)
		out.HasGroup = true
	}
	return out
}
