package mcumgr

import (
	"context"

	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/payload"
)

// OS info format characters. FormatHardwareID is answered only by firmware
// carrying the hardware-id hook.
const (
	FormatKernelName    = "s"
	FormatNodeName      = "n"
	FormatKernelRelease = "r"
	FormatKernelVersion = "v"
	FormatBuildDate     = "b"
	FormatMachine       = "m"
	FormatProcessor     = "p"
	FormatPlatform      = "i"
	FormatOS            = "o"
	FormatAll           = "a"
	FormatHardwareID    = "h"
)

// Echo asks the device to send msg back.
func (c *Client) Echo(ctx context.Context, msg string) (string, error) {
	resp, err := c.call(ctx, catalog.NameEcho, payload.Map{"d": payload.Str(msg)})
	if err != nil {
		return "", err
	}
	r, _ := resp.String("r")
	return r, nil
}

func (c *Client) TaskStats(ctx context.Context) (payload.Map, error) {
	return c.call(ctx, catalog.NameTaskStats, nil)
}

func (c *Client) DateTime(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, catalog.NameDateTime, nil)
	if err != nil {
		return "", err
	}
	dt, _ := resp.String("datetime")
	return dt, nil
}

func (c *Client) MgmtParams(ctx context.Context) (payload.Map, error) {
	return c.call(ctx, catalog.NameMgmtParams, nil)
}

// OSInfo returns the device's uname-style output for format; an empty
// format asks for everything.
func (c *Client) OSInfo(ctx context.Context, format string) (string, error) {
	if format == "" {
		format = FormatAll
	}
	resp, err := c.call(ctx, catalog.NameOSInfo, payload.Map{"format": payload.Str(format)})
	if err != nil {
		return "", err
	}
	out, _ := resp.String("output")
	return out, nil
}

// BootloaderInfo sends query only when it is non-empty. The reply is
// returned as received.
func (c *Client) BootloaderInfo(ctx context.Context, query string) (payload.Map, error) {
	req := payload.Map{}
	if query != "" {
		req["query"] = payload.Str(query)
	}
	return c.call(ctx, catalog.NameBootloaderInfo, req)
}

func (c *Client) Reset(ctx context.Context, force bool) (payload.Map, error) {
	req := payload.Map{}
	if force {
		req["force"] = payload.Int(1)
	}
	return c.call(ctx, catalog.NameReset, req)
}
