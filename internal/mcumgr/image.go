package mcumgr

import (
	"context"

	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/payload"
)

// ImageState returns the per-slot image list as received; flags stay
// booleans and hashes stay bytes.
func (c *Client) ImageState(ctx context.Context) (payload.Map, error) {
	return c.call(ctx, catalog.NameImageState, nil)
}

func (c *Client) SlotInfo(ctx context.Context) (payload.Map, error) {
	return c.call(ctx, catalog.NameSlotInfo, nil)
}
