package retry

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/frame"
	"github.com/danmuck/smpctl/internal/protocol/payload"
	"github.com/danmuck/smpctl/internal/protocol/session"
	"github.com/danmuck/smpctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

// slowFirstDevice answers requests in order, holding the reply to seq 0
// for delay.
func slowFirstDevice(t *testing.T, delay time.Duration) (string, func() []uint8) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var seqs []uint8
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, frame.MaxFrameLen)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			h, _, err := frame.DecodePacket(buf[:n])
			if err != nil {
				continue
			}
			mu.Lock()
			seqs = append(seqs, h.Seq)
			mu.Unlock()
			if h.Seq == 0 {
				time.Sleep(delay)
			}
			body, err := payload.Encode(payload.Map{"output": payload.Str("Zephyr flex_io")})
			if err != nil {
				continue
			}
			h.Op = h.Op.Response()
			pkt, err := frame.EncodePacket(h, body)
			if err != nil {
				continue
			}
			_, _ = conn.WriteTo(pkt, from)
		}
	}()
	t.Cleanup(func() {
		_ = conn.Close()
		wg.Wait()
	})
	return conn.LocalAddr().String(), func() []uint8 {
		mu.Lock()
		defer mu.Unlock()
		return append([]uint8(nil), seqs...)
	}
}

func TestDoRecoversWhenFirstReplyArrivesLate(t *testing.T) {
	testlog.Start(t)
	addr, seen := slowFirstDevice(t, 400*time.Millisecond)

	cfg := session.DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	sess, err := session.Open(context.Background(), addr, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	d := catalog.MustLookup(catalog.NameOSInfo)
	got, err := Do(context.Background(), fastConfig(4), "os-info", func(ctx context.Context) (string, error) {
		resp, err := sess.Call(ctx, d, payload.Map{"format": payload.Str("snrvbmpio")})
		if err != nil {
			return "", err
		}
		out, _ := resp.String("output")
		return out, nil
	})
	require.NoError(t, err)
	require.Equal(t, "Zephyr flex_io", got)

	seqs := seen()
	require.GreaterOrEqual(t, len(seqs), 3)
	for i, seq := range seqs {
		require.EqualValues(t, i, seq)
	}
}
