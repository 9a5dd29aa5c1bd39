package device

import (
	"context"
	"fmt"
	"testing"

	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/danmuck/smpctl/internal/protocol/payload"
	"github.com/danmuck/smpctl/internal/retry"
	"github.com/danmuck/smpctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const fullOSInfo = "Zephyr flex_io 3f2a9c1 v4.1.0 Wed Dec 17 17:05:03 2025 arm cortex-m7 mr_mcxn_t1 Zephyr"

type fakeDevice struct {
	echoErr      error
	osInfoFails  int
	osInfoCalls  int
	hwid         string
	hwidErr      error
	bootloader   payload.Map
	mode         payload.Map
	modeQueried  bool
	imageState   payload.Map
	imageErr     error
	slotInfo     payload.Map
	params       payload.Map
	tasks        payload.Map
	tasksQueried bool
}

func (f *fakeDevice) Echo(_ context.Context, msg string) (string, error) {
	if f.echoErr != nil {
		return "", f.echoErr
	}
	return msg, nil
}

func (f *fakeDevice) OSInfo(_ context.Context, format string) (string, error) {
	if format == "h" {
		return f.hwid, f.hwidErr
	}
	f.osInfoCalls++
	if f.osInfoCalls <= f.osInfoFails {
		return "", fmt.Errorf("%w: os-info", protocol.ErrNoResponse)
	}
	return fullOSInfo, nil
}

func (f *fakeDevice) BootloaderInfo(_ context.Context, query string) (payload.Map, error) {
	if query == "mode" {
		f.modeQueried = true
		return f.mode, nil
	}
	return f.bootloader, nil
}

func (f *fakeDevice) ImageState(context.Context) (payload.Map, error) { return f.imageState, f.imageErr }

func (f *fakeDevice) SlotInfo(context.Context) (payload.Map, error) { return f.slotInfo, nil }

func (f *fakeDevice) MgmtParams(context.Context) (payload.Map, error) { return f.params, nil }

func (f *fakeDevice) TaskStats(context.Context) (payload.Map, error) {
	f.tasksQueried = true
	return f.tasks, nil
}

func healthyDevice() *fakeDevice {
	return &fakeDevice{
		hwid:       "hwid:0a1b2c3d4e5f",
		bootloader: payload.Map{"bootloader": payload.Str("MCUboot")},
		mode:       payload.Map{"mode": payload.Int(9), "no-downgrade": payload.Bool(true)},
		imageState: payload.Map{"images": payload.List(payload.MapOf(payload.Map{
			"image":     payload.Int(0),
			"slot":      payload.Int(0),
			"version":   payload.Str("1.2.3"),
			"hash":      payload.Bytes([]byte{0xAB, 0xCD}),
			"bootable":  payload.Bool(true),
			"confirmed": payload.Bool(true),
			"active":    payload.Bool(true),
		}))},
		slotInfo: payload.Map{"images": payload.List(payload.MapOf(payload.Map{
			"image":          payload.Int(0),
			"max_image_size": payload.Int(491520),
			"slots": payload.List(
				payload.MapOf(payload.Map{"slot": payload.Int(0), "size": payload.Int(524288)}),
				payload.MapOf(payload.Map{"slot": payload.Int(1), "size": payload.Int(524288), "upload_image_id": payload.Int(1)}),
			),
		}))},
		params: payload.Map{"buf_size": payload.Int(2475), "buf_count": payload.Int(4)},
		tasks: payload.Map{"tasks": payload.MapOf(payload.Map{
			"main": payload.MapOf(payload.Map{"prio": payload.Int(0), "state": payload.Int(1), "stkuse": payload.Int(512), "stksiz": payload.Int(2048)}),
			"idle": payload.MapOf(payload.Map{"prio": payload.Int(15), "state": payload.Int(0)}),
		})},
	}
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.OSInfoRetry = retry.Config{Attempts: 3}
	return opts
}

func TestCollectHealthyDevice(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	r, err := Collect(context.Background(), dev, fastOptions())
	require.NoError(t, err)
	require.Empty(t, r.Failed())

	require.Equal(t, DefaultEchoMessage, r.Echo)
	require.Equal(t, "0A1B2C3D4E5F", r.HardwareID)
	require.Equal(t, "MCUboot", r.Bootloader)
	require.NotNil(t, r.Mode)
	require.Equal(t, "Swap using move", r.Mode.Name)
	require.True(t, r.Mode.NoDowngrade)

	require.True(t, r.OS.Parsed)
	require.Equal(t, "flex_io", r.OS.Application)
	require.Equal(t, "Wed Dec 17 17:05:03 2025", r.OS.BuildDate)
	require.Equal(t, "mr_mcxn_t1", r.OS.Board)

	require.Len(t, r.Images, 1)
	require.Equal(t, []string{"bootable", "confirmed", "active"}, r.Images[0].Flags())
	require.Equal(t, []byte{0xAB, 0xCD}, r.Images[0].Hash)

	require.Len(t, r.Slots, 1)
	require.True(t, r.Slots[0].HasMaxImageSize)
	require.Len(t, r.Slots[0].Slots, 2)
	require.True(t, r.Slots[0].Slots[1].HasUploadID)

	require.Equal(t, Params{BufSize: 2475, BufCount: 4}, r.Params)
	require.False(t, dev.tasksQueried)
	require.Empty(t, r.Tasks)
}

func TestCollectVerboseAddsTasks(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	opts := fastOptions()
	opts.Verbose = true
	r, err := Collect(context.Background(), dev, opts)
	require.NoError(t, err)
	require.True(t, dev.tasksQueried)
	require.Len(t, r.Tasks, 2)
	require.Equal(t, "idle", r.Tasks[0].Name)
	require.EqualValues(t, 512, r.Tasks[1].StackUse)
	require.True(t, HasStackInfo(r.Tasks))
}

func TestCollectEchoFailureAborts(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	dev.echoErr = fmt.Errorf("%w: echo", protocol.ErrNoResponse)
	r, err := Collect(context.Background(), dev, fastOptions())
	require.ErrorIs(t, err, protocol.ErrNoResponse)
	require.NotNil(t, r)
	require.Equal(t, []Section{SectionEcho}, r.Failed())
	require.Zero(t, dev.osInfoCalls)
}

func TestCollectRetriesOSInfo(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	dev.osInfoFails = 2
	r, err := Collect(context.Background(), dev, fastOptions())
	require.NoError(t, err)
	require.Equal(t, 3, dev.osInfoCalls)
	require.True(t, r.OS.Parsed)
}

func TestCollectOSInfoGivesUpAfterAttempts(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	dev.osInfoFails = 10
	r, err := Collect(context.Background(), dev, fastOptions())
	require.NoError(t, err)
	require.Equal(t, 3, dev.osInfoCalls)
	require.ErrorIs(t, r.Err(SectionOSInfo), protocol.ErrNoResponse)
	require.False(t, r.OS.Parsed)
}

func TestCollectSectionFailuresAreIndependent(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	dev.hwidErr = &protocol.RemoteError{Command: "os-info", RC: 8}
	dev.imageErr = &protocol.RemoteError{Command: "image-state", RC: 1}
	r, err := Collect(context.Background(), dev, fastOptions())
	require.NoError(t, err)
	require.Equal(t, []Section{SectionHardwareID, SectionImageState}, r.Failed())
	require.Empty(t, r.HardwareID)
	require.Nil(t, r.Images)
	require.Len(t, r.Slots, 1)
}

func TestCollectSkipsModeForOtherBootloaders(t *testing.T) {
	testlog.Start(t)
	dev := healthyDevice()
	dev.bootloader = payload.Map{}
	r, err := Collect(context.Background(), dev, fastOptions())
	require.NoError(t, err)
	require.Equal(t, "Unknown", r.Bootloader)
	require.Nil(t, r.Mode)
	require.False(t, dev.modeQueried)
}

func TestParseOSInfoShortReplyKeepsRaw(t *testing.T) {
	info := ParseOSInfo("Zephyr flex_io")
	require.False(t, info.Parsed)
	require.Equal(t, "Zephyr flex_io", info.Raw)
}

func TestParseHardwareID(t *testing.T) {
	require.Equal(t, "DEADBEEF", ParseHardwareID("hwid:deadbeef"))
	require.Equal(t, "board-7", ParseHardwareID("board-7"))
}

func TestParseBootloaderModeMissingCode(t *testing.T) {
	mode := ParseBootloaderMode(payload.Map{})
	require.EqualValues(t, -1, mode.Code)
	require.Equal(t, "Unknown", mode.Name)
}

func TestParseImageStateDefaults(t *testing.T) {
	slots := ParseImageState(payload.Map{"images": payload.List(
		payload.MapOf(payload.Map{"slot": payload.Int(1)}),
		payload.Int(3),
	)})
	require.Len(t, slots, 1)
	require.Equal(t, "unknown", slots[0].Version)
	require.EqualValues(t, 1, slots[0].Slot)
	require.Empty(t, slots[0].Flags())
}
