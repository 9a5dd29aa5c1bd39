// Package device assembles a full device report from individual SMP
// queries. Each section fails on its own; only an unanswered echo stops the
// report.
package device

import (
	"context"
	"fmt"

	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/danmuck/smpctl/internal/mcumgr"
	"github.com/danmuck/smpctl/internal/observability"
	"github.com/danmuck/smpctl/internal/protocol/payload"
	"github.com/danmuck/smpctl/internal/retry"
)

// Querier is the subset of *mcumgr.Client a report needs.
type Querier interface {
	Echo(ctx context.Context, msg string) (string, error)
	OSInfo(ctx context.Context, format string) (string, error)
	BootloaderInfo(ctx context.Context, query string) (payload.Map, error)
	ImageState(ctx context.Context) (payload.Map, error)
	SlotInfo(ctx context.Context) (payload.Map, error)
	MgmtParams(ctx context.Context) (payload.Map, error)
	TaskStats(ctx context.Context) (payload.Map, error)
}

var _ Querier = (*mcumgr.Client)(nil)

type Section string

const (
	SectionEcho           Section = "echo"
	SectionHardwareID     Section = "hardware-id"
	SectionBootloader     Section = "bootloader"
	SectionBootloaderMode Section = "bootloader-mode"
	SectionOSInfo         Section = "os-info"
	SectionImageState     Section = "image-state"
	SectionSlotInfo       Section = "slot-info"
	SectionParams         Section = "mcumgr-params"
	SectionTasks          Section = "task-stats"
)

const (
	DefaultEchoMessage = "smpctl device info"
	bootloaderMCUboot  = "MCUboot"
)

type Options struct {
	// Verbose adds task statistics.
	Verbose     bool
	EchoMessage string
	// OSInfoRetry governs the full OS info query, which devices drop more
	// often than the others.
	OSInfoRetry retry.Config
}

func DefaultOptions() Options {
	return Options{
		EchoMessage: DefaultEchoMessage,
		OSInfoRetry: retry.DefaultConfig(),
	}
}

type Report struct {
	Echo       string
	HardwareID string
	Bootloader string
	Mode       *BootloaderMode
	OS         OSInfo
	Images     []ImageSlot
	Slots      []SlotImage
	Params     Params
	Tasks      []TaskStat

	errs map[Section]error
}

// Err returns the failure recorded for section, if any.
func (r *Report) Err(section Section) error {
	return r.errs[section]
}

// Failed lists sections that recorded an error, in collection order.
func (r *Report) Failed() []Section {
	var out []Section
	for _, s := range []Section{
		SectionEcho, SectionHardwareID, SectionBootloader, SectionBootloaderMode,
		SectionOSInfo, SectionImageState, SectionSlotInfo, SectionParams, SectionTasks,
	} {
		if r.errs[s] != nil {
			out = append(out, s)
		}
	}
	return out
}

func (r *Report) record(section Section, err error) {
	observability.RecordReportSection(string(section), err == nil)
	if err == nil {
		return
	}
	logs.Warnf("device.Collect section=%s err=%v", section, err)
	r.errs[section] = err
}

// Collect queries every section in order. The returned error is non-nil
// only when the device does not answer the initial echo; the partial
// report is returned alongside it.
func Collect(ctx context.Context, q Querier, opts Options) (*Report, error) {
	if opts.EchoMessage == "" {
		opts.EchoMessage = DefaultEchoMessage
	}
	r := &Report{errs: map[Section]error{}}

	echo, err := q.Echo(ctx, opts.EchoMessage)
	r.record(SectionEcho, err)
	if err != nil {
		return r, fmt.Errorf("device: echo: %w", err)
	}
	r.Echo = echo

	hwid, err := q.OSInfo(ctx, mcumgr.FormatHardwareID)
	r.record(SectionHardwareID, err)
	if err == nil {
		r.HardwareID = ParseHardwareID(hwid)
	}

	collectBootloader(ctx, q, r)

	raw, err := retry.Do(ctx, opts.OSInfoRetry, string(SectionOSInfo), func(ctx context.Context) (string, error) {
		return q.OSInfo(ctx, OSFormat)
	})
	r.record(SectionOSInfo, err)
	if err == nil {
		r.OS = ParseOSInfo(raw)
	}

	state, err := q.ImageState(ctx)
	r.record(SectionImageState, err)
	if err == nil {
		r.Images = ParseImageState(state)
	}

	slots, err := q.SlotInfo(ctx)
	r.record(SectionSlotInfo, err)
	if err == nil {
		r.Slots = ParseSlotInfo(slots)
	}

	params, err := q.MgmtParams(ctx)
	r.record(SectionParams, err)
	if err == nil {
		r.Params = ParseParams(params)
	}

	if opts.Verbose {
		stats, err := q.TaskStats(ctx)
		r.record(SectionTasks, err)
		if err == nil {
			r.Tasks = ParseTaskStats(stats)
		}
	}

	logs.Infof("device.Collect done failed_sections=%d", len(r.errs))
	return r, nil
}

func collectBootloader(ctx context.Context, q Querier, r *Report) {
	info, err := q.BootloaderInfo(ctx, "")
	r.record(SectionBootloader, err)
	if err != nil {
		return
	}
	r.Bootloader = "Unknown"
	if name, ok := info.String("bootloader"); ok {
		r.Bootloader = name
	}
	if r.Bootloader != bootloaderMCUboot {
		return
	}
	modeInfo, err := q.BootloaderInfo(ctx, "mode")
	r.record(SectionBootloaderMode, err)
	if err != nil {
		return
	}
	mode := ParseBootloaderMode(modeInfo)
	r.Mode = &mode
}
