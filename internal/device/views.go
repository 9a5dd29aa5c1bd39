package device

import (
	"strings"

	"github.com/danmuck/smpctl/internal/mcumgr"
	"github.com/danmuck/smpctl/internal/protocol/payload"
)

// ImageSlot is one entry of an image-state reply.
type ImageSlot struct {
	Image     int64
	Slot      int64
	Version   string
	Hash      []byte
	Bootable  bool
	Pending   bool
	Confirmed bool
	Active    bool
	Permanent bool
}

// Flags lists the set state bits in display order.
func (s ImageSlot) Flags() []string {
	var out []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{s.Bootable, "bootable"},
		{s.Pending, "pending"},
		{s.Confirmed, "confirmed"},
		{s.Active, "active"},
		{s.Permanent, "permanent"},
	} {
		if f.set {
			out = append(out, f.name)
		}
	}
	return out
}

// ParseImageState reads the "images" list; entries that are not maps are
// skipped and missing fields keep zero values.
func ParseImageState(m payload.Map) []ImageSlot {
	items, _ := m.List("images")
	out := make([]ImageSlot, 0, len(items))
	for _, item := range items {
		img, ok := item.AsMap()
		if !ok {
			continue
		}
		slot := ImageSlot{Version: "unknown"}
		slot.Image, _ = img.Int("image")
		slot.Slot, _ = img.Int("slot")
		if v, ok := img.String("version"); ok {
			slot.Version = v
		}
		slot.Hash, _ = img.Bytes("hash")
		slot.Bootable, _ = img.Bool("bootable")
		slot.Pending, _ = img.Bool("pending")
		slot.Confirmed, _ = img.Bool("confirmed")
		slot.Active, _ = img.Bool("active")
		slot.Permanent, _ = img.Bool("permanent")
		out = append(out, slot)
	}
	return out
}

type Slot struct {
	Slot          int64
	Size          int64
	UploadImageID int64
	HasUploadID   bool
}

// SlotImage is one image entry of a slot-info reply.
type SlotImage struct {
	Image           int64
	MaxImageSize    int64
	HasMaxImageSize bool
	Slots           []Slot
}

func ParseSlotInfo(m payload.Map) []SlotImage {
	items, _ := m.List("images")
	out := make([]SlotImage, 0, len(items))
	for _, item := range items {
		img, ok := item.AsMap()
		if !ok {
			continue
		}
		var si SlotImage
		si.Image, _ = img.Int("image")
		si.MaxImageSize, si.HasMaxImageSize = img.Int("max_image_size")
		slots, _ := img.List("slots")
		for _, raw := range slots {
			sm, ok := raw.AsMap()
			if !ok {
				continue
			}
			var s Slot
			s.Slot, _ = sm.Int("slot")
			s.Size, _ = sm.Int("size")
			s.UploadImageID, s.HasUploadID = sm.Int("upload_image_id")
			si.Slots = append(si.Slots, s)
		}
		out = append(out, si)
	}
	return out
}

type TaskStat struct {
	Name      string
	Prio      int64
	State     int64
	StackUse  int64
	StackSize int64
}

// ParseTaskStats reads the "tasks" map sorted by task name.
func ParseTaskStats(m payload.Map) []TaskStat {
	tasks, _ := m.Map("tasks")
	out := make([]TaskStat, 0, len(tasks))
	for _, name := range tasks.Keys() {
		info, ok := tasks[name].AsMap()
		if !ok {
			continue
		}
		ts := TaskStat{Name: name}
		ts.Prio, _ = info.Int("prio")
		ts.State, _ = info.Int("state")
		ts.StackUse, _ = info.Int("stkuse")
		ts.StackSize, _ = info.Int("stksiz")
		out = append(out, ts)
	}
	return out
}

// HasStackInfo reports whether any task carries stack numbers.
func HasStackInfo(tasks []TaskStat) bool {
	for _, ts := range tasks {
		if ts.StackUse != 0 || ts.StackSize != 0 {
			return true
		}
	}
	return false
}

type Params struct {
	BufSize  int64
	BufCount int64
}

func ParseParams(m payload.Map) Params {
	var p Params
	p.BufSize, _ = m.Int("buf_size")
	p.BufCount, _ = m.Int("buf_count")
	return p
}

type BootloaderMode struct {
	Code        int64
	Name        string
	NoDowngrade bool
}

func ParseBootloaderMode(m payload.Map) BootloaderMode {
	code, ok := m.Int("mode")
	if !ok {
		code = mcumgr.ModeUnknown
	}
	noDowngrade, _ := m.Bool("no-downgrade")
	return BootloaderMode{Code: code, Name: mcumgr.ModeName(code), NoDowngrade: noDowngrade}
}

// OSFormat is the field order Collect asks for.
const OSFormat = mcumgr.FormatKernelName +
	mcumgr.FormatNodeName +
	mcumgr.FormatKernelRelease +
	mcumgr.FormatKernelVersion +
	mcumgr.FormatBuildDate +
	mcumgr.FormatMachine +
	mcumgr.FormatProcessor +
	mcumgr.FormatPlatform +
	mcumgr.FormatOS

// osFields is the token count of a full OSFormat reply: four single-word
// fields, a five-word build date, then four more.
const osFields = 13

// OSInfo is the parsed OSFormat reply. Parsed is false when the device
// answered with fewer tokens; Raw always holds the reply.
type OSInfo struct {
	Raw           string
	Parsed        bool
	Kernel        string
	Application   string
	GitHash       string
	KernelVersion string
	BuildDate     string
	Architecture  string
	Processor     string
	Board         string
	OS            string
}

func ParseOSInfo(raw string) OSInfo {
	info := OSInfo{Raw: raw}
	parts := strings.Fields(raw)
	if len(parts) < osFields {
		return info
	}
	info.Parsed = true
	info.Kernel = parts[0]
	info.Application = parts[1]
	info.GitHash = parts[2]
	info.KernelVersion = parts[3]
	info.BuildDate = strings.Join(parts[4:9], " ")
	info.Architecture = parts[9]
	info.Processor = parts[10]
	info.Board = parts[11]
	info.OS = parts[12]
	return info
}

const hwidPrefix = "hwid:"

// ParseHardwareID strips the hook's "hwid:" prefix and upper-cases the id.
func ParseHardwareID(raw string) string {
	if strings.HasPrefix(raw, hwidPrefix) {
		return strings.ToUpper(strings.TrimPrefix(raw, hwidPrefix))
	}
	return raw
}
