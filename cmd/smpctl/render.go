package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/smpctl/internal/device"
	"github.com/danmuck/smpctl/internal/protocol/payload"
)

const ruleWidth = 60

func formatBytes(size int64) string {
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f TB", v)
}

func formatHash(b []byte) string {
	return hex.EncodeToString(b)
}

func renderSection(w io.Writer, title string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\n %s\n%s\n", rule, title, rule)
}

// renderReport prints every collected section; failed sections print the
// recorded error in place of their contents.
func renderReport(w io.Writer, address string, r *device.Report) {
	renderSection(w, "Connection Test")
	if err := r.Err(device.SectionEcho); err != nil {
		fmt.Fprintf(w, "Echo failed: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Echo response: %s\n", r.Echo)
	fmt.Fprintln(w, "Device is responding to SMP commands")

	renderSection(w, "Device Identity")
	fmt.Fprintf(w, "Address:     %s\n", address)
	if err := r.Err(device.SectionHardwareID); err != nil {
		fmt.Fprintf(w, "Hardware ID: (unavailable: %v)\n", err)
	} else {
		fmt.Fprintf(w, "Hardware ID: %s\n", r.HardwareID)
	}

	renderSection(w, "Bootloader Information")
	if err := r.Err(device.SectionBootloader); err != nil {
		fmt.Fprintf(w, "Could not retrieve bootloader info: %v\n", err)
	} else {
		renderBootloader(w, r.Bootloader, r.Mode)
		if err := r.Err(device.SectionBootloaderMode); err != nil {
			fmt.Fprintf(w, "  (Could not query mode: %v)\n", err)
		}
	}

	renderSection(w, "OS/Application Information")
	if err := r.Err(device.SectionOSInfo); err != nil {
		fmt.Fprintf(w, "Could not retrieve OS info: %v\n", err)
	} else {
		renderOSInfo(w, r.OS)
	}

	renderSection(w, "Image State")
	if err := r.Err(device.SectionImageState); err != nil {
		fmt.Fprintf(w, "Could not retrieve image state: %v\n", err)
	} else {
		renderImages(w, r.Images)
	}

	renderSection(w, "Slot Information")
	if err := r.Err(device.SectionSlotInfo); err != nil {
		fmt.Fprintf(w, "Could not retrieve slot info: %v\n", err)
	} else {
		renderSlots(w, r.Slots)
	}

	renderSection(w, "MCUmgr Parameters")
	if err := r.Err(device.SectionParams); err != nil {
		fmt.Fprintf(w, "Could not retrieve MCUmgr params: %v\n", err)
	} else {
		renderParams(w, r.Params)
	}

	if r.Tasks == nil && r.Err(device.SectionTasks) == nil {
		return
	}
	renderSection(w, "Task Statistics")
	if err := r.Err(device.SectionTasks); err != nil {
		fmt.Fprintf(w, "Could not retrieve task stats: %v\n", err)
		return
	}
	renderTasks(w, r.Tasks)
}

func renderBootloader(w io.Writer, name string, mode *device.BootloaderMode) {
	fmt.Fprintf(w, "Bootloader: %s\n", name)
	if mode == nil {
		return
	}
	fmt.Fprintf(w, "Mode: %s\n", mode.Name)
	if mode.NoDowngrade {
		fmt.Fprintln(w, "Downgrade Prevention: Enabled")
	}
}

func renderOSInfo(w io.Writer, info device.OSInfo) {
	if !info.Parsed {
		fmt.Fprintln(w, info.Raw)
		return
	}
	for _, row := range [][2]string{
		{"Kernel:", info.Kernel},
		{"Application:", info.Application},
		{"Git Hash:", info.GitHash},
		{"Kernel Version:", info.KernelVersion},
		{"Architecture:", info.Architecture},
		{"Processor:", info.Processor},
		{"Board:", info.Board},
		{"OS:", info.OS},
		{"Build Date:", info.BuildDate},
	} {
		fmt.Fprintf(w, "%-18s%s\n", row[0], row[1])
	}
}

func renderImages(w io.Writer, images []device.ImageSlot) {
	if len(images) == 0 {
		fmt.Fprintln(w, "No images found")
		return
	}
	for _, img := range images {
		fmt.Fprintf(w, "\nImage %d, Slot %d:\n", img.Image, img.Slot)
		fmt.Fprintf(w, "  Version: %s\n", img.Version)
		if len(img.Hash) > 0 {
			fmt.Fprintf(w, "  Hash: %s\n", formatHash(img.Hash))
		}
		if flags := img.Flags(); len(flags) > 0 {
			fmt.Fprintf(w, "  Flags: %s\n", strings.Join(flags, ", "))
		}
	}
}

func renderSlots(w io.Writer, images []device.SlotImage) {
	for _, img := range images {
		fmt.Fprintf(w, "\nImage %d:\n", img.Image)
		if img.HasMaxImageSize {
			fmt.Fprintf(w, "  Max image size: %s\n", formatBytes(img.MaxImageSize))
		}
		for _, s := range img.Slots {
			fmt.Fprintf(w, "  Slot %d: %s\n", s.Slot, formatBytes(s.Size))
			if s.HasUploadID {
				fmt.Fprintf(w, "    Upload ID: %d\n", s.UploadImageID)
			}
		}
	}
}

func renderParams(w io.Writer, p device.Params) {
	fmt.Fprintf(w, "Buffer size: %s\n", formatBytes(p.BufSize))
	fmt.Fprintf(w, "Buffer count: %d\n", p.BufCount)
}

func renderTasks(w io.Writer, tasks []device.TaskStat) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No task statistics available")
		return
	}
	if !device.HasStackInfo(tasks) {
		fmt.Fprintf(w, "%-24s %5s %6s\n", "Task", "Prio", "State")
		fmt.Fprintln(w, strings.Repeat("-", 39))
		for _, ts := range tasks {
			fmt.Fprintf(w, "%-24s %5d %6d\n", ts.Name, ts.Prio, ts.State)
		}
		return
	}
	fmt.Fprintf(w, "%-24s %5s %6s %10s %10s\n", "Task", "Prio", "State", "Stack Use", "Stack Size")
	fmt.Fprintln(w, strings.Repeat("-", 59))
	for _, ts := range tasks {
		fmt.Fprintf(w, "%-24s %5d %6d %10d %10d\n", ts.Name, ts.Prio, ts.State, ts.StackUse, ts.StackSize)
	}
}

// renderMap prints a raw reply one key per line in key order.
func renderMap(w io.Writer, m payload.Map) {
	for _, k := range m.Keys() {
		v := m[k]
		if b, ok := v.AsBytes(); ok {
			fmt.Fprintf(w, "%s: %s\n", k, formatHash(b))
			continue
		}
		if s, ok := v.AsString(); ok {
			fmt.Fprintf(w, "%s: %s\n", k, s)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", k, v.String())
	}
}
