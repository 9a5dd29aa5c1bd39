package mcumgr

import "fmt"

// MCUboot mode codes as reported by bootloader-info query "mode".
const (
	ModeUnknown         = -1
	ModeSingleApp       = 0
	ModeSwapScratch     = 1
	ModeOverwrite       = 2
	ModeSwapNoScratch   = 3
	ModeDirectXIP       = 4
	ModeDirectXIPRevert = 5
	ModeRAMLoader       = 6
	ModeFirmwareLoader  = 7
	ModeRAMLoadNetCore  = 8
	ModeSwapMove        = 9
)

var modeNames = map[int64]string{
	ModeUnknown:         "Unknown",
	ModeSingleApp:       "Single application",
	ModeSwapScratch:     "Swap using scratch partition",
	ModeOverwrite:       "Overwrite (upgrade-only)",
	ModeSwapNoScratch:   "Swap without scratch",
	ModeDirectXIP:       "Direct XIP without revert",
	ModeDirectXIPRevert: "Direct XIP with revert",
	ModeRAMLoader:       "RAM loader",
	ModeFirmwareLoader:  "Firmware loader",
	ModeRAMLoadNetCore:  "RAM load with network core",
	ModeSwapMove:        "Swap using move",
}

// ModeName renders a bootloader mode code for display.
func ModeName(code int64) string {
	if name, ok := modeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}
