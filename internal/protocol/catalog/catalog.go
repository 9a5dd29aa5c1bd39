package catalog

import (
	"fmt"
	"sort"

	"github.com/danmuck/smpctl/internal/protocol/frame"
)

// Group is a management group id.
type Group uint16

const (
	GroupOS       Group = 0
	GroupImage    Group = 1
	GroupStat     Group = 2
	GroupSettings Group = 3
	GroupLog      Group = 4
	GroupCrash    Group = 5
	GroupSplit    Group = 6
	GroupRun      Group = 7
	GroupFS       Group = 8
	GroupShell    Group = 9
	GroupBasic    Group = 63
)

var groupNames = map[Group]string{
	GroupOS:       "os",
	GroupImage:    "image",
	GroupStat:     "stat",
	GroupSettings: "settings",
	GroupLog:      "log",
	GroupCrash:    "crash",
	GroupSplit:    "split",
	GroupRun:      "run",
	GroupFS:       "fs",
	GroupShell:    "shell",
	GroupBasic:    "basic",
}

func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("group(%d)", uint16(g))
}

// OS group command ids.
const (
	OSEcho           uint8 = 0
	OSConsole        uint8 = 1
	OSTaskStat       uint8 = 2
	OSDateTime       uint8 = 4
	OSReset          uint8 = 5
	OSMgmtParams     uint8 = 6
	OSInfo           uint8 = 7
	OSBootloaderInfo uint8 = 8
)

// Image group command ids.
const (
	ImageState    uint8 = 0
	ImageUpload   uint8 = 1
	ImageFile     uint8 = 2
	ImageCoreList uint8 = 3
	ImageCoreLoad uint8 = 4
	ImageErase    uint8 = 5
	ImageSlotInfo uint8 = 6
)

var commandNames = map[Group]map[uint8]string{
	GroupOS: {
		OSEcho:           "echo",
		OSConsole:        "console",
		OSTaskStat:       "taskstat",
		OSDateTime:       "datetime",
		OSReset:          "reset",
		OSMgmtParams:     "mcumgr_params",
		OSInfo:           "info",
		OSBootloaderInfo: "bootloader_info",
	},
	GroupImage: {
		ImageState:    "state",
		ImageUpload:   "upload",
		ImageFile:     "file",
		ImageCoreList: "corelist",
		ImageCoreLoad: "coreload",
		ImageErase:    "erase",
		ImageSlotInfo: "slot_info",
	},
}

// CommandName renders a group/command pair for logs and metric labels.
func CommandName(g Group, id uint8) string {
	if byID, ok := commandNames[g]; ok {
		if name, ok := byID[id]; ok {
			return name
		}
	}
	return fmt.Sprintf("cmd(%d)", id)
}

// Descriptor binds a supported call to its wire coordinates.
type Descriptor struct {
	Name    string
	Group   Group
	Command uint8
	Op      frame.Op
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s/%s %s)", d.Name, d.Group, CommandName(d.Group, d.Command), d.Op)
}

// Names of the supported calls.
const (
	NameEcho           = "echo"
	NameTaskStats      = "task-stats"
	NameDateTime       = "datetime"
	NameMgmtParams     = "mcumgr-params"
	NameOSInfo         = "os-info"
	NameBootloaderInfo = "bootloader-info"
	NameReset          = "reset"
	NameImageState     = "image-state"
	NameSlotInfo       = "slot-info"
)

var table = map[string]Descriptor{
	NameEcho:           {Name: NameEcho, Group: GroupOS, Command: OSEcho, Op: frame.OpWrite},
	NameTaskStats:      {Name: NameTaskStats, Group: GroupOS, Command: OSTaskStat, Op: frame.OpRead},
	NameDateTime:       {Name: NameDateTime, Group: GroupOS, Command: OSDateTime, Op: frame.OpRead},
	NameMgmtParams:     {Name: NameMgmtParams, Group: GroupOS, Command: OSMgmtParams, Op: frame.OpRead},
	NameOSInfo:         {Name: NameOSInfo, Group: GroupOS, Command: OSInfo, Op: frame.OpRead},
	NameBootloaderInfo: {Name: NameBootloaderInfo, Group: GroupOS, Command: OSBootloaderInfo, Op: frame.OpRead},
	NameReset:          {Name: NameReset, Group: GroupOS, Command: OSReset, Op: frame.OpWrite},
	NameImageState:     {Name: NameImageState, Group: GroupImage, Command: ImageState, Op: frame.OpRead},
	NameSlotInfo:       {Name: NameSlotInfo, Group: GroupImage, Command: ImageSlotInfo, Op: frame.OpRead},
}

func Lookup(name string) (Descriptor, bool) {
	d, ok := table[name]
	return d, ok
}

// MustLookup panics on names missing from the table.
func MustLookup(name string) Descriptor {
	d, ok := table[name]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown command %q", name))
	}
	return d
}

// Names returns the supported call names in sorted order.
func Names() []string {
	out := make([]string, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
