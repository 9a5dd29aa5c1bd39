package schema

import (
	"fmt"

	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/payload"
)

// Direction says which half of an exchange a check applies to.
type Direction uint8

const (
	Request Direction = iota
	Response
)

func (d Direction) String() string {
	if d == Request {
		return "request"
	}
	return "response"
}

// Requirement constrains one key of a payload map. Optional keys are only
// type-checked when present. Elem, when set, constrains every list item.
type Requirement struct {
	Key      string
	Kind     payload.Kind
	Required bool
	Elem     payload.Kind
}

type ValidationError struct {
	Command   string
	Direction Direction
	Key       string
	Reason    string
}

func (e ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("schema: %s %s: %s", e.Command, e.Direction, e.Reason)
	}
	return fmt.Sprintf("schema: %s %s key=%q: %s", e.Command, e.Direction, e.Key, e.Reason)
}

// Unwrap ties request failures to ErrEncoding and response failures to
// ErrMalformedPayload.
func (e ValidationError) Unwrap() error {
	if e.Direction == Request {
		return protocol.ErrEncoding
	}
	return protocol.ErrMalformedPayload
}

var requests = map[string][]Requirement{
	catalog.NameEcho:           {{Key: "d", Kind: payload.KindString, Required: true}},
	catalog.NameTaskStats:      nil,
	catalog.NameDateTime:       nil,
	catalog.NameMgmtParams:     nil,
	catalog.NameOSInfo:         {{Key: "format", Kind: payload.KindString}},
	catalog.NameBootloaderInfo: {{Key: "query", Kind: payload.KindString}},
	catalog.NameReset:          {{Key: "force", Kind: payload.KindInt}},
	catalog.NameImageState:     nil,
	catalog.NameSlotInfo:       nil,
}

var responses = map[string][]Requirement{
	catalog.NameEcho:      {{Key: "r", Kind: payload.KindString, Required: true}},
	catalog.NameTaskStats: {{Key: "tasks", Kind: payload.KindMap}},
	catalog.NameDateTime:  {{Key: "datetime", Kind: payload.KindString, Required: true}},
	catalog.NameMgmtParams: {
		{Key: "buf_size", Kind: payload.KindInt},
		{Key: "buf_count", Kind: payload.KindInt},
	},
	catalog.NameOSInfo: {{Key: "output", Kind: payload.KindString, Required: true}},
	catalog.NameBootloaderInfo: {
		{Key: "bootloader", Kind: payload.KindString},
		{Key: "mode", Kind: payload.KindInt},
		{Key: "no-downgrade", Kind: payload.KindBool},
	},
	catalog.NameReset: nil,
	catalog.NameImageState: {
		{Key: "images", Kind: payload.KindList, Elem: payload.KindMap},
		{Key: "splitStatus", Kind: payload.KindInt},
	},
	catalog.NameSlotInfo: {{Key: "images", Kind: payload.KindList, Elem: payload.KindMap}},
}

// Requirements returns the checks for a command; ok is false for names the
// catalog does not carry.
func Requirements(command string, dir Direction) ([]Requirement, bool) {
	table := responses
	if dir == Request {
		table = requests
	}
	reqs, ok := table[command]
	return reqs, ok
}

func ValidateRequest(command string, m payload.Map) error {
	return validate(command, Request, m)
}

func ValidateResponse(command string, m payload.Map) error {
	return validate(command, Response, m)
}

// validate enforces required keys and key kinds. Unknown keys are ignored.
func validate(command string, dir Direction, m payload.Map) error {
	logs.Tracef("schema.Validate command=%s direction=%s keys=%d", command, dir, len(m))
	reqs, ok := Requirements(command, dir)
	if !ok {
		logs.Errf("schema.Validate unknown command=%s", command)
		return ValidationError{Command: command, Direction: dir, Reason: "unknown command"}
	}
	for _, req := range reqs {
		v, found := m.Get(req.Key)
		if !found {
			if !req.Required {
				continue
			}
			logs.Errf("schema.Validate missing key command=%s direction=%s key=%s", command, dir, req.Key)
			return ValidationError{Command: command, Direction: dir, Key: req.Key, Reason: "missing required key"}
		}
		if v.Kind() != req.Kind {
			logs.Errf(
				"schema.Validate type mismatch command=%s direction=%s key=%s got=%s want=%s",
				command,
				dir,
				req.Key,
				v.Kind(),
				req.Kind,
			)
			return ValidationError{
				Command:   command,
				Direction: dir,
				Key:       req.Key,
				Reason:    fmt.Sprintf("type mismatch: got %s, want %s", v.Kind(), req.Kind),
			}
		}
		if req.Elem == payload.KindInvalid {
			continue
		}
		items, _ := v.AsList()
		for i, item := range items {
			if item.Kind() != req.Elem {
				logs.Errf("schema.Validate element mismatch command=%s key=%s index=%d got=%s", command, req.Key, i, item.Kind())
				return ValidationError{
					Command:   command,
					Direction: dir,
					Key:       req.Key,
					Reason:    fmt.Sprintf("item %d: got %s, want %s", i, item.Kind(), req.Elem),
				}
			}
		}
	}
	logs.Debugf("schema.Validate ok command=%s direction=%s", command, dir)
	return nil
}
