package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/danmuck/smpctl/internal/protocol/catalog"
	"github.com/danmuck/smpctl/internal/protocol/payload"
	"github.com/danmuck/smpctl/internal/testutil/testlog"
)

func TestEveryCatalogCommandHasShapes(t *testing.T) {
	testlog.Start(t)
	for _, name := range catalog.Names() {
		if _, ok := Requirements(name, Request); !ok {
			t.Fatalf("missing request shape for %s", name)
		}
		if _, ok := Requirements(name, Response); !ok {
			t.Fatalf("missing response shape for %s", name)
		}
	}
}

func TestValidateEchoRequest(t *testing.T) {
	testlog.Start(t)
	if err := ValidateRequest(catalog.NameEcho, payload.Map{"d": payload.Str("ping")}); err != nil {
		t.Fatalf("validate echo: %v", err)
	}
}

func TestValidateUnknownKeysIgnored(t *testing.T) {
	testlog.Start(t)
	m := payload.Map{
		"bootloader": payload.Str("MCUboot"),
		"vendor":     payload.Bytes([]byte{0x01}),
	}
	if err := ValidateResponse(catalog.NameBootloaderInfo, m); err != nil {
		t.Fatalf("validate with unknown key: %v", err)
	}
}

func TestValidateMissingRequiredDeterministic(t *testing.T) {
	testlog.Start(t)
	err := ValidateRequest(catalog.NameEcho, payload.Map{})
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Key != "d" || ve.Reason != "missing required key" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
	if !errors.Is(err, protocol.ErrEncoding) {
		t.Fatalf("request failure must wrap ErrEncoding: %v", err)
	}
}

func TestValidateTypeMismatchDeterministic(t *testing.T) {
	testlog.Start(t)
	err := ValidateResponse(catalog.NameEcho, payload.Map{"r": payload.Bytes([]byte("ping"))})
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Key != "r" || ve.Direction != Response {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
	if !errors.Is(err, protocol.ErrMalformedPayload) {
		t.Fatalf("response failure must wrap ErrMalformedPayload: %v", err)
	}
}

func TestValidateOptionalKeyTypeChecked(t *testing.T) {
	testlog.Start(t)
	if err := ValidateResponse(catalog.NameBootloaderInfo, payload.Map{}); err != nil {
		t.Fatalf("empty bootloader info must pass: %v", err)
	}
	err := ValidateResponse(catalog.NameBootloaderInfo, payload.Map{"mode": payload.Str("swap")})
	if !errors.Is(err, protocol.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestValidateImageListItems(t *testing.T) {
	testlog.Start(t)
	good := payload.Map{"images": payload.List(payload.MapOf(payload.Map{
		"image":     payload.Int(0),
		"slot":      payload.Int(0),
		"version":   payload.Str("1.2.3"),
		"confirmed": payload.Bool(true),
	}))}
	if err := ValidateResponse(catalog.NameImageState, good); err != nil {
		t.Fatalf("validate image state: %v", err)
	}
	bad := payload.Map{"images": payload.List(payload.Int(1))}
	err := ValidateResponse(catalog.NameImageState, bad)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Key != "images" {
		t.Fatalf("expected images validation error, got %v", err)
	}
}

func TestValidateUnknownCommand(t *testing.T) {
	testlog.Start(t)
	err := ValidateRequest("upload", payload.Map{})
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Reason != "unknown command" {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}
