package faults_test

import (
	"errors"
	"fmt"
	"testing"

	"ledmatrix/internal/faults"
)

type classified struct{}

func (classified) Error() string     { return "classified" }
func (classified) ErrorKind() string { return faults.KindPlatform }

func TestKindAndExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
		code uint32
	}{
		{"nil", nil, "", 0},
		{"config", faults.Wrap(faults.ErrConfig, "load", "missing matrix", nil), faults.KindConfig, 0xDEAD0001},
		{"not usb", fmt.Errorf("open: %w", faults.ErrNotUSB), faults.KindNotUSB, 0xDEAD0002},
		{"unknown port", faults.ErrUnknownPort, faults.KindUnknownPort, 0xDEAD0003},
		{"size", faults.InvalidSize("left matrix has ", 12), faults.KindInvalidSize, 0xDEAD0004},
		{"frame size", faults.InvalidFrameSize("", 5, 2), faults.KindInvalidFrameSize, 0xDEAD0005},
		{"column", &faults.ColumnError{Column: 9}, faults.KindInvalidColumn, 0xDEAD0006},
		{"handler", faults.Wrap(faults.ErrHandler, "brightness", "", errors.New("timeout")), faults.KindHandler, 0xDEAD0007},
		{"classifier", classified{}, faults.KindPlatform, faults.ExitGeneric},
		{"handler over config", faults.Wrap(faults.ErrHandler, "pattern", "left matrix", faults.Wrap(faults.ErrConfig, "open", "verify port", nil)), faults.KindHandler, 0xDEAD0007},
		{"joined", errors.Join(faults.Wrap(faults.ErrHandler, "sleep", "left matrix", faults.ErrNotUSB), faults.ErrConfig), faults.KindHandler, 0xDEAD0007},
		{"classifier inside marker", faults.Wrap(faults.ErrHandler, "send", "", classified{}), faults.KindHandler, 0xDEAD0007},
		{"plain", errors.New("boom"), faults.KindUnknown, faults.ExitGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.Kind(tt.err); got != tt.kind {
				t.Fatalf("Kind = %q, want %q", got, tt.kind)
			}
			if got := faults.ExitCode(tt.err); got != tt.code {
				t.Fatalf("ExitCode = %#x, want %#x", got, tt.code)
			}
		})
	}
}

func TestPayloadMessages(t *testing.T) {
	if got := faults.InvalidSize(faults.SideSubject(true, true), 38).Error(); got != "both matrixes have an invalid vector size of 38" {
		t.Fatalf("unexpected size message %q", got)
	}
	if got := faults.InvalidFrameSize("", 305, 3).Error(); got != "an invalid vector size of 305 at index 3" {
		t.Fatalf("unexpected frame message %q", got)
	}
	if got := (&faults.ColumnError{Column: 12}).Error(); got != "invalid column number 12 (must be between 0 and 8)" {
		t.Fatalf("unexpected column message %q", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("short read")
	err := faults.Wrap(faults.ErrHandler, "get brightness", "left", cause)
	if !errors.Is(err, cause) || !errors.Is(err, faults.ErrHandler) {
		t.Fatalf("expected both marker and cause in chain: %v", err)
	}
	if err.Error() != "command handler failed: get brightness: left: short read" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		code uint32
		kind string
		ok   bool
	}{
		{0, "", true},
		{0xDEAD0001, faults.KindConfig, true},
		{0xDEAD0002, faults.KindNotUSB, true},
		{0xDEAD0005, faults.KindInvalidFrameSize, true},
		{0xDEAD0007, faults.KindHandler, true},
		{faults.ExitGeneric, faults.KindUnknown, true},
		{0xDEAD0008, "", false},
		{1, "", false},
	}
	for _, tt := range tests {
		kind, description, ok := faults.Explain(tt.code)
		if ok != tt.ok || kind != tt.kind {
			t.Fatalf("Explain(%#x) = %q, %v; want %q, %v", tt.code, kind, ok, tt.kind, tt.ok)
		}
		if ok && description == "" {
			t.Fatalf("Explain(%#x) returned no description", tt.code)
		}
	}
}

func TestExplainRoundTripsExitCode(t *testing.T) {
	errs := []error{
		faults.ErrConfig,
		faults.ErrNotUSB,
		faults.ErrUnknownPort,
		faults.InvalidSize("", 3),
		faults.InvalidFrameSize("", 3, 0),
		&faults.ColumnError{Column: 10},
		faults.ErrHandler,
	}
	for _, err := range errs {
		kind, _, ok := faults.Explain(faults.ExitCode(err))
		if !ok || kind != faults.Kind(err) {
			t.Fatalf("Explain(ExitCode(%v)) = %q, %v; want %q", err, kind, ok, faults.Kind(err))
		}
	}
}
