package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig           = errors.New("configuration error")
	ErrNotUSB           = errors.New("port is not a USB device")
	ErrUnknownPort      = errors.New("cannot determine port type")
	ErrInvalidSize      = errors.New("invalid vector size")
	ErrInvalidFrameSize = errors.New("invalid frame size")
	ErrInvalidColumn    = errors.New("invalid column number")
	ErrHandler          = errors.New("command handler failed")
	ErrPlatform         = errors.New("platform error")
	ErrInvalidCommand   = errors.New("invalid command")
)

// Kind names used on the wire and in logs.
const (
	KindConfig           = "config"
	KindNotUSB           = "not_usb"
	KindUnknownPort      = "unknown_port"
	KindInvalidSize      = "invalid_size"
	KindInvalidFrameSize = "invalid_frame_size"
	KindInvalidColumn    = "invalid_column"
	KindHandler          = "handler"
	KindPlatform         = "platform"
	KindInvalidCommand   = "invalid_command"
	KindUnknown          = "unknown"
)

// Classifier lets an error declare its kind without wrapping one of the
// package sentinels.
type Classifier interface {
	ErrorKind() string
}

var kinds = []struct {
	marker      error
	kind        string
	code        uint32
	description string
}{
	{ErrConfig, KindConfig, 0xDEAD0001, "the configuration is invalid or names no matrix"},
	{ErrNotUSB, KindNotUSB, 0xDEAD0002, "a configured port is not a USB device"},
	{ErrUnknownPort, KindUnknownPort, 0xDEAD0003, "the type of a configured port could not be determined"},
	{ErrInvalidSize, KindInvalidSize, 0xDEAD0004, "a command payload had the wrong length"},
	{ErrInvalidFrameSize, KindInvalidFrameSize, 0xDEAD0005, "an animation frame had the wrong length"},
	{ErrInvalidColumn, KindInvalidColumn, 0xDEAD0006, "a column index was outside 0 to 8"},
	{ErrHandler, KindHandler, 0xDEAD0007, "a device command failed"},
	{ErrPlatform, KindPlatform, ExitGeneric, "a platform or service manager call failed"},
	{ErrInvalidCommand, KindInvalidCommand, ExitGeneric, "the daemon received a malformed command"},
}

// ExitGeneric is the service exit code for errors outside the taxonomy.
const ExitGeneric uint32 = 0xDEAD0000

// Wrap tags err with marker and prefixes it with operation context.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrHandler
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind classifies err into one of the Kind constants. The chain is walked
// outermost first, so a marker added by a caller wins over the markers of
// the errors it wraps.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := classify(err); ok {
		return kind
	}
	return KindUnknown
}

func classify(err error) (string, bool) {
	if classifier, ok := err.(Classifier); ok {
		return classifier.ErrorKind(), true
	}
	for _, k := range kinds {
		if err == k.marker {
			return k.kind, true
		}
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() error }:
		if inner := wrapped.Unwrap(); inner != nil {
			return classify(inner)
		}
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			if kind, ok := classify(inner); ok {
				return kind, true
			}
		}
	}
	return "", false
}

// ExitCode maps err to the service-specific exit code reported to a service
// manager. A nil error maps to zero.
func ExitCode(err error) uint32 {
	if err == nil {
		return 0
	}
	kind := Kind(err)
	for _, k := range kinds {
		if k.kind == kind {
			return k.code
		}
	}
	return ExitGeneric
}

// Explain decodes a service exit code produced by ExitCode. ok is false for
// codes outside the table.
func Explain(code uint32) (kind, description string, ok bool) {
	switch code {
	case 0:
		return "", "the service stopped cleanly", true
	case ExitGeneric:
		return KindUnknown, "the failure falls outside the error taxonomy", true
	}
	for _, k := range kinds {
		if k.code == code {
			return k.kind, k.description, true
		}
	}
	return "", "", false
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
