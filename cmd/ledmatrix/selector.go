package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/ipc"
)

// selection is the parsed matrix selector argument.
type selection struct {
	left  bool
	right bool
	pair  bool
}

func (s selection) sides() []animator.Target {
	var out []animator.Target
	if s.left {
		out = append(out, animator.Left)
	}
	if s.right {
		out = append(out, animator.Right)
	}
	return out
}

// parseSelection accepts left, right, both and, where allowPair is set, pair.
func parseSelection(arg string, allowPair bool) (selection, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "left", "l":
		return selection{left: true}, nil
	case "right", "r":
		return selection{right: true}, nil
	case "both", "b":
		return selection{left: true, right: true}, nil
	case "pair", "p":
		if allowPair {
			return selection{pair: true}, nil
		}
	}
	valid := "left, right, both"
	if allowPair {
		valid += ", pair"
	}
	return selection{}, fmt.Errorf("invalid matrix %q (expected one of %s)", arg, valid)
}

// flagged builds a parameterless command addressing the selected sides.
func (s selection) flagged(kind ipc.Kind) ipc.Command {
	return ipc.Command{Kind: kind, Left: s.left, Right: s.right}
}

// parseByte accepts decimal or 0x-prefixed hex.
func parseByte(value string) (uint8, error) {
	n, err := parseUint(value, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q (expected 0-255 or 0x00-0xff)", strings.TrimSpace(value))
	}
	return uint8(n), nil
}

// parseUint32 accepts a decimal or 0x-prefixed hex 32-bit value.
func parseUint32(value string) (uint32, error) {
	n, err := parseUint(value, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q (expected 0-4294967295 or 0x0-0xffffffff)", strings.TrimSpace(value))
	}
	return uint32(n), nil
}

func parseUint(value string, bits int) (uint64, error) {
	value = strings.TrimSpace(value)
	base := 10
	digits := value
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		base = 16
		digits = value[2:]
	}
	return strconv.ParseUint(digits, base, bits)
}

// parseBytes splits a comma or whitespace separated list of byte values.
func parseBytes(value string) ([]byte, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := parseByte(f)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// parseToggle accepts on/off and the usual boolean spellings.
func parseToggle(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes", "enable", "enabled":
		return true, nil
	case "off", "no", "disable", "disabled":
		return false, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid toggle %q (expected on or off)", value)
	}
	return v, nil
}

func sideLabel(side animator.Target) string {
	return cases.Title(language.English).String(side.String())
}
