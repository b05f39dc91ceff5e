package matrix

import (
	"fmt"
	"io"
)

// Magic prefix of every request.
const (
	magic0 byte = 0x32
	magic1 byte = 0xAC
)

// Command is a firmware command byte.
type Command byte

const (
	CmdBrightness Command = 0x00
	CmdPattern    Command = 0x01
	CmdBootloader Command = 0x02
	CmdSleep      Command = 0x03
	CmdAnimate    Command = 0x04
	CmdPanic      Command = 0x05
	CmdDrawBW     Command = 0x06
	CmdStageCol   Command = 0x07
	CmdFlushCols  Command = 0x08
	CmdVersion    Command = 0x20
)

var commandNames = map[Command]string{
	CmdBrightness: "brightness",
	CmdPattern:    "pattern",
	CmdBootloader: "bootloader",
	CmdSleep:      "sleep",
	CmdAnimate:    "animate",
	CmdPanic:      "panic",
	CmdDrawBW:     "draw_bw",
	CmdStageCol:   "stage_col",
	CmdFlushCols:  "flush_cols",
	CmdVersion:    "version",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(0x%02x)", byte(c))
}

// Pattern selects a built-in firmware pattern.
type Pattern byte

const (
	PatternPercentage      Pattern = 0x00
	PatternGradient        Pattern = 0x01
	PatternDoubleGradient  Pattern = 0x02
	PatternLotusHorizontal Pattern = 0x03
	PatternZigzag          Pattern = 0x04
	PatternFullBright      Pattern = 0x05
	PatternPanic           Pattern = 0x06
	PatternLotusVertical   Pattern = 0x07
)

// Payload geometry.
const (
	Rows          = 34
	Columns       = 9
	BitmapSize    = 39
	FrameSize     = Rows * Columns
	PairFrameSize = 2 * FrameSize
	PairColumns   = 2 * Columns
)

// Device speaks the firmware protocol over one open connection. It is not
// safe for concurrent use; the caller holds the connection exclusively.
type Device struct {
	rw io.ReadWriter
}

// NewDevice wraps an open connection.
func NewDevice(rw io.ReadWriter) *Device {
	return &Device{rw: rw}
}

// send writes one request and, when resp is non-empty, reads exactly
// len(resp) bytes back.
func (d *Device) send(cmd Command, params []byte, resp []byte) error {
	req := make([]byte, 0, 3+len(params))
	req = append(req, magic0, magic1, byte(cmd))
	req = append(req, params...)
	if _, err := d.rw.Write(req); err != nil {
		return fmt.Errorf("%s: write: %w", cmd, err)
	}
	if len(resp) == 0 {
		return nil
	}
	if _, err := io.ReadFull(d.rw, resp); err != nil {
		return fmt.Errorf("%s: read %d byte response: %w", cmd, len(resp), err)
	}
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func (d *Device) SetBrightness(level uint8) error {
	return d.send(CmdBrightness, []byte{level}, nil)
}

func (d *Device) GetBrightness() (uint8, error) {
	var resp [1]byte
	if err := d.send(CmdBrightness, nil, resp[:]); err != nil {
		return 0, err
	}
	return resp[0], nil
}

// SetSleep puts the module to sleep or wakes it. There is no query form:
// asking the firmware would wake it.
func (d *Device) SetSleep(sleep bool) error {
	return d.send(CmdSleep, []byte{boolByte(sleep)}, nil)
}

// SetAnimate toggles the firmware's built-in vertical scroll.
func (d *Device) SetAnimate(animate bool) error {
	return d.send(CmdAnimate, []byte{boolByte(animate)}, nil)
}

func (d *Device) GetAnimate() (bool, error) {
	var resp [1]byte
	if err := d.send(CmdAnimate, nil, resp[:]); err != nil {
		return false, err
	}
	return resp[0] != 0, nil
}

// ShowPattern displays a built-in pattern. param is only sent for
// PatternPercentage.
func (d *Device) ShowPattern(p Pattern, param *uint8) error {
	params := []byte{byte(p)}
	if p == PatternPercentage {
		var value uint8
		if param != nil {
			value = *param
		}
		params = append(params, value)
	}
	return d.send(CmdPattern, params, nil)
}

// Bootloader reboots the module into its bootloader. No response follows.
func (d *Device) Bootloader() error {
	return d.send(CmdBootloader, nil, nil)
}

// Crash makes the firmware panic. No response follows.
func (d *Device) Crash() error {
	return d.send(CmdPanic, nil, nil)
}

// DrawBlackWhite draws a packed 1-bit bitmap.
func (d *Device) DrawBlackWhite(bitmap [BitmapSize]byte) error {
	return d.send(CmdDrawBW, bitmap[:], nil)
}

// StageColumn loads one grayscale column into the firmware's back buffer.
func (d *Device) StageColumn(index uint8, values [Rows]byte) error {
	params := make([]byte, 0, 1+Rows)
	params = append(params, index)
	params = append(params, values[:]...)
	return d.send(CmdStageCol, params, nil)
}

// FlushColumns swaps the staged columns onto the display.
func (d *Device) FlushColumns() error {
	return d.send(CmdFlushCols, nil, nil)
}

func (d *Device) GetVersion() (Version, error) {
	var resp [3]byte
	if err := d.send(CmdVersion, nil, resp[:]); err != nil {
		return Version{}, err
	}
	return DecodeVersion(resp), nil
}
