package ipc

import (
	"fmt"
	"time"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/faults"
	"ledmatrix/internal/matrix"
)

// Kind discriminates Command records.
type Kind string

const (
	KindSetBrightness          Kind = "set_brightness"
	KindGetBrightness          Kind = "get_brightness"
	KindPatternPercentage      Kind = "pattern_percentage"
	KindPatternGradient        Kind = "pattern_gradient"
	KindPatternDoubleGradient  Kind = "pattern_double_gradient"
	KindPatternLotusHorizontal Kind = "pattern_lotus_horizontal"
	KindPatternLotusVertical   Kind = "pattern_lotus_vertical"
	KindPatternZigzag          Kind = "pattern_zigzag"
	KindPatternFullBright      Kind = "pattern_full_bright"
	KindPatternPanic           Kind = "pattern_panic"
	KindBootloader             Kind = "bootloader"
	KindSetSleep               Kind = "set_sleep"
	KindGetSleep               Kind = "get_sleep"
	KindSetAnimate             Kind = "set_animate"
	KindGetAnimate             Kind = "get_animate"
	KindCrash                  Kind = "crash"
	KindDrawBW                 Kind = "draw_bw"
	KindStageColumn            Kind = "stage_column"
	KindFlushColumns           Kind = "flush_columns"
	KindVersion                Kind = "version"
	KindRender                 Kind = "render"
	KindRenderPair             Kind = "render_pair"
	KindStatus                 Kind = "status"
)

// Class groups kinds by how the dispatcher treats running animations.
type Class int

const (
	// ClassQuery reads state and never preempts.
	ClassQuery Class = iota
	// ClassState changes device state without touching the display.
	ClassState
	// ClassVisual changes what is displayed and preempts first.
	ClassVisual
)

// Payload names the Command field a kind reads its per-side input from.
type Payload int

const (
	PayloadFlags Payload = iota
	PayloadValue
	PayloadToggle
	PayloadBitmap
	PayloadColumn
	PayloadFrames
	PayloadPair
)

type kindInfo struct {
	class   Class
	payload Payload
	pattern matrix.Pattern
}

var kindTable = map[Kind]kindInfo{
	KindSetBrightness:          {ClassState, PayloadValue, 0},
	KindGetBrightness:          {ClassQuery, PayloadFlags, 0},
	KindPatternPercentage:      {ClassVisual, PayloadValue, matrix.PatternPercentage},
	KindPatternGradient:        {ClassVisual, PayloadFlags, matrix.PatternGradient},
	KindPatternDoubleGradient:  {ClassVisual, PayloadFlags, matrix.PatternDoubleGradient},
	KindPatternLotusHorizontal: {ClassVisual, PayloadFlags, matrix.PatternLotusHorizontal},
	KindPatternLotusVertical:   {ClassVisual, PayloadFlags, matrix.PatternLotusVertical},
	KindPatternZigzag:          {ClassVisual, PayloadFlags, matrix.PatternZigzag},
	KindPatternFullBright:      {ClassVisual, PayloadFlags, matrix.PatternFullBright},
	KindPatternPanic:           {ClassVisual, PayloadFlags, matrix.PatternPanic},
	KindBootloader:             {ClassVisual, PayloadFlags, 0},
	KindSetSleep:               {ClassVisual, PayloadToggle, 0},
	KindGetSleep:               {ClassQuery, PayloadFlags, 0},
	KindSetAnimate:             {ClassVisual, PayloadToggle, 0},
	KindGetAnimate:             {ClassQuery, PayloadFlags, 0},
	KindCrash:                  {ClassVisual, PayloadFlags, 0},
	KindDrawBW:                 {ClassVisual, PayloadBitmap, 0},
	KindStageColumn:            {ClassVisual, PayloadColumn, 0},
	KindFlushColumns:           {ClassVisual, PayloadFlags, 0},
	KindVersion:                {ClassQuery, PayloadFlags, 0},
	KindRender:                 {ClassVisual, PayloadFrames, 0},
	KindRenderPair:             {ClassVisual, PayloadPair, 0},
	KindStatus:                 {ClassQuery, PayloadFlags, 0},
}

// Known reports whether k is a recognised kind.
func (k Kind) Known() bool {
	_, ok := kindTable[k]
	return ok
}

// Class returns the dispatch class of k.
func (k Kind) Class() Class { return kindTable[k].class }

// Payload returns which Command field carries k's input.
func (k Kind) Payload() Payload { return kindTable[k].payload }

// Pattern returns the firmware pattern for pattern kinds.
func (k Kind) Pattern() (matrix.Pattern, bool) {
	info := kindTable[k]
	if info.class != ClassVisual {
		return 0, false
	}
	switch k {
	case KindPatternPercentage, KindPatternGradient, KindPatternDoubleGradient,
		KindPatternLotusHorizontal, KindPatternLotusVertical, KindPatternZigzag,
		KindPatternFullBright, KindPatternPanic:
		return info.pattern, true
	}
	return 0, false
}

// Sides carries an optional value per side.
type Sides[T any] struct {
	Left  *T `json:"left,omitempty"`
	Right *T `json:"right,omitempty"`
}

// Get returns the value for side, nil when absent.
func (s Sides[T]) Get(side animator.Target) *T {
	switch side {
	case animator.Left:
		return s.Left
	case animator.Right:
		return s.Right
	default:
		return nil
	}
}

// Set stores v for side.
func (s *Sides[T]) Set(side animator.Target, v T) {
	switch side {
	case animator.Left:
		s.Left = &v
	case animator.Right:
		s.Right = &v
	}
}

// Column is one staged column for stage_column.
type Column struct {
	Index  uint8  `json:"index"`
	Values []byte `json:"values"`
}

// Frame is one render frame on the wire.
type Frame struct {
	Pixels     []byte `json:"pixels"`
	DurationMS int64  `json:"duration_ms"`
}

// Animation converts wire frames into playback frames.
func Animation(frames []Frame) []animator.Frame {
	out := make([]animator.Frame, len(frames))
	for i, f := range frames {
		out[i] = animator.Frame{Pixels: f.Pixels, Duration: time.Duration(f.DurationMS) * time.Millisecond}
	}
	return out
}

// Command is one client request. Queries and parameterless commands use the
// Left/Right flags; the others carry per-side payloads.
type Command struct {
	Kind   Kind           `json:"kind"`
	Left   bool           `json:"left,omitempty"`
	Right  bool           `json:"right,omitempty"`
	Value  Sides[uint8]   `json:"value,omitzero"`
	Toggle Sides[bool]    `json:"toggle,omitzero"`
	Bitmap Sides[[]byte]  `json:"bitmap,omitzero"`
	Column Sides[Column]  `json:"column,omitzero"`
	Frames Sides[[]Frame] `json:"frames,omitzero"`
	Pair   []Frame        `json:"pair,omitempty"`
	Loop   bool           `json:"loop,omitempty"`
}

// Touches reports whether the command addresses side.
func (c *Command) Touches(side animator.Target) bool {
	switch c.Kind.Payload() {
	case PayloadValue:
		return c.Value.Get(side) != nil
	case PayloadToggle:
		return c.Toggle.Get(side) != nil
	case PayloadBitmap:
		return c.Bitmap.Get(side) != nil
	case PayloadColumn:
		return c.Column.Get(side) != nil
	case PayloadFrames:
		return c.Frames.Get(side) != nil
	case PayloadPair:
		return side == animator.Pair
	default:
		switch side {
		case animator.Left:
			return c.Left
		case animator.Right:
			return c.Right
		}
		return false
	}
}

// NeedsResponse reports whether the server writes a reply on success.
func (c *Command) NeedsResponse() bool {
	return c.Kind.Class() == ClassQuery
}

// Validate checks payload sizes and ranges. It runs on both ends so a
// malformed payload never reaches the device codec.
func (c *Command) Validate() error {
	if !c.Kind.Known() {
		return fmt.Errorf("%w: unknown command kind %q", faults.ErrInvalidCommand, c.Kind)
	}
	switch c.Kind {
	case KindDrawBW:
		return c.validateBitmap()
	case KindStageColumn:
		return c.validateColumn()
	case KindRender:
		for _, side := range []animator.Target{animator.Left, animator.Right} {
			if frames := c.Frames.Get(side); frames != nil {
				if err := validateFrames(*frames, matrix.FrameSize, side.String()+" matrix has "); err != nil {
					return err
				}
			}
		}
	case KindRenderPair:
		return validateFrames(c.Pair, matrix.PairFrameSize, "")
	}
	return nil
}

func (c *Command) validateBitmap() error {
	var leftBad, rightBad bool
	size := 0
	if b := c.Bitmap.Left; b != nil && len(*b) != matrix.BitmapSize {
		leftBad, size = true, len(*b)
	}
	if b := c.Bitmap.Right; b != nil && len(*b) != matrix.BitmapSize {
		rightBad = true
		if !leftBad {
			size = len(*b)
		}
	}
	if leftBad || rightBad {
		return faults.InvalidSize(faults.SideSubject(leftBad, rightBad), size)
	}
	return nil
}

func (c *Command) validateColumn() error {
	for _, side := range []animator.Target{animator.Left, animator.Right} {
		col := c.Column.Get(side)
		if col == nil {
			continue
		}
		if col.Index >= matrix.Columns {
			return &faults.ColumnError{Column: int(col.Index)}
		}
		if len(col.Values) != matrix.Rows {
			return faults.InvalidSize(faults.SideSubject(side == animator.Left, side == animator.Right), len(col.Values))
		}
	}
	return nil
}

func validateFrames(frames []Frame, size int, subject string) error {
	for i, f := range frames {
		if len(f.Pixels) != size {
			return faults.InvalidFrameSize(subject, len(f.Pixels), i)
		}
	}
	return nil
}

// PairColumn builds a stage_column command for a pair-wide column index
// 0..17: 0-8 stage on the left module, 9-17 on the right at col-9.
func PairColumn(col int, values []byte) (Command, error) {
	if col < 0 || col >= matrix.PairColumns {
		return Command{}, fmt.Errorf("%w: pair column %d out of range 0..%d", faults.ErrInvalidCommand, col, matrix.PairColumns-1)
	}
	cmd := Command{Kind: KindStageColumn}
	side, index := matrix.RoutePairColumn(animator.Left, animator.Right, col)
	cmd.Column.Set(side, Column{Index: uint8(index), Values: values})
	return cmd, nil
}

// SideStatus is one side's entry in a status response.
type SideStatus struct {
	State    string `json:"state"`
	Port     string `json:"port,omitempty"`
	BaudRate int    `json:"baudrate,omitempty"`
	Sleeping bool   `json:"sleeping"`
}

// DaemonStatus describes the running daemon.
type DaemonStatus struct {
	PID       int        `json:"pid"`
	StartedAt time.Time  `json:"started_at"`
	Socket    string     `json:"socket"`
	LogPath   string     `json:"log_path,omitempty"`
	Left      SideStatus `json:"left"`
	Right     SideStatus `json:"right"`
	Pair      string     `json:"pair"`
}

// WireError is the error payload of a failed command.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *WireError) Error() string { return e.Message }

// ErrorKind lets faults.Kind classify a decoded WireError.
func (e *WireError) ErrorKind() string { return e.Kind }

// Response answers query commands and reports failures.
type Response struct {
	Kind       Kind                  `json:"kind"`
	Brightness Sides[uint8]          `json:"brightness,omitzero"`
	Sleeping   Sides[bool]           `json:"sleeping,omitzero"`
	Animating  Sides[bool]           `json:"animating,omitzero"`
	Version    Sides[matrix.Version] `json:"version,omitzero"`
	Status     *DaemonStatus         `json:"status,omitempty"`
	Error      *WireError            `json:"invalid_command,omitempty"`
}

// ErrorResponse wraps err for the wire.
func ErrorResponse(kind Kind, err error) *Response {
	return &Response{Kind: kind, Error: &WireError{Kind: faults.Kind(err), Message: err.Error()}}
}
