package ipc_test

import (
	"encoding/json"
	"errors"
	"testing"

	"ledmatrix/internal/animator"
	"ledmatrix/internal/faults"
	"ledmatrix/internal/ipc"
	"ledmatrix/internal/matrix"
	"ledmatrix/internal/testsupport"
)

func bytesPtr(b []byte) *[]byte { return &b }

func TestValidate(t *testing.T) {
	good := testsupport.Frame(matrix.FrameSize, 1)
	goodPair := testsupport.Frame(matrix.PairFrameSize, 1)

	tests := []struct {
		name    string
		cmd     ipc.Command
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown kind",
			cmd:     ipc.Command{Kind: "explode"},
			wantErr: faults.ErrInvalidCommand,
		},
		{
			name: "draw bw ok",
			cmd:  ipc.Command{Kind: ipc.KindDrawBW, Bitmap: ipc.Sides[[]byte]{Left: bytesPtr(make([]byte, 39))}},
		},
		{
			name:    "draw bw left short",
			cmd:     ipc.Command{Kind: ipc.KindDrawBW, Bitmap: ipc.Sides[[]byte]{Left: bytesPtr(make([]byte, 38)), Right: bytesPtr(make([]byte, 39))}},
			wantErr: faults.ErrInvalidSize,
			wantMsg: "left matrix has an invalid vector size of 38",
		},
		{
			name:    "draw bw both wrong",
			cmd:     ipc.Command{Kind: ipc.KindDrawBW, Bitmap: ipc.Sides[[]byte]{Left: bytesPtr(make([]byte, 40)), Right: bytesPtr(nil)}},
			wantErr: faults.ErrInvalidSize,
			wantMsg: "both matrixes have an invalid vector size of 40",
		},
		{
			name:    "stage column index",
			cmd:     ipc.Command{Kind: ipc.KindStageColumn, Column: ipc.Sides[ipc.Column]{Right: &ipc.Column{Index: 9, Values: make([]byte, 34)}}},
			wantErr: faults.ErrInvalidColumn,
		},
		{
			name:    "stage column size",
			cmd:     ipc.Command{Kind: ipc.KindStageColumn, Column: ipc.Sides[ipc.Column]{Left: &ipc.Column{Index: 8, Values: make([]byte, 33)}}},
			wantErr: faults.ErrInvalidSize,
		},
		{
			name: "stage column ok",
			cmd:  ipc.Command{Kind: ipc.KindStageColumn, Column: ipc.Sides[ipc.Column]{Left: &ipc.Column{Index: 8, Values: make([]byte, 34)}}},
		},
		{
			name: "render second frame wrong",
			cmd: ipc.Command{Kind: ipc.KindRender, Frames: ipc.Sides[[]ipc.Frame]{Left: &[]ipc.Frame{
				{Pixels: good}, {Pixels: good[:300]},
			}}},
			wantErr: faults.ErrInvalidFrameSize,
			wantMsg: "left matrix has an invalid vector size of 300 at index 1",
		},
		{
			name:    "render pair wrong",
			cmd:     ipc.Command{Kind: ipc.KindRenderPair, Pair: []ipc.Frame{{Pixels: goodPair}, {Pixels: good}}},
			wantErr: faults.ErrInvalidFrameSize,
			wantMsg: "an invalid vector size of 306 at index 1",
		},
		{
			name: "render pair ok",
			cmd:  ipc.Command{Kind: ipc.KindRenderPair, Pair: []ipc.Frame{{Pixels: goodPair}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNeedsResponse(t *testing.T) {
	queries := []ipc.Kind{ipc.KindGetBrightness, ipc.KindGetSleep, ipc.KindGetAnimate, ipc.KindVersion, ipc.KindStatus}
	for _, k := range queries {
		if !(&ipc.Command{Kind: k}).NeedsResponse() {
			t.Fatalf("%s should need a response", k)
		}
	}
	for _, k := range []ipc.Kind{ipc.KindSetBrightness, ipc.KindSetSleep, ipc.KindRender, ipc.KindPatternZigzag, ipc.KindFlushColumns} {
		if (&ipc.Command{Kind: k}).NeedsResponse() {
			t.Fatalf("%s should not need a response", k)
		}
	}
}

func TestPairColumnRouting(t *testing.T) {
	values := make([]byte, 34)
	tests := []struct {
		col   int
		side  animator.Target
		index uint8
	}{
		{0, animator.Left, 0},
		{8, animator.Left, 8},
		{9, animator.Right, 0},
		{17, animator.Right, 8},
	}
	for _, tt := range tests {
		cmd, err := ipc.PairColumn(tt.col, values)
		if err != nil {
			t.Fatalf("PairColumn(%d): %v", tt.col, err)
		}
		col := cmd.Column.Get(tt.side)
		if col == nil || col.Index != tt.index {
			t.Fatalf("col %d: got %+v on %s, want index %d", tt.col, col, tt.side, tt.index)
		}
		other := animator.Right
		if tt.side == animator.Right {
			other = animator.Left
		}
		if cmd.Column.Get(other) != nil {
			t.Fatalf("col %d also staged on %s", tt.col, other)
		}
		if err := cmd.Validate(); err != nil {
			t.Fatalf("routed command invalid: %v", err)
		}
	}
	if _, err := ipc.PairColumn(18, values); err == nil {
		t.Fatal("expected error for column 18")
	}
}

func TestPatternKinds(t *testing.T) {
	p, ok := ipc.KindPatternLotusVertical.Pattern()
	if !ok || p != matrix.PatternLotusVertical {
		t.Fatalf("unexpected pattern %v %v", p, ok)
	}
	p, ok = ipc.KindPatternPercentage.Pattern()
	if !ok || p != matrix.PatternPercentage {
		t.Fatalf("unexpected percentage pattern %v %v", p, ok)
	}
	if _, ok := ipc.KindCrash.Pattern(); ok {
		t.Fatal("crash is not a pattern")
	}
}

func TestCommandJSONOmitsAbsentSides(t *testing.T) {
	level := uint8(10)
	cmd := ipc.Command{Kind: ipc.KindSetBrightness, Value: ipc.Sides[uint8]{Left: &level}}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"kind":"set_brightness","value":{"left":10}}` {
		t.Fatalf("unexpected encoding %s", data)
	}
	if !cmd.Touches(animator.Left) || cmd.Touches(animator.Right) {
		t.Fatal("unexpected Touches result")
	}
}
