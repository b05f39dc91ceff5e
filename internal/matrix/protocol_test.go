package matrix_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"ledmatrix/internal/matrix"
	"ledmatrix/internal/testsupport"
)

// wire records raw writes and replays scripted reads.
type wire struct {
	written bytes.Buffer
	reply   bytes.Buffer
}

func (w *wire) Write(b []byte) (int, error) { return w.written.Write(b) }
func (w *wire) Read(b []byte) (int, error) {
	if w.reply.Len() == 0 {
		return 0, io.EOF
	}
	return w.reply.Read(b)
}

func TestRequestEncoding(t *testing.T) {
	pct := uint8(50)
	var bitmap [matrix.BitmapSize]byte
	bitmap[0], bitmap[38] = 0xFF, 0x01
	var col [matrix.Rows]byte
	col[33] = 7

	tests := []struct {
		name string
		run  func(d *matrix.Device) error
		want []byte
	}{
		{"set brightness", func(d *matrix.Device) error { return d.SetBrightness(0x80) }, []byte{0x32, 0xAC, 0x00, 0x80}},
		{"sleep", func(d *matrix.Device) error { return d.SetSleep(true) }, []byte{0x32, 0xAC, 0x03, 0x01}},
		{"wake", func(d *matrix.Device) error { return d.SetSleep(false) }, []byte{0x32, 0xAC, 0x03, 0x00}},
		{"animate", func(d *matrix.Device) error { return d.SetAnimate(true) }, []byte{0x32, 0xAC, 0x04, 0x01}},
		{"percentage", func(d *matrix.Device) error { return d.ShowPattern(matrix.PatternPercentage, &pct) }, []byte{0x32, 0xAC, 0x01, 0x00, 50}},
		{"zigzag", func(d *matrix.Device) error { return d.ShowPattern(matrix.PatternZigzag, &pct) }, []byte{0x32, 0xAC, 0x01, 0x04}},
		{"lotus vertical", func(d *matrix.Device) error { return d.ShowPattern(matrix.PatternLotusVertical, nil) }, []byte{0x32, 0xAC, 0x01, 0x07}},
		{"bootloader", func(d *matrix.Device) error { return d.Bootloader() }, []byte{0x32, 0xAC, 0x02}},
		{"crash", func(d *matrix.Device) error { return d.Crash() }, []byte{0x32, 0xAC, 0x05}},
		{"flush", func(d *matrix.Device) error { return d.FlushColumns() }, []byte{0x32, 0xAC, 0x08}},
		{"draw bw", func(d *matrix.Device) error { return d.DrawBlackWhite(bitmap) },
			append([]byte{0x32, 0xAC, 0x06}, bitmap[:]...)},
		{"stage column", func(d *matrix.Device) error { return d.StageColumn(8, col) },
			append([]byte{0x32, 0xAC, 0x07, 0x08}, col[:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &wire{}
			if err := tt.run(matrix.NewDevice(w)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(w.written.Bytes(), tt.want) {
				t.Fatalf("wire bytes = % x, want % x", w.written.Bytes(), tt.want)
			}
		})
	}
}

func TestQueries(t *testing.T) {
	w := &wire{}
	w.reply.Write([]byte{0x42})
	level, err := matrix.NewDevice(w).GetBrightness()
	if err != nil || level != 0x42 {
		t.Fatalf("GetBrightness = %d, %v", level, err)
	}
	if !bytes.Equal(w.written.Bytes(), []byte{0x32, 0xAC, 0x00}) {
		t.Fatalf("unexpected request % x", w.written.Bytes())
	}

	w = &wire{}
	w.reply.Write([]byte{0x01})
	on, err := matrix.NewDevice(w).GetAnimate()
	if err != nil || !on {
		t.Fatalf("GetAnimate = %v, %v", on, err)
	}

	w = &wire{}
	w.reply.Write([]byte{0x00, 0x52, 0x01})
	v, err := matrix.NewDevice(w).GetVersion()
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v != (matrix.Version{Major: 0, Minor: 5, Patch: 2, PreRelease: true}) || v.String() != "v0.5.2-pre" {
		t.Fatalf("unexpected version %+v (%s)", v, v)
	}
}

func TestShortResponseFails(t *testing.T) {
	w := &wire{}
	w.reply.Write([]byte{0x01})
	if _, err := matrix.NewDevice(w).GetVersion(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected short read error, got %v", err)
	}
	if _, err := matrix.NewDevice(&wire{}).GetBrightness(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF on missing response, got %v", err)
	}
}

func TestDecodeVersion(t *testing.T) {
	tests := []struct {
		in   [3]byte
		want string
	}{
		{[3]byte{0, 0x00, 0}, "v0.0.0"},
		{[3]byte{1, 0x23, 0}, "v1.2.3"},
		{[3]byte{2, 0xFF, 7}, "v2.15.15-pre"},
	}
	for _, tt := range tests {
		if got := matrix.DecodeVersion(tt.in).String(); got != tt.want {
			t.Fatalf("DecodeVersion(% x) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRenderSingleStagesThenFlushes(t *testing.T) {
	opener := testsupport.NewFakeOpener()
	m := matrix.New("/dev/ttyACM0", 115200, false, opener)
	frame := testsupport.RampFrame(matrix.FrameSize)

	if err := m.Session(func(d *matrix.Device) error { return matrix.RenderSingle(d, frame) }); err != nil {
		t.Fatalf("RenderSingle: %v", err)
	}
	reqs := opener.Port("/dev/ttyACM0").Requests()
	if len(reqs) != matrix.Columns+1 {
		t.Fatalf("expected 10 requests, got %d", len(reqs))
	}
	for col := 0; col < matrix.Columns; col++ {
		r := reqs[col]
		if r.Command != byte(matrix.CmdStageCol) || r.Params[0] != byte(col) {
			t.Fatalf("request %d: cmd %#x col %d", col, r.Command, r.Params[0])
		}
		if !bytes.Equal(r.Params[1:], frame[col*matrix.Rows:(col+1)*matrix.Rows]) {
			t.Fatalf("column %d payload mismatch", col)
		}
	}
	if reqs[matrix.Columns].Command != byte(matrix.CmdFlushCols) {
		t.Fatalf("expected final flush, got %#x", reqs[matrix.Columns].Command)
	}
	if !opener.Port("/dev/ttyACM0").Balanced() {
		t.Fatal("session left the port open")
	}
}

func TestRenderPairRoutesColumns(t *testing.T) {
	opener := testsupport.NewFakeOpener()
	left := matrix.New("L", 115200, false, opener)
	right := matrix.New("R", 115200, false, opener)
	frame := testsupport.RampFrame(matrix.PairFrameSize)

	var order []string
	opener.Port("L").OnRequest(func(r testsupport.Request) {
		if r.Command == byte(matrix.CmdFlushCols) {
			order = append(order, "left")
		}
	})
	opener.Port("R").OnRequest(func(r testsupport.Request) {
		if r.Command == byte(matrix.CmdFlushCols) {
			order = append(order, "right")
		}
	})

	err := matrix.PairSession(left, right, func(l, r *matrix.Device) error {
		return matrix.RenderPair(l, r, frame)
	})
	if err != nil {
		t.Fatalf("RenderPair: %v", err)
	}
	for _, side := range []struct {
		port   string
		offset int
	}{{"L", 0}, {"R", matrix.Columns}} {
		reqs := opener.Port(side.port).Requests()
		if len(reqs) != matrix.Columns+1 {
			t.Fatalf("%s: expected 10 requests, got %d", side.port, len(reqs))
		}
		for i := 0; i < matrix.Columns; i++ {
			global := side.offset + i
			if reqs[i].Params[0] != byte(i) {
				t.Fatalf("%s: column %d staged at index %d", side.port, global, reqs[i].Params[0])
			}
			if !bytes.Equal(reqs[i].Params[1:], frame[global*matrix.Rows:(global+1)*matrix.Rows]) {
				t.Fatalf("%s: column %d payload mismatch", side.port, global)
			}
		}
	}
	if len(order) != 2 || order[0] != "left" || order[1] != "right" {
		t.Fatalf("unexpected flush order %v", order)
	}
}

func TestRoutePairColumn(t *testing.T) {
	tests := []struct {
		col   int
		side  string
		index int
	}{
		{0, "left", 0},
		{8, "left", 8},
		{9, "right", 0},
		{17, "right", 8},
	}
	for _, tt := range tests {
		side, index := matrix.RoutePairColumn("left", "right", tt.col)
		if side != tt.side || index != tt.index {
			t.Fatalf("col %d routed to %s/%d, want %s/%d", tt.col, side, index, tt.side, tt.index)
		}
	}
}

func TestRenderRejectsWrongSize(t *testing.T) {
	if err := matrix.RenderSingle(matrix.NewDevice(&wire{}), make([]byte, 305)); err == nil {
		t.Fatal("expected size error")
	}
	if err := matrix.RenderPair(matrix.NewDevice(&wire{}), matrix.NewDevice(&wire{}), make([]byte, 306)); err == nil {
		t.Fatal("expected pair size error")
	}
}

func TestSessionSurfacesOpenError(t *testing.T) {
	opener := testsupport.NewFakeOpener()
	opener.FailOpen("/dev/ttyACM9", errors.New("no such device"))
	m := matrix.New("/dev/ttyACM9", 115200, false, opener)
	called := false
	err := m.Session(func(*matrix.Device) error { called = true; return nil })
	if err == nil || called {
		t.Fatalf("expected open failure before fn runs, err=%v called=%v", err, called)
	}
}
