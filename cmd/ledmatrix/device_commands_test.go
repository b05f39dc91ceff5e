package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledmatrix/internal/matrix"
	"ledmatrix/internal/testsupport"
)

func TestBrightnessSetAndGet(t *testing.T) {
	env := setupCLITestEnv(t)
	port := env.opener.Port(leftPort)

	if _, err := env.run(t, "brightness", "left", "0x40"); err != nil {
		t.Fatalf("set brightness: %v", err)
	}
	reqs := port.Requests()
	if len(reqs) != 1 || reqs[0].Command != byte(matrix.CmdBrightness) || string(reqs[0].Params) != "\x40" {
		t.Fatalf("unexpected requests %+v", reqs)
	}

	port.Respond(byte(matrix.CmdBrightness), 64)
	out, err := env.run(t, "brightness", "left")
	if err != nil {
		t.Fatalf("get brightness: %v", err)
	}
	requireContains(t, out, "Left: 64")
}

func TestQueryReportsMissingSide(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "sleep", "both")
	if err != nil {
		t.Fatalf("sleep both: %v", err)
	}
	requireContains(t, out, "Left: no")
	requireContains(t, out, "Right: not configured")
	if n := len(env.opener.Port(leftPort).Requests()); n != 0 {
		t.Fatalf("sleep query touched the device %d times", n)
	}
}

func TestVersionOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	env.opener.Port(leftPort).Respond(byte(matrix.CmdVersion), 0x00, 0x51, 0x01)

	out, err := env.run(t, "version", "left")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "Left: v0.5.1-pre")
}

func TestPercentagePattern(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "pattern", "left", "percentage", "50"); err != nil {
		t.Fatalf("pattern: %v", err)
	}
	reqs := env.opener.Port(leftPort).Requests()
	if len(reqs) != 1 || reqs[0].Command != byte(matrix.CmdPattern) {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	if p := reqs[0].Params; len(p) != 2 || p[1] != 50 {
		t.Fatalf("pattern params = %v", p)
	}

	if _, err := env.run(t, "pattern", "left", "percentage"); err == nil {
		t.Fatal("expected missing percentage to fail")
	}
	if _, err := env.run(t, "pattern", "left", "spiral"); err == nil {
		t.Fatal("expected unknown pattern to fail")
	}
}

func TestStageColumnPairRoutesToRight(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithRightMatrix(rightPort))

	if _, err := env.run(t, "stage-col", "pair", "17", columnValues(7)); err != nil {
		t.Fatalf("stage-col: %v", err)
	}
	if n := len(env.opener.Port(leftPort).Requests()); n != 0 {
		t.Fatalf("left matrix got %d requests", n)
	}
	reqs := env.opener.Port(rightPort).Requests()
	if len(reqs) != 1 || reqs[0].Command != byte(matrix.CmdStageCol) || reqs[0].Params[0] != 8 {
		t.Fatalf("unexpected right requests %+v", reqs)
	}
}

func TestRenderRawFrame(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(t.TempDir(), "frame.bin")
	if err := os.WriteFile(path, testsupport.RampFrame(matrix.FrameSize), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	if _, err := env.run(t, "render", "left", path); err != nil {
		t.Fatalf("render: %v", err)
	}
	cmds := env.opener.Port(leftPort).Commands()
	stages, flushes := 0, 0
	for _, c := range cmds {
		switch c {
		case byte(matrix.CmdStageCol):
			stages++
		case byte(matrix.CmdFlushCols):
			flushes++
		}
	}
	if stages != matrix.Columns || flushes != 1 {
		t.Fatalf("got %d stages and %d flushes", stages, flushes)
	}
}

func TestRenderRejectsShortFrame(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(t.TempDir(), "short.bin")
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	if _, err := env.run(t, "render", "left", path); err == nil {
		t.Fatal("expected short frame to be rejected")
	}
	if n := len(env.opener.Port(leftPort).Requests()); n != 0 {
		t.Fatalf("short frame reached the device (%d requests)", n)
	}
}

func TestDrawBWAcceptsHex(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "draw-bw", "left", strings.Repeat("ff", matrix.BitmapSize)); err != nil {
		t.Fatalf("draw-bw: %v", err)
	}
	reqs := env.opener.Port(leftPort).Requests()
	if len(reqs) != 1 || reqs[0].Command != byte(matrix.CmdDrawBW) || len(reqs[0].Params) != matrix.BitmapSize {
		t.Fatalf("unexpected requests %+v", reqs)
	}
}

func TestCommandWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := runCLI(t, []string{"flush-cols", "left"}, socket, "")
	if err == nil {
		t.Fatal("expected connection error")
	}
	requireContains(t, err.Error(), "ledmatrix start")
}
