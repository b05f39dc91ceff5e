package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledmatrix/internal/ipc"
	"ledmatrix/internal/matrix"
)

var patternKinds = map[string]ipc.Kind{
	"percentage":       ipc.KindPatternPercentage,
	"gradient":         ipc.KindPatternGradient,
	"double-gradient":  ipc.KindPatternDoubleGradient,
	"lotus-horizontal": ipc.KindPatternLotusHorizontal,
	"lotus-vertical":   ipc.KindPatternLotusVertical,
	"zigzag":           ipc.KindPatternZigzag,
	"full-bright":      ipc.KindPatternFullBright,
	"panic":            ipc.KindPatternPanic,
}

func newDeviceCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newBrightnessCommand(ctx),
		newPatternCommand(ctx),
		newToggleCommand(ctx, "sleep", "Put a matrix to sleep or wake it, or show its sleep state", ipc.KindSetSleep, ipc.KindGetSleep),
		newToggleCommand(ctx, "animate", "Start or stop firmware scrolling, or show whether it is on", ipc.KindSetAnimate, ipc.KindGetAnimate),
		newFlagCommand(ctx, "flush-cols", "Display the staged columns", ipc.KindFlushColumns),
		newFlagCommand(ctx, "bootloader", "Reboot a matrix into its bootloader", ipc.KindBootloader),
		newFlagCommand(ctx, "crash", "Make the matrix firmware panic", ipc.KindCrash),
		newVersionCommand(ctx),
		newStageColumnCommand(ctx),
		newDrawBWCommand(ctx),
		newRenderCommand(ctx),
	}
}

func newBrightnessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "brightness <left|right|both> [level]",
		Short: "Set or show the global brightness",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], false)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				resp, err := query(cmd, ctx, sel.flagged(ipc.KindGetBrightness))
				if err != nil {
					return err
				}
				printSides(cmd.OutOrStdout(), sel, resp.Brightness, func(v uint8) string { return fmt.Sprint(v) })
				return nil
			}

			level, err := parseByte(args[1])
			if err != nil {
				return err
			}
			c := ipc.Command{Kind: ipc.KindSetBrightness}
			for _, side := range sel.sides() {
				c.Value.Set(side, level)
			}
			_, err = ctx.send(cmd.Context(), c)
			return err
		},
	}
}

func newPatternCommand(ctx *commandContext) *cobra.Command {
	names := make([]string, 0, len(patternKinds))
	for name := range patternKinds {
		names = append(names, name)
	}
	return &cobra.Command{
		Use:       "pattern <left|right|both> <name> [percent]",
		Short:     "Show a built-in firmware pattern",
		Long:      "Show a built-in firmware pattern. Names: percentage, gradient, double-gradient, lotus-horizontal, lotus-vertical, zigzag, full-bright, panic.",
		Args:      cobra.RangeArgs(2, 3),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], false)
			if err != nil {
				return err
			}
			kind, ok := patternKinds[strings.ToLower(args[1])]
			if !ok {
				return fmt.Errorf("unknown pattern %q", args[1])
			}

			c := sel.flagged(kind)
			if kind == ipc.KindPatternPercentage {
				if len(args) != 3 {
					return errors.New("percentage pattern needs a value")
				}
				pct, err := parseByte(args[2])
				if err != nil {
					return err
				}
				c = ipc.Command{Kind: kind}
				for _, side := range sel.sides() {
					c.Value.Set(side, pct)
				}
			}
			_, err = ctx.send(cmd.Context(), c)
			return err
		},
	}
}

func newToggleCommand(ctx *commandContext, use, short string, set, get ipc.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <left|right|both> [on|off]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], false)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				resp, err := query(cmd, ctx, sel.flagged(get))
				if err != nil {
					return err
				}
				values := resp.Sleeping
				if get == ipc.KindGetAnimate {
					values = resp.Animating
				}
				printSides(cmd.OutOrStdout(), sel, values, yesNo)
				return nil
			}

			on, err := parseToggle(args[1])
			if err != nil {
				return err
			}
			c := ipc.Command{Kind: set}
			for _, side := range sel.sides() {
				c.Toggle.Set(side, on)
			}
			_, err = ctx.send(cmd.Context(), c)
			return err
		},
	}
}

func newFlagCommand(ctx *commandContext, use, short string, kind ipc.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <left|right|both>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], false)
			if err != nil {
				return err
			}
			_, err = ctx.send(cmd.Context(), sel.flagged(kind))
			return err
		},
	}
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version <left|right|both>",
		Short: "Show the firmware version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], false)
			if err != nil {
				return err
			}
			resp, err := query(cmd, ctx, sel.flagged(ipc.KindVersion))
			if err != nil {
				return err
			}
			printSides(cmd.OutOrStdout(), sel, resp.Version, matrix.Version.String)
			return nil
		},
	}
}

func newStageColumnCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stage-col <left|right|both|pair> <column> <values>",
		Short: "Stage one column of 34 grayscale values",
		Long: "Stage one column of 34 comma-separated grayscale values for a later flush-cols.\n" +
			"With pair, columns 0-8 land on the left matrix and 9-17 on the right.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], true)
			if err != nil {
				return err
			}
			col, err := parseByte(args[1])
			if err != nil {
				return err
			}
			values, err := parseBytes(args[2])
			if err != nil {
				return err
			}

			var c ipc.Command
			if sel.pair {
				c, err = ipc.PairColumn(int(col), values)
				if err != nil {
					return err
				}
			} else {
				c = ipc.Command{Kind: ipc.KindStageColumn}
				for _, side := range sel.sides() {
					c.Column.Set(side, ipc.Column{Index: col, Values: values})
				}
			}
			_, err = ctx.send(cmd.Context(), c)
			return err
		},
	}
}

func newDrawBWCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "draw-bw <left|right|both> <bitmap>",
		Short: "Draw a 39-byte black and white bitmap",
		Long:  "Draw a packed 1-bit bitmap given as 78 hex digits or 39 comma-separated byte values.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], false)
			if err != nil {
				return err
			}
			bitmap, err := parseBitmap(args[1])
			if err != nil {
				return err
			}
			c := ipc.Command{Kind: ipc.KindDrawBW}
			for _, side := range sel.sides() {
				c.Bitmap.Set(side, bitmap)
			}
			_, err = ctx.send(cmd.Context(), c)
			return err
		},
	}
}

func parseBitmap(arg string) ([]byte, error) {
	if strings.ContainsAny(arg, ", ") {
		return parseBytes(arg)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(arg, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("invalid bitmap: %w", err)
	}
	return b, nil
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var loop bool
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "render <left|right|both|pair> <file|->",
		Short: "Render grayscale frames",
		Long: "Render grayscale frames from a file. Raw input is one or more concatenated\n" +
			"column-major frames (306 bytes each, 612 for pair) shown for --duration each.\n" +
			"With --json the file holds [{\"pixels\": <base64>, \"duration_ms\": n}, ...].",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[0], true)
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			size := matrix.FrameSize
			if sel.pair {
				size = matrix.PairFrameSize
			}
			var frames []ipc.Frame
			if asJSON {
				if err := json.Unmarshal(data, &frames); err != nil {
					return fmt.Errorf("decode frames: %w", err)
				}
			} else {
				frames = splitFrames(data, size, duration)
			}
			if len(frames) == 0 {
				return errors.New("no frames to render")
			}

			c := ipc.Command{Kind: ipc.KindRender, Loop: loop}
			if sel.pair {
				c.Kind = ipc.KindRenderPair
				c.Pair = frames
			} else {
				for _, side := range sel.sides() {
					c.Frames.Set(side, frames)
				}
			}
			_, err = ctx.send(cmd.Context(), c)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Read frames as JSON instead of raw bytes")
	cmd.Flags().BoolVar(&loop, "loop", false, "Repeat the animation until another command preempts it")
	cmd.Flags().DurationVar(&duration, "duration", 100*time.Millisecond, "Display time per raw frame")
	return cmd
}

// splitFrames cuts raw input into size-byte frames. Input that is not a
// whole number of frames is passed through as one frame so validation can
// report its length.
func splitFrames(data []byte, size int, d time.Duration) []ipc.Frame {
	if len(data) == 0 {
		return nil
	}
	if len(data)%size != 0 {
		return []ipc.Frame{{Pixels: data, DurationMS: d.Milliseconds()}}
	}
	frames := make([]ipc.Frame, 0, len(data)/size)
	for off := 0; off < len(data); off += size {
		frames = append(frames, ipc.Frame{Pixels: data[off : off+size], DurationMS: d.Milliseconds()})
	}
	return frames
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// query sends a command that always gets a reply.
func query(cmd *cobra.Command, ctx *commandContext, c ipc.Command) (*ipc.Response, error) {
	resp, err := ctx.send(cmd.Context(), c)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%s: daemon returned no reply", c.Kind)
	}
	return resp, nil
}

func printSides[T any](w io.Writer, sel selection, values ipc.Sides[T], format func(T) string) {
	for _, side := range sel.sides() {
		v := values.Get(side)
		if v == nil {
			fmt.Fprintf(w, "%s: not configured\n", sideLabel(side))
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", sideLabel(side), format(*v))
	}
}
