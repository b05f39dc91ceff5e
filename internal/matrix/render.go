package matrix

import "fmt"

// RenderSingle draws a 306-byte column-major grayscale frame: nine column
// stages in ascending order, then one flush.
func RenderSingle(d *Device, frame []byte) error {
	if len(frame) != FrameSize {
		return fmt.Errorf("render: frame has %d bytes, want %d", len(frame), FrameSize)
	}
	for col := 0; col < Columns; col++ {
		if err := d.StageColumn(uint8(col), column(frame, col)); err != nil {
			return err
		}
	}
	return d.FlushColumns()
}

// RenderPair draws a 612-byte frame spanning both modules. Columns 0-8 go to
// left, 9-17 to right at col-9. Left is flushed before right.
func RenderPair(left, right *Device, frame []byte) error {
	if len(frame) != PairFrameSize {
		return fmt.Errorf("render pair: frame has %d bytes, want %d", len(frame), PairFrameSize)
	}
	for col := 0; col < PairColumns; col++ {
		target, index := RoutePairColumn(left, right, col)
		if err := target.StageColumn(uint8(index), column(frame, col)); err != nil {
			return err
		}
	}
	if err := left.FlushColumns(); err != nil {
		return err
	}
	return right.FlushColumns()
}

// RoutePairColumn maps a pair-wide column to the module and local index that
// own it.
func RoutePairColumn[T any](left, right T, col int) (T, int) {
	if col < Columns {
		return left, col
	}
	return right, col - Columns
}

func column(frame []byte, col int) [Rows]byte {
	var out [Rows]byte
	copy(out[:], frame[col*Rows:(col+1)*Rows])
	return out
}
