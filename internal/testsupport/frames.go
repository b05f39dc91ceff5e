package testsupport

// Frame returns a size-byte buffer where every byte is fill.
func Frame(size int, fill byte) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = fill
	}
	return out
}

// RampFrame returns a size-byte buffer whose bytes count up from zero,
// wrapping at 256. Useful for checking column routing.
func RampFrame(size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
