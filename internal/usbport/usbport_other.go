//go:build !linux

package usbport

// Identify is unavailable off Linux; OS registry enumeration is left to
// platform tooling.
func Identify(string) (ID, error) {
	return ID{}, ErrUnsupported
}

// List is unavailable off Linux.
func List() ([]Port, error) {
	return nil, ErrUnsupported
}
