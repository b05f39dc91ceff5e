package usbport

import (
	"errors"
	"fmt"
	"sort"
)

// Framework LED matrix USB identifiers.
const (
	MatrixVendorID     uint16 = 0x32AC
	MatrixProductID    uint16 = 0x0020
	MatrixAltProductID uint16 = 0x001F
)

// ErrUnsupported is returned where the platform offers no way to identify
// serial ports. Callers treat it as "skip verification".
var ErrUnsupported = errors.New("port identification not supported on this platform")

// ID is a USB vendor/product pair.
type ID struct {
	VendorID  uint16
	ProductID uint16
}

// IsMatrix reports whether id belongs to an LED matrix module.
func (id ID) IsMatrix() bool {
	return id.VendorID == MatrixVendorID && (id.ProductID == MatrixProductID || id.ProductID == MatrixAltProductID)
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.VendorID, id.ProductID)
}

// Port is one serial port discovered by List.
type Port struct {
	Path string
	ID   ID
}

// Matrices filters ports down to LED matrix modules.
func Matrices(ports []Port) []Port {
	var out []Port
	for _, p := range ports {
		if p.ID.IsMatrix() {
			out = append(out, p)
		}
	}
	return out
}

func sortPorts(ports []Port) {
	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
}
