// Package usbport identifies serial ports by their USB vendor and product id.
//
// On Linux the identity is read from the tty's sysfs uevent file and ports
// are enumerated with the go-udev sysfs crawler. Other
// platforms report ErrUnsupported and callers skip verification.
package usbport
