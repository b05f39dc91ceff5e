package matrix

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"ledmatrix/internal/faults"
	"ledmatrix/internal/usbport"
)

// DefaultIOTimeout bounds every serial read.
const DefaultIOTimeout = time.Second

// Opener obtains an exclusive connection to a serial port.
type Opener interface {
	Open(port string, baud int) (io.ReadWriteCloser, error)
}

// Matrix is the handle for one configured module. Port and BaudRate never
// change; Sleeping mirrors device state the protocol cannot query and is
// guarded by whoever owns the handle.
type Matrix struct {
	Port     string
	BaudRate int
	Sleeping bool

	opener Opener
}

// New builds a handle. A nil opener uses a verifying SerialOpener.
func New(port string, baud int, sleeping bool, opener Opener) *Matrix {
	if opener == nil {
		opener = SerialOpener{ReadTimeout: DefaultIOTimeout, Verify: true}
	}
	return &Matrix{Port: port, BaudRate: baud, Sleeping: sleeping, opener: opener}
}

// Session opens the port, runs fn against it, and closes it again.
func (m *Matrix) Session(fn func(*Device) error) (err error) {
	conn, err := m.opener.Open(m.Port, m.BaudRate)
	if err != nil {
		return fmt.Errorf("open %s: %w", m.Port, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", m.Port, cerr)
		}
	}()
	return fn(NewDevice(conn))
}

// PairSession holds both ports open for the duration of fn.
func PairSession(left, right *Matrix, fn func(l, r *Device) error) error {
	return left.Session(func(l *Device) error {
		return right.Session(func(r *Device) error {
			return fn(l, r)
		})
	})
}

// SerialOpener opens ports at 8N1 without flow control.
type SerialOpener struct {
	ReadTimeout time.Duration
	Verify      bool
}

func (o SerialOpener) Open(port string, baud int) (io.ReadWriteCloser, error) {
	if o.Verify {
		if err := VerifyPort(port); err != nil {
			return nil, err
		}
	}
	timeout := o.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultIOTimeout
	}
	conn, err := serial.OpenPort(&serial.Config{
		Name:        port,
		Baud:        baud,
		ReadTimeout: timeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// VerifyPort checks that port is an LED matrix module. Platforms without port
// identification pass unconditionally.
func VerifyPort(port string) error {
	id, err := usbport.Identify(port)
	switch {
	case errors.Is(err, usbport.ErrUnsupported):
		return nil
	case err != nil:
		return err
	case !id.IsMatrix():
		return faults.Wrap(faults.ErrConfig, "verify port", fmt.Sprintf("port %q is USB device %s, not an LED matrix", port, id), nil)
	}
	return nil
}
