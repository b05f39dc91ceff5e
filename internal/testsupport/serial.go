package testsupport

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// Request is one protocol request captured by a FakePort.
type Request struct {
	Command byte
	Params  []byte
}

// FakePort emulates a matrix module behind a serial port. It records every
// request and answers parameterless queries from a scripted response table.
type FakePort struct {
	mu        sync.Mutex
	requests  []Request
	responses map[byte][]byte
	writeErr  error
	hook      func(Request)
	opens     int
	closes    int
}

// Respond scripts the reply for a parameterless request with command cmd.
func (p *FakePort) Respond(cmd byte, resp ...byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.responses == nil {
		p.responses = map[byte][]byte{}
	}
	p.responses[cmd] = append([]byte(nil), resp...)
}

// FailWrites makes every later write return err. A nil err clears it.
func (p *FakePort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// OnRequest registers fn to run after each recorded request, outside the
// port lock.
func (p *FakePort) OnRequest(fn func(Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hook = fn
}

// Requests returns a copy of the recorded requests.
func (p *FakePort) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Commands returns the command byte of each recorded request.
func (p *FakePort) Commands() []byte {
	reqs := p.Requests()
	out := make([]byte, len(reqs))
	for i, r := range reqs {
		out[i] = r.Command
	}
	return out
}

// Reset forgets recorded requests.
func (p *FakePort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = nil
}

// Opens reports how many connections have been opened.
func (p *FakePort) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

// Balanced reports whether every opened connection was closed.
func (p *FakePort) Balanced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens == p.closes
}

type fakeConn struct {
	port    *FakePort
	pending bytes.Buffer
}

func (c *fakeConn) Write(b []byte) (int, error) {
	if len(b) < 3 || b[0] != 0x32 || b[1] != 0xAC {
		return 0, errors.New("fake port: malformed request")
	}
	req := Request{Command: b[2], Params: append([]byte(nil), b[3:]...)}

	p := c.port
	p.mu.Lock()
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return 0, err
	}
	p.requests = append(p.requests, req)
	if len(req.Params) == 0 {
		if resp, ok := p.responses[req.Command]; ok {
			c.pending.Write(resp)
		}
	}
	hook := p.hook
	p.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	return len(b), nil
}

func (c *fakeConn) Read(b []byte) (int, error) {
	if c.pending.Len() == 0 {
		return 0, io.EOF
	}
	return c.pending.Read(b)
}

func (c *fakeConn) Close() error {
	c.port.mu.Lock()
	defer c.port.mu.Unlock()
	c.port.closes++
	return nil
}

// FakeOpener hands out connections to FakePorts keyed by port name.
type FakeOpener struct {
	mu      sync.Mutex
	ports   map[string]*FakePort
	openErr map[string]error
}

// NewFakeOpener returns an opener with no ports; ports appear on first use.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{ports: map[string]*FakePort{}, openErr: map[string]error{}}
}

// Port returns the fake device behind name, creating it if needed.
func (o *FakeOpener) Port(name string) *FakePort {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.ports[name]
	if !ok {
		p = &FakePort{}
		o.ports[name] = p
	}
	return p
}

// FailOpen makes opening name return err. A nil err clears it.
func (o *FakeOpener) FailOpen(name string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		delete(o.openErr, name)
		return
	}
	o.openErr[name] = err
}

func (o *FakeOpener) Open(port string, _ int) (io.ReadWriteCloser, error) {
	o.mu.Lock()
	err := o.openErr[port]
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p := o.Port(port)
	p.mu.Lock()
	p.opens++
	p.mu.Unlock()
	return &fakeConn{port: p}, nil
}
