package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout bounds a client round trip. Synchronous commands hold the
// connection until the daemon has finished talking to the device.
const DefaultTimeout = 10 * time.Second

// Send validates cmd, writes it to the daemon at path, and waits for the
// daemon to close the connection. Commands without a reply return a nil
// response. A daemon-side failure is returned as a *WireError.
func Send(ctx context.Context, path string, cmd Command, timeout time.Duration) (*Response, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// Probe reports whether a daemon answers on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Command{Kind: KindStatus}, timeout)
	if err == nil {
		return true, nil
	}
	if IsUnavailable(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}

// Status fetches the daemon status.
func Status(ctx context.Context, path string, timeout time.Duration) (*DaemonStatus, error) {
	resp, err := Send(ctx, path, Command{Kind: KindStatus}, timeout)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Status == nil {
		return nil, errors.New("daemon returned no status")
	}
	return resp.Status, nil
}

// IsUnavailable reports dial failures that mean nobody is listening.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
