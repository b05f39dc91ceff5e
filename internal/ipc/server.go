package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledmatrix/internal/faults"
	"ledmatrix/internal/logging"
)

const (
	defaultReadTimeout = 10 * time.Second
	writeTimeout       = 2 * time.Second
	maxRequestBytes    = 32 << 20
)

// Handler executes one validated command.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Command) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (*Response, error) {
	return f(ctx, cmd)
}

// Server accepts one newline-terminated JSON command per connection over a
// unix socket. Connections are served strictly one at a time.
type Server struct {
	path        string
	handler     Handler
	logger      *slog.Logger
	listener    net.Listener
	readTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithReadTimeout bounds how long a client may take to send its request line.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// NewServer listens on path. A leading "@" selects a Linux abstract socket;
// otherwise a stale socket file is removed first.
func NewServer(ctx context.Context, path string, handler Handler, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if handler == nil {
		return nil, errors.New("ipc server requires handler")
	}
	if !isAbstract(path) {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("remove existing socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		path:        path,
		handler:     handler,
		logger:      logging.NewComponentLogger(logger, "ipc"),
		listener:    listener,
		readTimeout: defaultReadTimeout,
		ctx:         serverCtx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the socket address.
func (s *Server) Path() string { return s.path }

// Serve starts the accept loop in the background.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.serveConn(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if isAbstract(s.path) {
		return
	}
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may confuse clients"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	ctx := logging.WithCorrelationID(s.ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	line, err := readLine(conn)
	if err != nil {
		logging.WarnWithContext(logger, "read request failed", "ipc_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "client must send one newline-terminated JSON command"))
		s.reply(conn, logger, ErrorResponse("", faults.Wrap(faults.ErrInvalidCommand, "read request", "", err)))
		return
	}

	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		logging.WarnWithContext(logger, "decode request failed", "ipc_decode_failed", logging.Error(err))
		s.reply(conn, logger, ErrorResponse("", faults.Wrap(faults.ErrInvalidCommand, "decode request", "", err)))
		return
	}
	logger = logger.With(logging.String(logging.FieldCommand, string(cmd.Kind)))

	if err := cmd.Validate(); err != nil {
		logging.WarnWithContext(logger, "command rejected", "ipc_command_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the payload size or column index"))
		s.reply(conn, logger, ErrorResponse(cmd.Kind, err))
		return
	}

	logger.Debug("command received", logging.String(logging.FieldEventType, "ipc_command"))
	resp, err := s.handler.Handle(ctx, cmd)
	if err != nil {
		logging.WarnWithContext(logger, "command failed", "ipc_command_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the matrix is attached"))
		s.reply(conn, logger, ErrorResponse(cmd.Kind, err))
		return
	}
	if resp != nil && cmd.NeedsResponse() {
		s.reply(conn, logger, resp)
	}
}

func (s *Server) reply(conn net.Conn, logger *slog.Logger, resp *Response) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		logger.Debug("write response failed", logging.Error(err))
	}
}

// readLine reads one newline-terminated record. A final record without the
// newline is accepted when the peer closes its write side.
func readLine(r io.Reader) ([]byte, error) {
	reader := bufio.NewReader(io.LimitReader(r, maxRequestBytes))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(strings.TrimSpace(string(line))) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line, nil
}

func isAbstract(path string) bool {
	return strings.HasPrefix(path, "@")
}
