package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"ledmatrix/internal/config"
	"ledmatrix/internal/ipc"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	loadedPath   string
	loadedExists bool
	configErr    error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.loadedPath, c.loadedExists = path, exists
		if socket := c.flagSocket(); socket != "" {
			cfg.Paths.Socket = socket
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// resolvedConfigPath is the file the configuration was read from, empty when
// defaults were used.
func (c *commandContext) resolvedConfigPath() string {
	if _, err := c.ensureConfig(); err != nil || !c.loadedExists {
		return ""
	}
	return c.loadedPath
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) flagSocket() string {
	if c.socketFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.socketFlag)
}

func (c *commandContext) socketPath() string {
	if socket := c.flagSocket(); socket != "" {
		return socket
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.Socket
	}
	return config.Default().Paths.Socket
}

// send delivers one command to the daemon and returns its reply, nil for
// commands that have none.
func (c *commandContext) send(ctx context.Context, cmd ipc.Command) (*ipc.Response, error) {
	socket := c.socketPath()
	resp, err := ipc.Send(ctx, socket, cmd, ipc.DefaultTimeout)
	if err != nil {
		var wireErr *ipc.WireError
		if errors.As(err, &wireErr) {
			return nil, fmt.Errorf("%s: %w", cmd.Kind, err)
		}
		return nil, wrapDialError(err, socket)
	}
	return resp, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `ledmatrix start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
