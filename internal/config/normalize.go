package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatrix(c.LeftMatrix)
	c.normalizeMatrix(c.RightMatrix)
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.Socket = strings.TrimSpace(c.Paths.Socket)
	if c.Paths.Socket == "" {
		c.Paths.Socket = defaultSocketPath()
	}
	if !IsAbstractSocket(c.Paths.Socket) {
		if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
			return fmt.Errorf("paths.socket: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.PIDFile) == "" {
		c.Paths.PIDFile = defaultPIDFile()
	}
	if c.Paths.PIDFile, err = expandPath(c.Paths.PIDFile); err != nil {
		return fmt.Errorf("paths.pid_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir()
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatrix(m *Matrix) {
	if m == nil {
		return
	}
	m.Port = strings.TrimSpace(m.Port)
	if m.BaudRate == 0 {
		m.BaudRate = defaultBaudRate
	}
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.KeepaliveInterval == 0 {
		c.Daemon.KeepaliveInterval = defaultKeepaliveInterval
	}
	if c.Daemon.IOTimeoutMS == 0 {
		c.Daemon.IOTimeoutMS = defaultIOTimeoutMS
	}
	if c.Daemon.ReadTimeout == 0 {
		c.Daemon.ReadTimeout = defaultReadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
