package config

import (
	"fmt"

	"ledmatrix/internal/faults"
)

// Validate ensures the configuration is usable by the CLI. Daemon startup
// additionally calls RequireMatrices.
func (c *Config) Validate() error {
	if err := c.validateMatrix("left_matrix", c.LeftMatrix); err != nil {
		return err
	}
	if err := c.validateMatrix("right_matrix", c.RightMatrix); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"daemon.keepalive_interval": c.Daemon.KeepaliveInterval,
		"daemon.io_timeout_ms":      c.Daemon.IOTimeoutMS,
		"daemon.read_timeout":       c.Daemon.ReadTimeout,
	}); err != nil {
		return err
	}
	if c.LeftMatrix != nil && c.RightMatrix != nil && c.LeftMatrix.Port == c.RightMatrix.Port {
		return faults.Wrap(faults.ErrConfig, "validate config", fmt.Sprintf("left_matrix and right_matrix share port %q", c.LeftMatrix.Port), nil)
	}
	return nil
}

// RequireMatrices fails when neither matrix is configured.
func (c *Config) RequireMatrices() error {
	if c.LeftMatrix == nil && c.RightMatrix == nil {
		return faults.Wrap(faults.ErrConfig, "validate config", "missing at least one matrix from the config file", nil)
	}
	return nil
}

func (c *Config) validateMatrix(section string, m *Matrix) error {
	if m == nil {
		return nil
	}
	if m.Port == "" {
		return faults.Wrap(faults.ErrConfig, "validate config", section+".port must be set", nil)
	}
	if m.BaudRate <= 0 {
		return faults.Wrap(faults.ErrConfig, "validate config", section+".baudrate must be positive", nil)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return faults.Wrap(faults.ErrConfig, "validate config", key+" must be positive", nil)
		}
	}
	return nil
}
