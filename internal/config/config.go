package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ledmatrix/internal/faults"
)

//go:embed sample_config.toml
var sampleConfig string

// Matrix describes one attached LED matrix module.
type Matrix struct {
	Port     string `toml:"port"`
	BaudRate int    `toml:"baudrate"`
	Sleeping bool   `toml:"sleeping"`
}

// Paths contains socket, PID file, and directory locations.
type Paths struct {
	Socket   string `toml:"socket"`
	PIDFile  string `toml:"pid_file"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Daemon contains timing and device-handling knobs.
type Daemon struct {
	KeepaliveInterval int  `toml:"keepalive_interval"`
	IOTimeoutMS       int  `toml:"io_timeout_ms"`
	ReadTimeout       int  `toml:"read_timeout"`
	VerifyPorts       bool `toml:"verify_ports"`
	Hotplug           bool `toml:"hotplug"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the daemon and CLI.
//
// Either matrix table may be omitted; the daemon refuses to start without at
// least one, but client commands only need the socket path.
type Config struct {
	LeftMatrix  *Matrix `toml:"left_matrix"`
	RightMatrix *Matrix `toml:"right_matrix"`
	Paths       Paths   `toml:"paths"`
	Daemon      Daemon  `toml:"daemon"`
	Logging     Logging `toml:"logging"`
}

// DefaultConfigPath returns the system-wide configuration file location.
func DefaultConfigPath() string {
	return systemConfigPath()
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, faults.Wrap(faults.ErrConfig, "open config", resolvedPath, err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, faults.Wrap(faults.ErrConfig, "parse config", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, faults.Wrap(faults.ErrConfig, "normalize config", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, faults.Wrap(faults.ErrConfig, "stat config", expanded, err)
		}
		return expanded, true, nil
	}

	candidates := []string{systemConfigPath()}
	if userPath, err := expandPath("~/.config/ledmatrixd/config.toml"); err == nil {
		candidates = append(candidates, userPath)
	}
	if projectPath, err := filepath.Abs("ledmatrixd.toml"); err == nil {
		candidates = append(candidates, projectPath)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Paths.PIDFile)}
	if !IsAbstractSocket(c.Paths.Socket) {
		dirs = append(dirs, filepath.Dir(c.Paths.Socket))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the single-instance lock file inside the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

// KeepaliveInterval returns the keepalive period.
func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.Daemon.KeepaliveInterval) * time.Second
}

// IOTimeout returns the serial read timeout.
func (c *Config) IOTimeout() time.Duration {
	return time.Duration(c.Daemon.IOTimeoutMS) * time.Millisecond
}

// ReadTimeout bounds how long the IPC server waits for one request line.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Daemon.ReadTimeout) * time.Second
}

// IsAbstractSocket reports whether path names a Linux abstract socket.
func IsAbstractSocket(path string) bool {
	return strings.HasPrefix(path, "@")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
