package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	defaultBaudRate          = 115200
	defaultKeepaliveInterval = 45
	defaultIOTimeoutMS       = 1000
	defaultReadTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 14
	defaultSocketName        = "ledmatrixd.socket"
	lockFileName             = "ledmatrixd.lock"
)

// Default returns a Config populated with platform defaults and no matrices.
func Default() Config {
	return Config{
		Paths: Paths{
			Socket:   defaultSocketPath(),
			PIDFile:  defaultPIDFile(),
			StateDir: defaultStateDir(),
			LogDir:   defaultLogDir(),
		},
		Daemon: Daemon{
			KeepaliveInterval: defaultKeepaliveInterval,
			IOTimeoutMS:       defaultIOTimeoutMS,
			ReadTimeout:       defaultReadTimeout,
			VerifyPorts:       true,
			Hotplug:           true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultSocketPath() string {
	switch runtime.GOOS {
	case "linux":
		return "@" + defaultSocketName
	case "windows":
		return filepath.Join(programData(), "ledmatrixd", defaultSocketName)
	default:
		return filepath.Join(os.TempDir(), defaultSocketName)
	}
}

func defaultPIDFile() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "ledmatrixd", "ledmatrixd.pid")
	}
	return "/run/ledmatrixd.pid"
}

func defaultStateDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "ledmatrixd")
	}
	return "/run/ledmatrixd"
}

func defaultLogDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "ledmatrixd", "logs")
	}
	return "/var/log/ledmatrixd"
}

func systemConfigPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "ledmatrixd", "config.toml")
	}
	return "/etc/ledmatrixd/config.toml"
}

func programData() string {
	if dir := os.Getenv("ProgramData"); dir != "" {
		return dir
	}
	return `C:\ProgramData`
}
