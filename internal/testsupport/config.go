package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ledmatrix/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config with one left matrix and unique temp paths per
// test. The socket lives in a short temp directory so it stays under the
// unix socket path limit.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	sockDir, err := os.MkdirTemp("", "lm")
	if err != nil {
		t.Fatalf("socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })

	cfgVal := config.Default()
	cfgVal.LeftMatrix = &config.Matrix{Port: "/dev/ttyACM0", BaudRate: 115200}
	cfgVal.Paths.Socket = filepath.Join(sockDir, "d.sock")
	cfgVal.Paths.PIDFile = filepath.Join(base, "run", "ledmatrixd.pid")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Daemon.Hotplug = false
	cfgVal.Daemon.VerifyPorts = false

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRightMatrix adds a right matrix on port.
func WithRightMatrix(port string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RightMatrix = &config.Matrix{Port: port, BaudRate: 115200}
	}
}

// WithoutLeftMatrix removes the default left matrix.
func WithoutLeftMatrix() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LeftMatrix = nil
	}
}

// WithSleeping marks the configured matrices as initially sleeping.
func WithSleeping() ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.LeftMatrix != nil {
			b.cfg.LeftMatrix.Sleeping = true
		}
		if b.cfg.RightMatrix != nil {
			b.cfg.RightMatrix.Sleeping = true
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
