package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledmatrix/internal/config"
	"ledmatrix/internal/daemon"
	"ledmatrix/internal/ipc"
	"ledmatrix/internal/logging"
	"ledmatrix/internal/testsupport"
)

const (
	leftPort  = "/dev/ttyACM0"
	rightPort = "/dev/ttyACM1"
)

type cliTestEnv struct {
	cfg        *config.Config
	opener     *testsupport.FakeOpener
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "ledmatrixd.toml")
	writeTestConfig(t, configPath, cfg)

	opener := testsupport.NewFakeOpener()
	d, err := daemon.New(cfg, opener, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.Paths.Socket, d, logging.NewNop())
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		opener:     opener,
		daemon:     d,
		socketPath: cfg.Paths.Socket,
		configPath: configPath,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.socketPath, e.configPath)
	return out, err
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	for _, m := range []struct {
		table string
		m     *config.Matrix
	}{{"left_matrix", cfg.LeftMatrix}, {"right_matrix", cfg.RightMatrix}} {
		if m.m == nil {
			continue
		}
		fmt.Fprintf(&b, "[%s]\nport = %q\nbaudrate = %d\nsleeping = %t\n\n", m.table, m.m.Port, m.m.BaudRate, m.m.Sleeping)
	}
	fmt.Fprintf(&b, "[paths]\nsocket = %q\npid_file = %q\nstate_dir = %q\nlog_dir = %q\n\n",
		cfg.Paths.Socket, cfg.Paths.PIDFile, cfg.Paths.StateDir, cfg.Paths.LogDir)
	b.WriteString("[daemon]\nhotplug = false\nverify_ports = false\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func columnValues(fill byte) string {
	parts := make([]string, 34)
	for i := range parts {
		parts[i] = fmt.Sprint(fill)
	}
	return strings.Join(parts, ",")
}
