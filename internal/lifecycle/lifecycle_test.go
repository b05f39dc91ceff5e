package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"ledmatrix/internal/faults"
)

func TestRunServiceCreatesAndRemovesPIDFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "ledmatrixd.pid")

	var seen int
	err := runService(context.Background(), pidFile, func(context.Context, func(error)) error {
		pid, err := ReadPID(pidFile)
		if err != nil {
			return err
		}
		seen = pid
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("runService: %v", err)
	}
	if seen != os.Getpid() {
		t.Fatalf("expected pid %d in file, got %d", os.Getpid(), seen)
	}
	if _, err := os.Stat(pidFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestExistingPIDFileIsReported(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "ledmatrixd.pid")
	if err := os.WriteFile(pidFile, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ran := false
	err := runService(context.Background(), pidFile, func(context.Context, func(error)) error {
		ran = true
		return nil
	}, nil)
	if !errors.Is(err, ErrAlreadyRunning) || !errors.Is(err, faults.ErrPlatform) {
		t.Fatalf("expected already-running platform error, got %v", err)
	}
	if ran {
		t.Fatal("body must not run when the pid file exists")
	}
	if pid, _ := ReadPID(pidFile); pid != 4242 {
		t.Fatal("existing pid file must be left alone")
	}
}

func TestBodyErrorPropagates(t *testing.T) {
	want := errors.New("boom")
	err := runService(context.Background(), "", func(context.Context, func(error)) error { return want }, nil)
	if !errors.Is(err, want) {
		t.Fatalf("expected body error, got %v", err)
	}
}

func TestReadyReportsStartupOutcomeOnce(t *testing.T) {
	t.Run("ready before serving", func(t *testing.T) {
		var outcomes []error
		ctx, cancel := context.WithCancel(context.Background())
		err := runService(ctx, "", func(ctx context.Context, ready func(error)) error {
			ready(nil)
			if len(outcomes) != 1 || outcomes[0] != nil {
				t.Errorf("expected success reported while serving, got %v", outcomes)
			}
			cancel()
			<-ctx.Done()
			return errors.New("late failure")
		}, func(err error) { outcomes = append(outcomes, err) })
		if err == nil {
			t.Fatal("expected body error to be returned")
		}
		if len(outcomes) != 1 {
			t.Fatalf("expected one outcome, got %v", outcomes)
		}
	})

	t.Run("startup failure", func(t *testing.T) {
		want := errors.New("listen unix: address already in use")
		var outcomes []error
		err := runService(context.Background(), "", func(_ context.Context, ready func(error)) error {
			ready(want)
			return want
		}, func(err error) { outcomes = append(outcomes, err) })
		if !errors.Is(err, want) || len(outcomes) != 1 || !errors.Is(outcomes[0], want) {
			t.Fatalf("err=%v outcomes=%v", err, outcomes)
		}
	})

	t.Run("body exits without ready", func(t *testing.T) {
		want := errors.New("lock held")
		var outcomes []error
		_ = runService(context.Background(), "", func(context.Context, func(error)) error {
			return want
		}, func(err error) { outcomes = append(outcomes, err) })
		if len(outcomes) != 1 || !errors.Is(outcomes[0], want) {
			t.Fatalf("expected body error as outcome, got %v", outcomes)
		}
	})

	t.Run("pid file conflict", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "ledmatrixd.pid")
		if err := os.WriteFile(pidFile, []byte("4242\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		var outcomes []error
		_ = runService(context.Background(), pidFile, func(context.Context, func(error)) error {
			t.Error("body must not run")
			return nil
		}, func(err error) { outcomes = append(outcomes, err) })
		if len(outcomes) != 1 || !errors.Is(outcomes[0], ErrAlreadyRunning) {
			t.Fatalf("expected already-running outcome, got %v", outcomes)
		}
	})
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"valid", strconv.Itoa(123) + "\n", 123, false},
		{"garbage", "abc", 0, true},
		{"zero", "0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := ReadPID(path)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("ReadPID = %d, %v", got, err)
			}
		})
	}
	if _, err := ReadPID(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
