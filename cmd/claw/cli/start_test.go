package cli

import (
	"errors"
	"strings"
	"testing"

	"claw/internal/config"
)

func TestRunStartWithConfigLoadFailure(t *testing.T) {
	expectedErr := errors.New("no config")
	err := runStartWith(
		func() (*config.Config, error) { return nil, expectedErr },
		func(string) bool {
			t.Fatal("isDaemonRunning should not be called")
			return false
		},
		func(*config.Config) error {
			t.Fatal("runForeground should not be called")
			return nil
		},
		func(*config.Config) error {
			t.Fatal("runBackground should not be called")
			return nil
		},
	)
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected config error %v, got %v", expectedErr, err)
	}
}

func TestRunStartWithDaemonAlreadyRunning(t *testing.T) {
	cfg := &config.Config{
		Daemon: config.DaemonConfig{PIDFile: "/tmp/claw.pid"},
	}
	err := runStartWith(
		func() (*config.Config, error) { return cfg, nil },
		func(string) bool { return true },
		func(*config.Config) error {
			t.Fatal("runForeground should not be called")
			return nil
		},
		func(*config.Config) error {
			t.Fatal("runBackground should not be called")
			return nil
		},
	)
	if err == nil || !strings.Contains(err.Error(), "daemon is already running") {
		t.Fatalf("expected daemon already running error, got %v", err)
	}
}

func TestRunStartWithForegroundFlag(t *testing.T) {
	prevForeground := foreground
	foreground = true
	t.Cleanup(func() { foreground = prevForeground })

	cfg := &config.Config{
		Daemon: config.DaemonConfig{PIDFile: "/tmp/claw.pid"},
	}
	fgCalled := false
	err := runStartWith(
		func() (*config.Config, error) { return cfg, nil },
		func(string) bool { return false },
		func(*config.Config) error {
			fgCalled = true
			return nil
		},
		func(*config.Config) error {
			t.Fatal("runBackground should not be called")
			return nil
		},
	)
	if err != nil {
		t.Fatalf("runStartWith: %v", err)
	}
	if !fgCalled {
		t.Fatal("expected foreground runner to be called")
	}
}

func TestRunStartWithBackgroundDefault(t *testing.T) {
	prevForeground := foreground
	foreground = false
	t.Cleanup(func() { foreground = prevForeground })

	cfg := &config.Config{
		Daemon: config.DaemonConfig{PIDFile: "/tmp/claw.pid"},
	}
	bgCalled := false
	err := runStartWith(
		func() (*config.Config, error) { return cfg, nil },
		func(string) bool { return false },
		func(*config.Config) error {
			t.Fatal("runForeground should not be called")
			return nil
		},
		func(*config.Config) error {
			bgCalled = true
			return nil
		},
	)
	if err != nil {
		t.Fatalf("runStartWith: %v", err)
	}
	if !bgCalled {
		t.Fatal("expected background runner to be called")
	}
}
