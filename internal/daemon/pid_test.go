package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndReadPID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "claw.pid")
	if err := WritePID(path); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("ReadPID = %d, want %d", pid, os.Getpid())
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "claw.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected error for non-numeric pid file")
	}
}

func TestReadPIDMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ReadPID(filepath.Join(t.TempDir(), "absent.pid")); err == nil {
		t.Fatal("expected error for missing pid file")
	}
}

func TestRemovePIDIgnoresMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "claw.pid")
	RemovePID(path)

	if err := WritePID(path); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	RemovePID(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("pid file still present after RemovePID: %v", err)
	}
}

func TestProcessAlive(t *testing.T) {
	t.Parallel()

	if !ProcessAlive(os.Getpid()) {
		t.Fatal("current process should be alive")
	}
	// PID 0 is never a valid signal target for us.
	if ProcessAlive(0) {
		t.Fatal("pid 0 should not report alive")
	}
}

func TestIsRunning(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "claw.pid")
	if IsRunning(path) {
		t.Fatal("missing pid file should report not running")
	}

	if err := WritePID(path); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if !IsRunning(path) {
		t.Fatal("own pid should report running")
	}
}
