package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFakeTool creates an executable shell script standing in for the AI CLI.
func writeFakeTool(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-tool")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

func TestRunReturnsTrimmedStdout(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	tool := writeFakeTool(t, tmp, `echo "  42  "`)
	cli := NewCLI(tool, "Fake")

	out, err := cli.Run(context.Background(), "what is the answer")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "42" {
		t.Fatalf("expected trimmed stdout, got %q", out)
	}
}

func TestRunNonZeroExitWithStderrIsNotFailure(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	tool := writeFakeTool(t, tmp, `echo "boom" >&2; exit 3`)
	cli := NewCLI(tool, "Fake")

	out, err := cli.Run(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("non-zero exit must not be a failure: %v", err)
	}
	if out != "Error: boom" {
		t.Fatalf("expected stderr with Error prefix, got %q", out)
	}
}

func TestRunStdoutWinsOverStderr(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	tool := writeFakeTool(t, tmp, `echo "warning" >&2; echo "answer"`)
	cli := NewCLI(tool, "Fake")

	out, err := cli.Run(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "answer" {
		t.Fatalf("expected stdout to win, got %q", out)
	}
}

func TestRunNoOutputFallback(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()

	tool := writeFakeTool(t, tmp, `exit 0`)
	cli := NewCLI(tool, "Fake")

	out, err := cli.Run(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "Fake completed but returned no output." {
		t.Fatalf("unexpected fallback: %q", out)
	}
}

func TestRunMissingExecutableIsFailure(t *testing.T) {
	t.Parallel()

	cli := NewCLI(filepath.Join(t.TempDir(), "does-not-exist"), "Fake")

	_, err := cli.Run(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected spawn error for missing executable")
	}
	if !strings.Contains(err.Error(), "run ") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildArgsKnownTools(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tool string
		want []string
	}{
		{tool: "gemini", want: []string{"-y", "-p", "hello"}},
		{tool: "claude", want: []string{"--print", "--dangerously-skip-permissions", "hello"}},
		{tool: "codex", want: []string{"exec", "--full-auto", "hello"}},
		{tool: "/opt/custom/tool", want: []string{"hello"}},
	}
	for _, tc := range cases {
		cli := NewCLI(tc.tool, "X")
		got := cli.buildArgs("hello")
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.tool, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: expected %v, got %v", tc.tool, tc.want, got)
			}
		}
	}
}

func TestNameReturnsTool(t *testing.T) {
	t.Parallel()

	if got := NewCLI("gemini", "Gemini").Name(); got != "gemini" {
		t.Fatalf("Name() = %q", got)
	}
}
