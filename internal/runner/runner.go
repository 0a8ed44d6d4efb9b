// Package runner invokes the external worker tool that answers prompts.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CLI runs prompts through a command-line AI tool as a one-shot subprocess.
type CLI struct {
	tool        string
	displayName string
}

func NewCLI(tool, displayName string) *CLI {
	return &CLI{tool: tool, displayName: displayName}
}

func (c *CLI) Name() string { return c.tool }

// Run executes the tool with the given prompt and resolves its output to the
// final response text: trimmed stdout when present, otherwise trimmed stderr
// prefixed with "Error: ", otherwise a fixed fallback. A non-zero exit with
// captured output is not a failure; the returned error is non-nil only when
// the process could not be spawned or communicated with, and the job should
// be recorded as failed.
func (c *CLI) Run(ctx context.Context, prompt string) (string, error) {
	args := c.buildArgs(prompt)

	slog.Debug("worker exec", "tool", c.tool, "args_count", len(args))

	cmd := exec.CommandContext(ctx, c.tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("run %s: %w", c.tool, err)
		}
		// The tool exited non-zero but ran; whatever it wrote is the answer.
		slog.Debug("worker exited non-zero", "tool", c.tool, "err", err)
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		return out, nil
	}
	if errText := strings.TrimSpace(stderr.String()); errText != "" {
		return "Error: " + errText, nil
	}
	return fmt.Sprintf("%s completed but returned no output.", c.displayName), nil
}

// buildArgs selects the non-interactive auto-confirm invocation for known
// tools; unknown tools get the bare prompt.
func (c *CLI) buildArgs(prompt string) []string {
	switch c.tool {
	case "gemini":
		return []string{"-y", "-p", prompt}
	case "claude":
		return []string{"--print", "--dangerously-skip-permissions", prompt}
	case "codex":
		return []string{"exec", "--full-auto", prompt}
	default:
		return []string{prompt}
	}
}
