package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"claw/internal/db"

	"github.com/spf13/cobra"
)

type statusJobCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Delivered  int `json:"delivered"`
}

type statusOutput struct {
	Running   bool            `json:"running"`
	PID       string          `json:"pid"`
	JobCounts statusJobCounts `json:"job_counts"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and queue depth",
	RunE:  runStatus,
}

var statusShort bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusShort, "short", false, "print one-line status summary")
}

func renderShortStatusSummary(running bool, pending, processing int) string {
	state := "stopped"
	if running {
		state = "running"
	}
	return fmt.Sprintf("%s | %d pending, %d processing", state, pending, processing)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Check daemon running.
	running := false
	pidStr := ""
	pidBytes, err := os.ReadFile(cfg.Daemon.PIDFile)
	if err == nil {
		pidStr = strings.TrimSpace(string(pidBytes))
		pid, err := strconv.Atoi(pidStr)
		if err == nil {
			if proc, err := os.FindProcess(pid); err == nil {
				if err := proc.Signal(syscall.Signal(0)); err == nil {
					running = true
				}
			}
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountByStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}

	jobCounts := statusJobCounts{
		Pending:    counts[db.StatusPending],
		Processing: counts[db.StatusProcessing],
		Completed:  counts[db.StatusCompleted],
		Failed:     counts[db.StatusFailed],
		Delivered:  counts[db.StatusDelivered],
	}

	if jsonOut {
		printJSON(statusOutput{
			Running:   running,
			PID:       pidStr,
			JobCounts: jobCounts,
		})
		return nil
	}

	if statusShort {
		fmt.Println(renderShortStatusSummary(running, jobCounts.Pending, jobCounts.Processing))
		return nil
	}

	if running {
		fmt.Printf("Daemon: running (PID %s)\n", pidStr)
	} else {
		fmt.Println("Daemon: stopped")
	}
	fmt.Println()
	fmt.Printf("Queue:     %d pending · %d processing\n", jobCounts.Pending, jobCounts.Processing)
	fmt.Printf("Done:      %d delivered · %d completed\n", jobCounts.Delivered, jobCounts.Completed)
	if jobCounts.Failed > 0 {
		fmt.Printf("Problems:  %d failed\n", jobCounts.Failed)
	}
	return nil
}
