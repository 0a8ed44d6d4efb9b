package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <job-id>",
	Short: "Dump the full prompt and response for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	jobID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	job, err := store.GetJob(cmd.Context(), jobID)
	if err != nil {
		return err
	}

	if jsonOut {
		printJSON(job)
		return nil
	}

	fmt.Printf("Job: %d  Status: %s  Created: %s\n", job.ID, job.Status, job.CreatedAt)
	fmt.Printf("Channel: %s  Author: %s  Message: %s\n", job.ChannelID, job.AuthorID, job.MessageID)
	fmt.Println()

	fmt.Println("=== Prompt ===")
	fmt.Println(strings.TrimSpace(job.Prompt))

	if job.Response != "" {
		fmt.Println("\n=== Response ===")
		fmt.Println(strings.TrimSpace(job.Response))
	}

	return nil
}
