package cli

import (
	"fmt"
	"strings"

	"claw/internal/db"

	"github.com/spf13/cobra"
)

var (
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs with filters",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "all", "filter by status: all, pending, processing, completed, failed, delivered")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum rows to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	status, err := normalizeListStatus(listStatus)
	if err != nil {
		return err
	}
	if listLimit < 1 {
		return fmt.Errorf("invalid --limit %d; expected >= 1", listLimit)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.ListJobs(cmd.Context(), status, listLimit)
	if err != nil {
		return err
	}

	if jsonOut {
		printJSON(jobs)
		return nil
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found. Run 'claw start' to begin processing messages.")
		return nil
	}

	fmt.Printf("%-6s %-12s %-21s %-21s %-45s %s\n", "ID", "STATUS", "CHANNEL", "AUTHOR", "PROMPT", "CREATED")
	fmt.Println(strings.Repeat("-", 128))

	pending, processing, failed, delivered := 0, 0, 0, 0
	for _, j := range jobs {
		fmt.Printf("%-6d %-12s %-21s %-21s %-45s %s\n",
			j.ID, j.Status, truncate(j.ChannelID, 19), truncate(j.AuthorID, 19),
			truncate(oneLine(j.Prompt), 45), j.CreatedAt)

		switch j.Status {
		case db.StatusPending:
			pending++
		case db.StatusProcessing:
			processing++
		case db.StatusFailed:
			failed++
		case db.StatusDelivered:
			delivered++
		}
	}
	fmt.Printf("Total: %d jobs (%d pending, %d processing, %d failed, %d delivered)\n",
		len(jobs), pending, processing, failed, delivered)
	return nil
}

func normalizeListStatus(status string) (string, error) {
	if status == "all" {
		return "", nil
	}
	if db.IsValidStatus(status) {
		return status, nil
	}
	return "", fmt.Errorf("invalid --status %q (expected one of: all, %s)", status, strings.Join(db.AllStatuses, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// oneLine collapses a multi-line prompt into a single display line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
