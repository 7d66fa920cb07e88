package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"slack_line_mirror/internal/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent relay runs",
	RunE:  historyAction,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func historyAction(cmd *cobra.Command, _ []string) error {
	paths := config.LoadPaths()
	db, err := openStorage(paths.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet. Run 'mirror pull' first.")
		return nil
	}

	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "FAILED"
		}
		fmt.Printf("#%d  %s  %-6s  channel=%s fetched=%d delivered=%d skipped=%d failed=%d watermark=%.6f\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), status,
			r.ChannelID, r.Fetched, r.Delivered, r.Skipped, r.Failed, r.Watermark)
		if r.Error != "" {
			fmt.Printf("    error: %s\n", r.Error)
		}

		if r.Failed > 0 {
			deliveries, err := db.ListDeliveries(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("list deliveries for run %d: %w", r.ID, err)
			}
			for _, d := range deliveries {
				fmt.Printf("    ts=%s author=%s: %s\n", d.MessageTS, d.AuthorID, d.Error)
			}
		}
	}
	return nil
}
