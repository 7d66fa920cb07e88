package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"slack_line_mirror/internal/config"
	"slack_line_mirror/internal/line"
	"slack_line_mirror/internal/slack"
	"slack_line_mirror/internal/state"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, state and API credentials",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := newLogger("error")
	ok := true

	cfg, err := config.Load()
	if err != nil {
		printCheck(false, "config: %v", err)
		ok = false
	} else {
		mode := "broadcast to all subscribers"
		if !cfg.Broadcast() {
			mode = "push to " + cfg.LineToUserID
		}
		printCheck(true, "config (channel %s, %s)", cfg.SlackChannelID, mode)
	}

	paths := config.LoadPaths()

	store := state.New(paths.StatePath, log)
	switch ts, err := store.Load(); {
	case err != nil:
		printCheck(false, "state file %s: %v", paths.StatePath, err)
		ok = false
	case ts == 0:
		printCheck(true, "state file %s (no watermark yet)", paths.StatePath)
	default:
		printCheck(true, "state file %s (watermark %.6f)", paths.StatePath, ts)
	}

	if db, err := openStorage(paths.DatabasePath); err != nil {
		printCheck(false, "ledger %s: %v", paths.DatabasePath, err)
		ok = false
	} else {
		runs, err := db.ListRuns(ctx, 1)
		switch {
		case err != nil:
			printCheck(false, "ledger %s: %v", paths.DatabasePath, err)
			ok = false
		case len(runs) == 0:
			printCheck(true, "ledger %s (no runs yet)", paths.DatabasePath)
		default:
			printCheck(true, "ledger %s (last run #%d)", paths.DatabasePath, runs[0].ID)
		}
		_ = db.Close()
	}

	if cfg != nil {
		sc := slack.New(cfg.SlackBotToken, http.DefaultClient, log)
		if identity, err := sc.CheckAuth(ctx); err != nil {
			printCheck(false, "slack auth: %v", err)
			ok = false
		} else {
			printCheck(true, "slack auth as %s", identity)
		}

		lc := line.New(cfg.LineChannelToken, cfg.LineToUserID, http.DefaultClient)
		if name, err := lc.CheckAuth(ctx); err != nil {
			printCheck(false, "line auth: %v", err)
			ok = false
		} else {
			printCheck(true, "line bot %q", name)
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}
