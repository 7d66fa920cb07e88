package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"slack_line_mirror/internal/config"
	"slack_line_mirror/internal/line"
	"slack_line_mirror/internal/relay"
	"slack_line_mirror/internal/retry"
	"slack_line_mirror/internal/slack"
	"slack_line_mirror/internal/state"
)

var (
	pullChannel string
	pullLimit   int
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Relay new channel messages to LINE",
	RunE:  pullAction,
}

func init() {
	pullCmd.Flags().StringVarP(&pullChannel, "channel", "c", "", "source channel id (default $SLACK_CHANNEL_ID)")
	pullCmd.Flags().IntVarP(&pullLimit, "limit", "l", 0, "max messages per run (default $FETCH_LIMIT or 50)")
	rootCmd.AddCommand(pullCmd)
}

func pullAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel)

	channel := pullChannel
	if channel == "" {
		channel = cfg.SlackChannelID
	}
	limit := pullLimit
	if limit <= 0 {
		limit = cfg.FetchLimit
	}

	db, err := openStorage(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store := state.New(cfg.StatePath, log)
	fetcher := slack.New(cfg.SlackBotToken, http.DefaultClient, log)
	pusher := line.New(cfg.LineChannelToken, cfg.LineToUserID, http.DefaultClient)

	r := relay.New(store, fetcher, pusher, db, log)
	r.SetFetchPolicy(retry.Policy{MaxRetries: cfg.FetchRetries})
	r.SetPushPolicy(retry.Policy{MaxRetries: cfg.PushRetries})

	summary, runErr := r.Run(cmd.Context(), channel, limit)

	mode := "push"
	if pusher.Broadcast() {
		mode = "broadcast"
	}
	// The summary prints on success and failure alike: a partial batch
	// must never fail silently.
	fmt.Printf("Fetched %d, delivered %d (%s), skipped %d, failed %d, watermark %.6f\n",
		summary.Fetched, summary.Delivered, mode, summary.Skipped, summary.Failed, summary.Watermark)

	return runErr
}
