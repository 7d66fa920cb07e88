package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"slack_line_mirror/internal/config"
	"slack_line_mirror/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted watermark",
	RunE:  stateAction,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the watermark file",
	Long: "Deletes the watermark file. The next pull starts from scratch and\n" +
		"relays only the most recent channel messages.",
	RunE: stateResetAction,
}

func init() {
	stateCmd.AddCommand(stateResetCmd)
	rootCmd.AddCommand(stateCmd)
}

func stateAction(_ *cobra.Command, _ []string) error {
	paths := config.LoadPaths()
	store := state.New(paths.StatePath, newLogger("info"))

	ts, err := store.Load()
	if err != nil {
		return err
	}
	if ts == 0 {
		fmt.Printf("No watermark at %s; the next pull starts fresh.\n", store.Path())
		return nil
	}

	sec := int64(ts)
	at := time.Unix(sec, int64((ts-float64(sec))*1e9)).UTC()
	fmt.Printf("Watermark %.6f (%s) at %s\n", ts, at.Format(time.RFC3339), store.Path())
	return nil
}

func stateResetAction(_ *cobra.Command, _ []string) error {
	paths := config.LoadPaths()
	store := state.New(paths.StatePath, newLogger("info"))

	if err := store.Reset(); err != nil {
		return err
	}
	fmt.Printf("Watermark file %s removed.\n", store.Path())
	return nil
}
