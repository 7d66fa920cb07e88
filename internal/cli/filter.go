package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"slack_line_mirror/internal/config"
	"slack_line_mirror/internal/filter"
	"slack_line_mirror/internal/model"
)

var (
	filterKind  string
	filterScope string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Manage message filters applied during relay",
}

var filterAddCmd = &cobra.Command{
	Use:   "add <value>",
	Short: "Add a filter rule",
	Long: "Adds a filter rule. Include rules let only matching messages through\n" +
		"(OR across rules); exclude rules drop matching messages. Word rules\n" +
		"match case-insensitive substrings, regex rules full regular expressions.",
	Args: cobra.ExactArgs(1),
	RunE: filterAddAction,
}

var filterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List filter rules",
	RunE:  filterListAction,
}

var filterRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a filter rule",
	Args:  cobra.ExactArgs(1),
	RunE:  filterRmAction,
}

func init() {
	filterAddCmd.Flags().StringVarP(&filterKind, "kind", "k", "exclude", "rule kind: include, exclude, include_re, exclude_re")
	filterAddCmd.Flags().StringVarP(&filterScope, "scope", "s", "all", "match scope: text, author, all")
	filterCmd.AddCommand(filterAddCmd, filterListCmd, filterRmCmd)
	rootCmd.AddCommand(filterCmd)
}

func parseFilterKind(s string) (model.FilterKind, error) {
	switch model.FilterKind(s) {
	case model.FilterInclude, model.FilterExclude, model.FilterIncludeRe, model.FilterExcludeRe:
		return model.FilterKind(s), nil
	}
	return "", fmt.Errorf("unknown filter kind %q (want include, exclude, include_re or exclude_re)", s)
}

func parseFilterScope(s string) (model.FilterScope, error) {
	switch model.FilterScope(s) {
	case model.ScopeText, model.ScopeAuthor, model.ScopeAll:
		return model.FilterScope(s), nil
	}
	return "", fmt.Errorf("unknown filter scope %q (want text, author or all)", s)
}

func filterAddAction(cmd *cobra.Command, args []string) error {
	kind, err := parseFilterKind(filterKind)
	if err != nil {
		return err
	}
	scope, err := parseFilterScope(filterScope)
	if err != nil {
		return err
	}
	if kind == model.FilterIncludeRe || kind == model.FilterExcludeRe {
		if err := filter.ValidateRegex(args[0]); err != nil {
			return err
		}
	}

	paths := config.LoadPaths()
	db, err := openStorage(paths.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	f := model.Filter{Kind: kind, Scope: scope, Value: args[0]}
	if err := db.CreateFilter(cmd.Context(), &f); err != nil {
		return fmt.Errorf("create filter: %w", err)
	}
	fmt.Printf("Added filter #%d: %s %s %q\n", f.ID, f.Kind, f.Scope, f.Value)
	return nil
}

func filterListAction(cmd *cobra.Command, _ []string) error {
	paths := config.LoadPaths()
	db, err := openStorage(paths.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	filters, err := db.ListFilters(cmd.Context())
	if err != nil {
		return fmt.Errorf("list filters: %w", err)
	}
	if len(filters) == 0 {
		fmt.Println("No filters configured; every message is relayed.")
		return nil
	}

	for _, f := range filters {
		fmt.Printf("#%d  %-10s  %-6s  %q  (added %s)\n",
			f.ID, f.Kind, f.Scope, f.Value, f.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func filterRmAction(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid filter id %q", args[0])
	}

	paths := config.LoadPaths()
	db, err := openStorage(paths.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	if _, err := db.GetFilter(ctx, id); err != nil {
		return fmt.Errorf("filter #%d not found", id)
	}
	if err := db.DeleteFilter(ctx, id); err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	fmt.Printf("Removed filter #%d.\n", id)
	return nil
}
