// Package filter implements the relay message matching engine.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"slack_line_mirror/internal/model"
)

// Subject is the message view filters match against.
type Subject struct {
	Text   string
	Author string
}

// Match checks whether a message passes the given set of filters.
// If no filters are provided, the message always passes.
// Include filters use OR logic (at least one must match).
// Exclude filters use AND logic (none must match).
func Match(s Subject, filters []model.Filter) bool {
	if len(filters) == 0 {
		return true
	}

	hasIncludes := false
	anyIncludeMatched := false

	for _, f := range filters {
		switch f.Kind {
		case model.FilterInclude, model.FilterIncludeRe:
			hasIncludes = true
			if matchesFilter(s, f) {
				anyIncludeMatched = true
			}
		case model.FilterExclude, model.FilterExcludeRe:
			if matchesFilter(s, f) {
				return false
			}
		}
	}

	if hasIncludes && !anyIncludeMatched {
		return false
	}
	return true
}

func matchesFilter(s Subject, f model.Filter) bool {
	text := textForScope(s, f.Scope)
	switch f.Kind {
	case model.FilterInclude, model.FilterExclude:
		return strings.Contains(text, strings.ToLower(f.Value))
	case model.FilterIncludeRe, model.FilterExcludeRe:
		re, err := regexp.Compile("(?i)" + f.Value)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

func textForScope(s Subject, scope model.FilterScope) string {
	switch scope {
	case model.ScopeText:
		return strings.ToLower(s.Text)
	case model.ScopeAuthor:
		return strings.ToLower(s.Author)
	default:
		return strings.ToLower(s.Text + " " + s.Author)
	}
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
