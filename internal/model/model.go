// Package model defines the domain types used across the application.
package model

import (
	"strconv"
	"time"
)

// Message is a single user message fetched from the source channel.
type Message struct {
	ChannelID string
	UserID    string
	Text      string
	TS        string
	Permalink string
}

// TSValue returns the message timestamp as a float for ordering and
// watermark comparison. An unparseable timestamp yields 0.
func (m Message) TSValue() float64 {
	v, err := strconv.ParseFloat(m.TS, 64)
	if err != nil {
		return 0
	}
	return v
}

// FilterKind defines the type of filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// FilterScope defines which part of a message a filter matches against.
type FilterScope string

// Supported filter scopes.
const (
	ScopeText   FilterScope = "text"
	ScopeAuthor FilterScope = "author"
	ScopeAll    FilterScope = "all"
)

// Filter represents a single relay filtering rule.
type Filter struct {
	ID        int64
	Kind      FilterKind
	Scope     FilterScope
	Value     string
	CreatedAt time.Time
}

// Run records the outcome of one relay pass for the run history.
type Run struct {
	ID         int64
	ChannelID  string
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int
	Delivered  int
	Skipped    int
	Failed     int
	Watermark  float64
	Error      string
}

// Delivery records a single failed push attempt within a run.
type Delivery struct {
	ID        int64
	RunID     int64
	MessageTS string
	AuthorID  string
	Error     string
	CreatedAt time.Time
}
