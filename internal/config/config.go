// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default values for optional settings.
const (
	DefaultStatePath    = "./data/state.json"
	DefaultDatabasePath = "./data/mirror.db"
	DefaultFetchLimit   = 50
)

// Config holds the application configuration.
type Config struct {
	SlackBotToken    string
	SlackChannelID   string
	LineChannelToken string
	LineToUserID     string
	StatePath        string
	DatabasePath     string
	FetchLimit       int
	FetchRetries     int
	PushRetries      int
	LogLevel         string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	slackToken := os.Getenv("SLACK_BOT_TOKEN")
	if slackToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	channelID := os.Getenv("SLACK_CHANNEL_ID")
	if channelID == "" {
		return nil, fmt.Errorf("SLACK_CHANNEL_ID is required")
	}

	lineToken := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	if lineToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is required")
	}

	statePath := os.Getenv("STATE_PATH")
	if statePath == "" {
		statePath = DefaultStatePath
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = DefaultDatabasePath
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	fetchLimit, err := intEnv("FETCH_LIMIT", DefaultFetchLimit)
	if err != nil {
		return nil, err
	}
	if fetchLimit <= 0 {
		return nil, fmt.Errorf("FETCH_LIMIT must be positive, got %d", fetchLimit)
	}

	fetchRetries, err := intEnv("FETCH_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	if fetchRetries < 0 {
		return nil, fmt.Errorf("FETCH_RETRIES must not be negative, got %d", fetchRetries)
	}

	pushRetries, err := intEnv("PUSH_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	if pushRetries < 0 {
		return nil, fmt.Errorf("PUSH_RETRIES must not be negative, got %d", pushRetries)
	}

	return &Config{
		SlackBotToken:    slackToken,
		SlackChannelID:   channelID,
		LineChannelToken: lineToken,
		LineToUserID:     os.Getenv("LINE_TO_USER_ID"),
		StatePath:        statePath,
		DatabasePath:     dbPath,
		FetchLimit:       fetchLimit,
		FetchRetries:     fetchRetries,
		PushRetries:      pushRetries,
		LogLevel:         logLevel,
	}, nil
}

// Broadcast reports whether pushes go to all bot subscribers.
// Returns true when no recipient user ID is configured.
func (c *Config) Broadcast() bool {
	return c.LineToUserID == ""
}

// Paths holds the filesystem locations the tool reads and writes.
type Paths struct {
	StatePath    string
	DatabasePath string
}

// LoadPaths reads only the state and database locations. Commands that
// inspect local state use this instead of Load so they work without
// API credentials in the environment.
func LoadPaths() Paths {
	p := Paths{
		StatePath:    os.Getenv("STATE_PATH"),
		DatabasePath: os.Getenv("DATABASE_PATH"),
	}
	if p.StatePath == "" {
		p.StatePath = DefaultStatePath
	}
	if p.DatabasePath == "" {
		p.DatabasePath = DefaultDatabasePath
	}
	return p
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
	return v, nil
}
