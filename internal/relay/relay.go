// Package relay drives the mirror pipeline: load the watermark, fetch
// newer source messages, format and push each one, then advance the
// watermark once the whole batch is through.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"slack_line_mirror/internal/filter"
	"slack_line_mirror/internal/model"
	"slack_line_mirror/internal/retry"
	"slack_line_mirror/internal/storage"
)

// Fetcher retrieves source messages newer than a watermark, oldest
// first, capped to a limit.
type Fetcher interface {
	FetchNewMessages(ctx context.Context, channelID string, sinceTS float64, limit int) ([]model.Message, error)
	ChannelName(ctx context.Context, channelID string) string
}

// Pusher delivers one formatted notification to the destination.
type Pusher interface {
	Push(ctx context.Context, text string) error
}

// WatermarkStore persists the newest fully delivered timestamp.
type WatermarkStore interface {
	Load() (float64, error)
	Save(ts float64) error
}

// Summary reports the outcome of one relay pass.
type Summary struct {
	ChannelID string
	Fetched   int
	Delivered int
	Skipped   int
	Failed    int
	Watermark float64
}

// Relay mirrors one channel per Run call.
type Relay struct {
	state       WatermarkStore
	fetcher     Fetcher
	pusher      Pusher
	store       storage.Storage
	fetchPolicy retry.Policy
	pushPolicy  retry.Policy
	log         *slog.Logger
}

// New creates a Relay. Retry policies default to a single attempt; use
// SetFetchPolicy and SetPushPolicy to enable backoff.
func New(state WatermarkStore, fetcher Fetcher, pusher Pusher, store storage.Storage, log *slog.Logger) *Relay {
	return &Relay{
		state:   state,
		fetcher: fetcher,
		pusher:  pusher,
		store:   store,
		log:     log,
	}
}

// SetFetchPolicy enables retries for history fetches.
func (r *Relay) SetFetchPolicy(p retry.Policy) {
	r.fetchPolicy = p
}

// SetPushPolicy enables retries for destination pushes.
func (r *Relay) SetPushPolicy(p retry.Policy) {
	r.pushPolicy = p
}

// Run executes one relay pass over the channel. A summary is returned
// even when err is non-nil so callers can report partial progress.
//
// The watermark only advances when every fetched message was delivered
// or skipped by a filter. On any failure it stays put and the next run
// re-fetches the same batch, so messages may repeat but never go
// missing.
func (r *Relay) Run(ctx context.Context, channelID string, limit int) (*Summary, error) {
	started := time.Now().UTC()
	summary := &Summary{ChannelID: channelID}

	since, err := r.state.Load()
	if err != nil {
		return summary, fmt.Errorf("load watermark: %w", err)
	}
	summary.Watermark = since

	var msgs []model.Message
	err = r.fetchPolicy.Do(ctx, func(ctx context.Context) error {
		var ferr error
		msgs, ferr = r.fetcher.FetchNewMessages(ctx, channelID, since, limit)
		return ferr
	})
	if err != nil {
		err = fmt.Errorf("fetch messages: %w", err)
		r.recordRun(ctx, started, summary, err)
		return summary, err
	}
	summary.Fetched = len(msgs)

	if len(msgs) == 0 {
		r.log.Info("no new messages", "channel", channelID, "since", since)
		r.recordRun(ctx, started, summary, nil)
		return summary, nil
	}

	filters, err := r.store.ListFilters(ctx)
	if err != nil {
		err = fmt.Errorf("list filters: %w", err)
		r.recordRun(ctx, started, summary, err)
		return summary, err
	}

	channelName := r.fetcher.ChannelName(ctx, channelID)
	r.log.Info("relaying messages", "channel", channelName, "count", len(msgs), "since", since)

	var firstErr error
	var failures []model.Delivery
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		if !filter.Match(filter.Subject{Text: msg.Text, Author: msg.UserID}, filters) {
			summary.Skipped++
			r.log.Debug("message filtered out", "ts", msg.TS, "author", msg.UserID)
			continue
		}

		text := FormatNotification(channelName, msg)
		err := r.pushPolicy.Do(ctx, func(ctx context.Context) error {
			return r.pusher.Push(ctx, text)
		})
		if err != nil {
			summary.Failed++
			failures = append(failures, model.Delivery{
				MessageTS: msg.TS,
				AuthorID:  msg.UserID,
				Error:     err.Error(),
			})
			r.log.Error("push failed", "ts", msg.TS, "author", msg.UserID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("push message %s: %w", msg.TS, err)
			}
			continue
		}
		summary.Delivered++
		r.log.Debug("message delivered", "ts", msg.TS)
	}

	if firstErr == nil {
		maxTS := since
		for _, m := range msgs {
			if v := m.TSValue(); v > maxTS {
				maxTS = v
			}
		}
		if err := r.state.Save(maxTS); err != nil {
			firstErr = fmt.Errorf("save watermark %.6f after delivering %d messages: %w: %v",
				maxTS, summary.Delivered, model.ErrPersistence, err)
		} else {
			summary.Watermark = maxTS
			r.log.Info("watermark advanced", "from", since, "to", maxTS)
		}
	}

	run := r.recordRun(ctx, started, summary, firstErr)
	if run != nil {
		for i := range failures {
			failures[i].RunID = run.ID
			if err := r.store.RecordDelivery(ctx, &failures[i]); err != nil {
				r.log.Error("record delivery failed", "ts", failures[i].MessageTS, "error", err)
			}
		}
	}
	return summary, firstErr
}

// recordRun writes the run outcome to the history ledger. Ledger
// failures are logged, not returned: history must never block or fail
// a relay pass.
func (r *Relay) recordRun(ctx context.Context, started time.Time, summary *Summary, runErr error) *model.Run {
	run := &model.Run{
		ChannelID:  summary.ChannelID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Fetched:    summary.Fetched,
		Delivered:  summary.Delivered,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		Watermark:  summary.Watermark,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := r.store.RecordRun(ctx, run); err != nil {
		r.log.Error("record run failed", "error", err)
		return nil
	}
	return run
}
