package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"slack_line_mirror/internal/model"
)

var ignoreFilterTS = cmpopts.IgnoreFields(model.Filter{}, "CreatedAt")
var ignoreDeliveryTS = cmpopts.IgnoreFields(model.Delivery{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	run := model.Run{
		ChannelID:  "C090001",
		StartedAt:  time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 25, 10, 0, 7, 0, time.UTC),
		Fetched:    5,
		Delivered:  3,
		Skipped:    1,
		Failed:     1,
		Watermark:  1726752000.123456,
		Error:      "push message 1726752000.123456: transient network failure",
	}
	if err := s.RecordRun(ctx, &run); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	got, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run, got %d", len(got))
	}
	if diff := cmp.Diff(run, got[0]); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	started := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := model.Run{
			ChannelID:  "C090001",
			StartedAt:  started.Add(time.Duration(i) * time.Hour),
			FinishedAt: started.Add(time.Duration(i)*time.Hour + 5*time.Second),
			Fetched:    i,
			Delivered:  i,
		}
		if err := s.RecordRun(ctx, &run); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}

	got, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].Fetched != 2 || got[1].Fetched != 1 {
		t.Errorf("runs out of order: fetched %d then %d, want 2 then 1", got[0].Fetched, got[1].Fetched)
	}
}

func TestDeliveries(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	run := model.Run{ChannelID: "C090001", StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}
	if err := s.RecordRun(ctx, &run); err != nil {
		t.Fatalf("record run: %v", err)
	}
	otherRun := model.Run{ChannelID: "C090001", StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}
	if err := s.RecordRun(ctx, &otherRun); err != nil {
		t.Fatalf("record other run: %v", err)
	}

	failures := []model.Delivery{
		{RunID: run.ID, MessageTS: "1726752000.000100", AuthorID: "U02ALICE", Error: "status 500"},
		{RunID: run.ID, MessageTS: "1726752000.000200", AuthorID: "U03BOB", Error: "status 429"},
		{RunID: otherRun.ID, MessageTS: "1726752000.000300", AuthorID: "U02ALICE", Error: "status 403"},
	}
	for i := range failures {
		if err := s.RecordDelivery(ctx, &failures[i]); err != nil {
			t.Fatalf("record delivery %d: %v", i, err)
		}
		if failures[i].ID == 0 {
			t.Fatalf("delivery %d has zero ID", i)
		}
		if failures[i].CreatedAt.IsZero() {
			t.Fatalf("delivery %d has zero CreatedAt", i)
		}
	}

	got, err := s.ListDeliveries(ctx, run.ID)
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	want := failures[:2]
	if diff := cmp.Diff(want, got, ignoreDeliveryTS); diff != "" {
		t.Errorf("deliveries mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name   string
		filter model.Filter
	}{
		{
			name:   "include word",
			filter: model.Filter{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "deploy"},
		},
		{
			name:   "exclude regex on text",
			filter: model.Filter{Kind: model.FilterExcludeRe, Scope: model.ScopeText, Value: "(?i)nightly.*passed"},
		},
		{
			name:   "exclude author",
			filter: model.Filter{Kind: model.FilterExclude, Scope: model.ScopeAuthor, Value: "U09CRON"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			if err := s.CreateFilter(ctx, &f); err != nil {
				t.Fatalf("create: %v", err)
			}
			if f.ID == 0 {
				t.Fatal("expected non-zero ID")
			}

			got, err := s.GetFilter(ctx, f.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			want := tt.filter
			want.ID = f.ID
			if diff := cmp.Diff(want, *got, ignoreFilterTS); diff != "" {
				t.Errorf("GetFilter mismatch (-want +got):\n%s", diff)
			}
		})
	}

	allFilters, err := s.ListFilters(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(allFilters) != len(tests) {
		t.Fatalf("expected %d filters, got %d", len(tests), len(allFilters))
	}

	if err := s.DeleteFilter(ctx, allFilters[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, _ := s.ListFilters(ctx)
	if len(remaining) != len(tests)-1 {
		t.Errorf("expected %d filters after delete, got %d", len(tests)-1, len(remaining))
	}
}

func TestGetFilterMissing(t *testing.T) {
	s := newTestDB(t)

	if _, err := s.GetFilter(context.Background(), 12345); err == nil {
		t.Fatal("expected error getting missing filter")
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)
