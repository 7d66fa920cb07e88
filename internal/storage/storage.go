// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"slack_line_mirror/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	RecordRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	RecordDelivery(ctx context.Context, d *model.Delivery) error
	ListDeliveries(ctx context.Context, runID int64) ([]model.Delivery, error)

	CreateFilter(ctx context.Context, f *model.Filter) error
	ListFilters(ctx context.Context) ([]model.Filter, error)
	GetFilter(ctx context.Context, id int64) (*model.Filter, error)
	DeleteFilter(ctx context.Context, id int64) error

	Close() error
}
