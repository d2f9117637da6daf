package store

import (
	"context"

	"github.com/nhle/daily-digest/internal/model"
)

// RunFilter controls filtering and pagination for run-history queries.
type RunFilter struct {
	Status *string
	Limit  int
	Offset int
}

// Store defines the persistence interface for digest run history.
type Store interface {
	// RecordRun persists the outcome of one pipeline run.
	RecordRun(ctx context.Context, run model.RunRecord) error

	// GetRuns retrieves run records matching the filter, newest first.
	GetRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error)

	// GetRunByID retrieves a single run record.
	GetRunByID(ctx context.Context, id string) (*model.RunRecord, error)

	// LastSentRun returns the most recent run that produced an outbound
	// digest, or nil when none exists.
	LastSentRun(ctx context.Context) (*model.RunRecord, error)
}
