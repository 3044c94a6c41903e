package store

import (
	"context"
	"time"

	"github.com/labkit/borrowd/db/models"
)

// TransactionPatch is a partial update staged by the sweep. Only the
// non-nil fields are written, so a patch never clobbers columns other
// parts of the system own (item returns, payments).
type TransactionPatch struct {
	ID               string
	Status           *string
	FineAmount       *int64
	OndueNotified    *bool
	ReminderNotified *bool
	OverdueNotified  *bool
}

// TransactionStore is the read/write contract the sweep runs against.
// The production implementation is bun/Postgres; tests substitute an
// in-memory one.
type TransactionStore interface {
	ListByStatus(ctx context.Context, statuses ...string) ([]models.Transaction, error)
	// ListDueBetween returns transactions with start <= due_date < end,
	// optionally restricted to the given statuses.
	ListDueBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]models.Transaction, error)
	// ApplyPatches commits the patches in chunks, each chunk as one
	// atomic database transaction.
	ApplyPatches(ctx context.Context, patches []TransactionPatch) error
	// Archive copies a terminal transaction into the records table and
	// deletes it, atomically.
	Archive(ctx context.Context, transaction *models.Transaction) error
}

func String(s string) *string { return &s }
func Int64(i int64) *int64    { return &i }
func Bool(b bool) *bool       { return &b }
