package result

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Nil fields match everything.
type ListFilter struct {
	OrderID   *uuid.UUID
	PatientID *uuid.UUID
	Verified  *bool
}

type Repository interface {
	// Upsert inserts the result or, when one already exists for
	// (order, test), overwrites its content fields and technician while
	// leaving the verification state untouched. The uniqueness lives in
	// storage so concurrent submits cannot duplicate the pair.
	Upsert(ctx context.Context, r *Result) error

	GetByID(ctx context.Context, id uuid.UUID) (*Result, error)
	GetByOrderAndTest(ctx context.Context, orderID, testID uuid.UUID) (*Result, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Result, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Result, int, error)

	// UpdateContent persists the content fields and the technician stamp.
	UpdateContent(ctx context.Context, r *Result) error

	// SetVerification persists the verification triple, which is always
	// written together.
	SetVerification(ctx context.Context, id uuid.UUID, verified bool, by *uuid.UUID, date *time.Time) error

	Delete(ctx context.Context, id uuid.UUID) error
}
