package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Nil fields match everything.
type ListFilter struct {
	PatientID     *uuid.UUID
	OrderStatus   *OrderStatus
	PaymentStatus *PaymentStatus
	Priority      *Priority
}

type Repository interface {
	// Create persists the order and its lines in one transaction, assigning
	// ID and OrderNumber.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Order, int, error)

	// UpdateStatus applies from->to only when the stored status still equals
	// from; a stale from is a conflict error. completedAt is stamped when
	// non-nil.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, completedAt *time.Time, changedBy uuid.UUID) error

	// UpdateFields persists the plain updatable fields: priority, dates,
	// notes and payment method.
	UpdateFields(ctx context.Context, o *Order) error

	// UpdatePayment persists the ledger outcome.
	UpdatePayment(ctx context.Context, id uuid.UUID, paid int64, status PaymentStatus, method *string) error

	Delete(ctx context.Context, id uuid.UUID) error

	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error)
}
