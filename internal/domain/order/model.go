// Package order implements the lab order lifecycle: creation with price
// snapshotting, the status state machine, field updates and the payment
// ledger.
package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the full lifecycle graph. completed and cancelled are
// terminal; there is no reopening and no un-cancel.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ValidateTransition checks the lifecycle graph. Self-transitions are
// invalid like any other edge not in the table.
func ValidateTransition(from, to OrderStatus) error {
	allowed, ok := orderTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown order status %q", apperr.ErrValidation, from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition order from %s to %s", apperr.ErrValidation, from, to)
}

func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
	PriorityStat   Priority = "stat"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityStat:
		return true
	}
	return false
}

// OrderTest is a test line on an order with the name and price snapshotted
// at creation time.
type OrderTest struct {
	TestID uuid.UUID `db:"test_id" json:"test_id"`
	Name   string    `db:"test_name" json:"name"`
	Price  int64     `db:"price" json:"price"`
}

// OrderPackage is a package line on an order, snapshotted like OrderTest.
type OrderPackage struct {
	PackageID uuid.UUID `db:"package_id" json:"package_id"`
	Name      string    `db:"package_name" json:"name"`
	Price     int64     `db:"price" json:"price"`
}

// Order maps to the lab_order table plus its line tables.
type Order struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderNumber string     `db:"order_number" json:"order_number"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID    *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`

	Tests    []OrderTest    `db:"-" json:"tests"`
	Packages []OrderPackage `db:"-" json:"packages"`

	TotalAmount   int64         `db:"total_amount" json:"total_amount"`
	PaidAmount    int64         `db:"paid_amount" json:"paid_amount"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod *string       `db:"payment_method" json:"payment_method,omitempty"`

	OrderStatus          OrderStatus `db:"order_status" json:"order_status"`
	Priority             Priority    `db:"priority" json:"priority"`
	SampleCollectionDate *time.Time  `db:"sample_collection_date" json:"sample_collection_date,omitempty"`
	ExpectedReportDate   *time.Time  `db:"expected_report_date" json:"expected_report_date,omitempty"`
	CompletedAt          *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	Notes                *string     `db:"notes" json:"notes,omitempty"`

	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StatusChange records one applied order transition.
type StatusChange struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	OrderID    uuid.UUID   `db:"order_id" json:"order_id"`
	FromStatus OrderStatus `db:"from_status" json:"from_status"`
	ToStatus   OrderStatus `db:"to_status" json:"to_status"`
	ChangedBy  uuid.UUID   `db:"changed_by" json:"changed_by"`
	ChangedAt  time.Time   `db:"changed_at" json:"changed_at"`
}
