// Package report assembles the read-only data shape a rendering
// collaborator needs for a lab report. It never mutates lifecycle state and
// never infers it; it only reflects what the order and result managers have
// committed.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/domain/identity"
	"github.com/labdesk/labdesk/internal/domain/order"
	"github.com/labdesk/labdesk/internal/domain/result"
	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

type OrderSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type PatientSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetProfile(ctx context.Context, patientID uuid.UUID) (*identity.Profile, error)
}

type ResultSource interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*result.Result, error)
}

// TestEntry is one test line of the report: the snapshotted order line with
// its matched result, or a pending marker when none was submitted yet.
type TestEntry struct {
	TestID  uuid.UUID      `json:"test_id"`
	Name    string         `json:"name"`
	Price   int64          `json:"price"`
	Pending bool           `json:"pending"`
	Result  *result.Result `json:"result,omitempty"`
}

type Report struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	OrderStatus   order.OrderStatus   `json:"order_status"`
	Priority      order.Priority      `json:"priority"`
	TotalAmount   int64               `json:"total_amount"`
	PaidAmount    int64               `json:"paid_amount"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	Notes         *string             `json:"notes,omitempty"`

	Patient *identity.Patient `json:"patient"`
	Profile *identity.Profile `json:"profile,omitempty"`

	Tests    []TestEntry          `json:"tests"`
	Packages []order.OrderPackage `json:"packages"`

	GeneratedAt time.Time `json:"generated_at"`
}

type Assembler struct {
	orders   OrderSource
	patients PatientSource
	results  ResultSource
	now      func() time.Time
}

func NewAssembler(orders OrderSource, patients PatientSource, results ResultSource) *Assembler {
	return &Assembler{orders: orders, patients: patients, results: results, now: time.Now}
}

// Assemble builds the report for an order that has entered the lab
// workflow. Orders still pending have nothing to report on.
func (a *Assembler) Assemble(ctx context.Context, orderID uuid.UUID, actor auth.Actor) (*Report, error) {
	if !auth.Allows(actor.Role, auth.ActionReportRead) {
		return nil, fmt.Errorf("%w: role %s may not read reports", apperr.ErrForbidden, actor.Role)
	}

	o, err := a.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == order.StatusPending {
		return nil, fmt.Errorf("%w: order %s is still pending", apperr.ErrValidation, o.OrderNumber)
	}

	patient, err := a.patients.GetByID(ctx, o.PatientID)
	if err != nil {
		return nil, err
	}
	profile, err := a.patients.GetProfile(ctx, o.PatientID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	results, err := a.results.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	byTest := make(map[uuid.UUID]*result.Result, len(results))
	for _, r := range results {
		byTest[r.TestID] = r
	}

	rep := &Report{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		OrderStatus:   o.OrderStatus,
		Priority:      o.Priority,
		TotalAmount:   o.TotalAmount,
		PaidAmount:    o.PaidAmount,
		PaymentStatus: o.PaymentStatus,
		CompletedAt:   o.CompletedAt,
		Notes:         o.Notes,
		Patient:       patient,
		Profile:       profile,
		Packages:      o.Packages,
		GeneratedAt:   a.now().UTC(),
	}
	for _, t := range o.Tests {
		entry := TestEntry{TestID: t.TestID, Name: t.Name, Price: t.Price}
		if r, ok := byTest[t.TestID]; ok {
			entry.Result = r
		} else {
			entry.Pending = true
		}
		rep.Tests = append(rep.Tests, entry)
	}
	return rep, nil
}
