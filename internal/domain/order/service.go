package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/domain/catalog"
	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

// Catalog resolves test and package references to their current prices.
// Any unresolved id fails the whole lookup.
type Catalog interface {
	Resolve(ctx context.Context, testIDs, packageIDs []uuid.UUID) ([]*catalog.LabTest, []*catalog.TestPackage, error)
}

// ProfileEnsurer provisions a placeholder clinical profile for patients
// that were registered without one.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	repo     Repository
	catalog  Catalog
	profiles ProfileEnsurer
	now      func() time.Time
}

func NewService(repo Repository, cat Catalog, profiles ProfileEnsurer) *Service {
	return &Service{repo: repo, catalog: cat, profiles: profiles, now: time.Now}
}

func gate(actor auth.Actor, action auth.Action) error {
	if !auth.Allows(actor.Role, action) {
		return fmt.Errorf("%w: role %s may not %s", apperr.ErrForbidden, actor.Role, action)
	}
	return nil
}

// CreateInput carries everything createOrder needs. Priority defaults to
// normal when empty.
type CreateInput struct {
	PatientID            uuid.UUID   `json:"patient_id"`
	DoctorID             *uuid.UUID  `json:"doctor_id"`
	TestIDs              []uuid.UUID `json:"test_ids"`
	PackageIDs           []uuid.UUID `json:"package_ids"`
	Priority             Priority    `json:"priority"`
	SampleCollectionDate *time.Time  `json:"sample_collection_date"`
	ExpectedReportDate   *time.Time  `json:"expected_report_date"`
	Notes                *string     `json:"notes"`
}

// Create builds an order with the total snapshotted from current catalog
// prices. The snapshot is final: later price edits never change the order.
func (s *Service) Create(ctx context.Context, in CreateInput, actor auth.Actor) (*Order, error) {
	if err := gate(actor, auth.ActionOrderCreate); err != nil {
		return nil, err
	}
	if len(in.TestIDs) == 0 && len(in.PackageIDs) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one test or package", apperr.ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	if !ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", apperr.ErrValidation, in.Priority)
	}

	// The selections are sets: a repeated id must not double the total or
	// collide on the order lines.
	in.TestIDs = dedupeIDs(in.TestIDs)
	in.PackageIDs = dedupeIDs(in.PackageIDs)

	tests, packages, err := s.catalog.Resolve(ctx, in.TestIDs, in.PackageIDs)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.EnsureProfile(ctx, in.PatientID); err != nil {
		return nil, err
	}

	o := &Order{
		PatientID:            in.PatientID,
		DoctorID:             in.DoctorID,
		OrderStatus:          StatusPending,
		Priority:             in.Priority,
		PaymentStatus:        PaymentPending,
		SampleCollectionDate: in.SampleCollectionDate,
		ExpectedReportDate:   in.ExpectedReportDate,
		Notes:                in.Notes,
		CreatedBy:            actor.ID,
	}
	for _, t := range tests {
		o.Tests = append(o.Tests, OrderTest{TestID: t.ID, Name: t.Name, Price: t.Price})
		o.TotalAmount += t.Price
	}
	for _, p := range packages {
		o.Packages = append(o.Packages, OrderPackage{PackageID: p.ID, Name: p.Name, Price: p.Price})
		o.TotalAmount += p.Price
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Transition moves the order along the lifecycle graph. Reaching completed
// stamps CompletedAt.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to OrderStatus, actor auth.Actor) (*Order, error) {
	if err := gate(actor, auth.ActionOrderTransition); err != nil {
		return nil, err
	}
	if !ValidOrderStatus(to) {
		return nil, fmt.Errorf("%w: unknown order status %q", apperr.ErrValidation, to)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == to {
		return o, nil
	}
	if err := ValidateTransition(o.OrderStatus, to); err != nil {
		return nil, err
	}

	var completedAt *time.Time
	if to == StatusCompleted {
		now := s.now().UTC()
		completedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, o.OrderStatus, to, completedAt, actor.ID); err != nil {
		return nil, err
	}
	o.OrderStatus = to
	if completedAt != nil {
		o.CompletedAt = completedAt
	}
	return o, nil
}

// UpdateInput carries the plain updatable fields. Nil means keep.
type UpdateInput struct {
	Priority             *Priority  `json:"priority"`
	SampleCollectionDate *time.Time `json:"sample_collection_date"`
	ExpectedReportDate   *time.Time `json:"expected_report_date"`
	Notes                *string    `json:"notes"`
	PaymentMethod        *string    `json:"payment_method"`
}

// UpdateFields applies role-gated plain field updates. No state-machine
// check beyond the role.
func (s *Service) UpdateFields(ctx context.Context, id uuid.UUID, in UpdateInput, actor auth.Actor) (*Order, error) {
	if err := gate(actor, auth.ActionOrderUpdate); err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Priority != nil {
		if !ValidPriority(*in.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", apperr.ErrValidation, *in.Priority)
		}
		o.Priority = *in.Priority
	}
	if in.SampleCollectionDate != nil {
		o.SampleCollectionDate = in.SampleCollectionDate
	}
	if in.ExpectedReportDate != nil {
		o.ExpectedReportDate = in.ExpectedReportDate
	}
	if in.Notes != nil {
		o.Notes = in.Notes
	}
	if in.PaymentMethod != nil {
		o.PaymentMethod = in.PaymentMethod
	}
	if err := s.repo.UpdateFields(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// RecordPayment sets the paid amount through the ledger: the amount is
// clamped into [0, total] and the payment status derived, never stored
// independently.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount int64, method *string, actor auth.Actor) (*Order, error) {
	if err := gate(actor, auth.ActionOrderPay); err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ApplyPayment(o, amount, method)
	if err := s.repo.UpdatePayment(ctx, id, o.PaidAmount, o.PaymentStatus, method); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete removes an order that never entered the lab workflow. Orders that
// are confirmed or further along stay for the audit trail.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor auth.Actor) error {
	if err := gate(actor, auth.ActionOrderDelete); err != nil {
		return err
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.OrderStatus != StatusPending && o.OrderStatus != StatusCancelled {
		return fmt.Errorf("%w: only pending or cancelled orders can be deleted", apperr.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Order, error) {
	if err := gate(actor, auth.ActionOrderRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int, actor auth.Actor) ([]*Order, int, error) {
	if err := gate(actor, auth.ActionOrderRead); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) StatusHistory(ctx context.Context, orderID uuid.UUID, actor auth.Actor) ([]*StatusChange, error) {
	if err := gate(actor, auth.ActionOrderRead); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.StatusHistory(ctx, orderID)
}
