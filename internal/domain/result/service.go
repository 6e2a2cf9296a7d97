package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/domain/order"
	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

// OrderSource reads the parent order a result attaches to. order.Repository
// satisfies it.
type OrderSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type Service struct {
	repo   Repository
	orders OrderSource
	now    func() time.Time
}

func NewService(repo Repository, orders OrderSource) *Service {
	return &Service{repo: repo, orders: orders, now: time.Now}
}

func gate(actor auth.Actor, action auth.Action) error {
	if !auth.Allows(actor.Role, action) {
		return fmt.Errorf("%w: role %s may not %s", apperr.ErrForbidden, actor.Role, action)
	}
	return nil
}

// SubmitInput is the submit payload. Submitting twice for the same
// (order, test) overwrites the content; it is not a conflict. Once the
// result is verified only admin may resubmit.
type SubmitInput struct {
	OrderID       uuid.UUID     `json:"order_id"`
	TestID        uuid.UUID     `json:"test_id"`
	Rows          []Row         `json:"result_data"`
	OverallStatus OverallStatus `json:"overall_status"`
	Comments      *string       `json:"comments"`
	ReportURL     *string       `json:"report_url"`
}

// Submit upserts the result for (order, test). The parent order must be
// in_progress and the test must be one of the order's tests. Verification
// state survives a re-submit.
func (s *Service) Submit(ctx context.Context, in SubmitInput, actor auth.Actor) (*Result, error) {
	if err := gate(actor, auth.ActionResultSubmit); err != nil {
		return nil, err
	}
	if err := ValidateRows(in.Rows); err != nil {
		return nil, err
	}
	if !ValidOverallStatus(in.OverallStatus) {
		return nil, fmt.Errorf("%w: unknown overall status %q", apperr.ErrValidation, in.OverallStatus)
	}

	o, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus != order.StatusInProgress {
		return nil, fmt.Errorf("%w: results can only be submitted while the order is in_progress, not %s",
			apperr.ErrValidation, o.OrderStatus)
	}
	if !orderHasTest(o, in.TestID) {
		return nil, fmt.Errorf("%w: test %s is not part of order %s", apperr.ErrValidation, in.TestID, o.OrderNumber)
	}

	// A re-submit for the same (order, test) overwrites content, so a
	// verified result is off limits here just like in Update.
	existing, err := s.repo.GetByOrderAndTest(ctx, in.OrderID, in.TestID)
	switch {
	case err == nil:
		if existing.IsVerified && actor.Role != auth.RoleAdmin {
			return nil, fmt.Errorf("%w: verified results are immutable", apperr.ErrForbidden)
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	r := &Result{
		OrderID:       in.OrderID,
		TestID:        in.TestID,
		PatientID:     o.PatientID,
		TechnicianID:  actor.ID,
		Rows:          in.Rows,
		OverallStatus: in.OverallStatus,
		Comments:      in.Comments,
		ReportURL:     in.ReportURL,
		ReportedDate:  s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func orderHasTest(o *order.Order, testID uuid.UUID) bool {
	for _, t := range o.Tests {
		if t.TestID == testID {
			return true
		}
	}
	return false
}

// UpdateInput carries an update. Nil means leave alone.
type UpdateInput struct {
	Rows          []Row          `json:"result_data"`
	OverallStatus *OverallStatus `json:"overall_status"`
	Comments      *string        `json:"comments"`
	ReportURL     *string        `json:"report_url"`
	IsVerified    *bool          `json:"is_verified"`
}

func (in UpdateInput) hasContent() bool {
	return in.Rows != nil || in.OverallStatus != nil || in.Comments != nil || in.ReportURL != nil
}

// Update applies the role matrix:
//
//	lab_tech  content only, own unverified results
//	doctor    is_verified only, all-or-nothing
//	admin     everything
//
// Verifying sets verifiedBy/verifiedDate; unverifying clears both.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor auth.Actor) (*Result, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.IsVerified != nil {
		if err := gate(actor, auth.ActionResultVerify); err != nil {
			return nil, err
		}
		// A doctor's request carrying data fields alongside is_verified is
		// rejected wholesale; nothing is applied.
		if actor.Role == auth.RoleDoctor && in.hasContent() {
			return nil, fmt.Errorf("%w: verification cannot be combined with content changes", apperr.ErrValidation)
		}
	}

	if in.hasContent() {
		if err := gate(actor, auth.ActionResultEdit); err != nil {
			return nil, err
		}
		if actor.Role != auth.RoleAdmin {
			if r.IsVerified {
				return nil, fmt.Errorf("%w: verified results are immutable", apperr.ErrForbidden)
			}
			if r.TechnicianID != actor.ID {
				return nil, fmt.Errorf("%w: results can only be edited by the submitting technician", apperr.ErrForbidden)
			}
		}
		if in.Rows != nil {
			if err := ValidateRows(in.Rows); err != nil {
				return nil, err
			}
			r.Rows = in.Rows
		}
		if in.OverallStatus != nil {
			if !ValidOverallStatus(*in.OverallStatus) {
				return nil, fmt.Errorf("%w: unknown overall status %q", apperr.ErrValidation, *in.OverallStatus)
			}
			r.OverallStatus = *in.OverallStatus
		}
		if in.Comments != nil {
			r.Comments = in.Comments
		}
		if in.ReportURL != nil {
			r.ReportURL = in.ReportURL
		}
		if err := s.repo.UpdateContent(ctx, r); err != nil {
			return nil, err
		}
	}

	if in.IsVerified != nil && *in.IsVerified != r.IsVerified {
		if *in.IsVerified {
			now := s.now().UTC()
			r.IsVerified = true
			r.VerifiedBy = &actor.ID
			r.VerifiedDate = &now
		} else {
			r.IsVerified = false
			r.VerifiedBy = nil
			r.VerifiedDate = nil
		}
		if err := s.repo.SetVerification(ctx, r.ID, r.IsVerified, r.VerifiedBy, r.VerifiedDate); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Delete removes an unverified result. Verified results stay.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor auth.Actor) error {
	if err := gate(actor, auth.ActionResultDelete); err != nil {
		return err
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if r.IsVerified {
		return fmt.Errorf("%w: verified results cannot be deleted", apperr.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Result, error) {
	if err := gate(actor, auth.ActionResultRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int, actor auth.Actor) ([]*Result, int, error) {
	if err := gate(actor, auth.ActionResultRead); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f, limit, offset)
}
