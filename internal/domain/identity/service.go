package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

type Service struct {
	patients PatientRepository
	users    UserRepository
}

func NewService(patients PatientRepository, users UserRepository) *Service {
	return &Service{patients: patients, users: users}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("%w: first_name is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: last_name is required", apperr.ErrValidation)
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) GetProfile(ctx context.Context, patientID uuid.UUID) (*Profile, error) {
	return s.patients.GetProfile(ctx, patientID)
}

// EnsureProfile provisions a placeholder profile when the patient has none.
// Called from order creation so an incomplete registration never blocks an
// order.
func (s *Service) EnsureProfile(ctx context.Context, patientID uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return err
	}
	return s.patients.EnsureProfile(ctx, DefaultProfile(patientID))
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: email is required", apperr.ErrValidation)
	}
	if !auth.ValidRole(u.Role) {
		return fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, u.Role)
	}
	u.Active = true
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}
