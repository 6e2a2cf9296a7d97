package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

type Service struct {
	tests    TestRepository
	packages PackageRepository
}

func NewService(tests TestRepository, packages PackageRepository) *Service {
	return &Service{tests: tests, packages: packages}
}

func (s *Service) requireAdmin(actor auth.Actor) error {
	if actor.Role != auth.RoleAdmin {
		return fmt.Errorf("%w: catalog changes require admin", apperr.ErrForbidden)
	}
	return nil
}

func (s *Service) CreateTest(ctx context.Context, t *LabTest, actor auth.Actor) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := validateTest(t); err != nil {
		return err
	}
	t.Active = true
	return s.tests.Create(ctx, t)
}

func (s *Service) UpdateTest(ctx context.Context, t *LabTest, actor auth.Actor) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := validateTest(t); err != nil {
		return err
	}
	return s.tests.Update(ctx, t)
}

func validateTest(t *LabTest) error {
	if strings.TrimSpace(t.Code) == "" {
		return fmt.Errorf("%w: code is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if t.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", apperr.ErrValidation)
	}
	return nil
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, activeOnly bool, limit, offset int) ([]*LabTest, int, error) {
	return s.tests.List(ctx, activeOnly, limit, offset)
}

func (s *Service) CreatePackage(ctx context.Context, p *TestPackage, actor auth.Actor) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := validatePackage(p); err != nil {
		return err
	}
	if _, err := s.tests.GetByIDs(ctx, p.TestIDs); err != nil {
		return err
	}
	p.Active = true
	return s.packages.Create(ctx, p)
}

func (s *Service) UpdatePackage(ctx context.Context, p *TestPackage, actor auth.Actor) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := validatePackage(p); err != nil {
		return err
	}
	if _, err := s.tests.GetByIDs(ctx, p.TestIDs); err != nil {
		return err
	}
	return s.packages.Update(ctx, p)
}

func validatePackage(p *TestPackage) error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: code is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", apperr.ErrValidation)
	}
	if len(p.TestIDs) == 0 {
		return fmt.Errorf("%w: a package needs at least one test", apperr.ErrValidation)
	}
	return nil
}

func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*TestPackage, error) {
	return s.packages.GetByID(ctx, id)
}

func (s *Service) ListPackages(ctx context.Context, activeOnly bool, limit, offset int) ([]*TestPackage, int, error) {
	return s.packages.List(ctx, activeOnly, limit, offset)
}

// Resolve looks up every referenced test and package in one pass. Any id
// that does not resolve fails the whole call; callers snapshot the returned
// prices, so a later catalog edit never changes an existing order.
func (s *Service) Resolve(ctx context.Context, testIDs, packageIDs []uuid.UUID) ([]*LabTest, []*TestPackage, error) {
	tests, err := s.tests.GetByIDs(ctx, testIDs)
	if err != nil {
		return nil, nil, err
	}
	packages, err := s.packages.GetByIDs(ctx, packageIDs)
	if err != nil {
		return nil, nil, err
	}
	return tests, packages, nil
}
