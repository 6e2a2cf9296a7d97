package catalog

import (
	"context"

	"github.com/google/uuid"
)

type TestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	Update(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	// GetByIDs returns the tests for the given ids in the given order.
	// A missing id is a not-found error naming the id.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*LabTest, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*LabTest, int, error)
}

type PackageRepository interface {
	Create(ctx context.Context, p *TestPackage) error
	Update(ctx context.Context, p *TestPackage) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestPackage, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestPackage, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*TestPackage, int, error)
}
