package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

const uniqueViolation = "23505"

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository {
	return &testRepoPG{pool: pool}
}

const testCols = `id, code, name, description, price, unit, normal_range, active, created_at, updated_at`

func scanTest(row pgx.Row) (*LabTest, error) {
	var t LabTest
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Description, &t.Price, &t.Unit, &t.NormalRange, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: lab test", apperr.ErrNotFound)
	}
	return &t, err
}

func (r *testRepoPG) Create(ctx context.Context, t *LabTest) error {
	t.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lab_test (id, code, name, description, price, unit, normal_range, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.Code, t.Name, t.Description, t.Price, t.Unit, t.NormalRange, t.Active)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: test code %q already exists", apperr.ErrConflict, t.Code)
	}
	return err
}

func (r *testRepoPG) Update(ctx context.Context, t *LabTest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lab_test
		SET code=$2, name=$3, description=$4, price=$5, unit=$6, normal_range=$7, active=$8, updated_at=now()
		WHERE id=$1`,
		t.ID, t.Code, t.Name, t.Description, t.Price, t.Unit, t.NormalRange, t.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lab test", apperr.ErrNotFound)
	}
	return nil
}

func (r *testRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return scanTest(r.pool.QueryRow(ctx, `SELECT `+testCols+` FROM lab_test WHERE id = $1`, id))
}

func (r *testRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*LabTest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+testCols+` FROM lab_test WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[uuid.UUID]*LabTest, len(ids))
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*LabTest, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: lab test %s", apperr.ErrNotFound, id)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *testRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*LabTest, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE active"
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lab_test`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+testCols+` FROM lab_test`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LabTest
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

type packageRepoPG struct{ pool *pgxpool.Pool }

func NewPackageRepoPG(pool *pgxpool.Pool) PackageRepository {
	return &packageRepoPG{pool: pool}
}

const packageCols = `id, code, name, description, price, active, created_at, updated_at`

func scanPackage(row pgx.Row) (*TestPackage, error) {
	var p TestPackage
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: test package", apperr.ErrNotFound)
	}
	return &p, err
}

func (r *packageRepoPG) Create(ctx context.Context, p *TestPackage) error {
	p.ID = uuid.New()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO test_package (id, code, name, description, price, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Code, p.Name, p.Description, p.Price, p.Active)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: package code %q already exists", apperr.ErrConflict, p.Code)
	}
	if err != nil {
		return err
	}
	for _, testID := range p.TestIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO test_package_item (package_id, test_id) VALUES ($1,$2)`,
			p.ID, testID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *packageRepoPG) Update(ctx context.Context, p *TestPackage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE test_package
		SET code=$2, name=$3, description=$4, price=$5, active=$6, updated_at=now()
		WHERE id=$1`,
		p.ID, p.Code, p.Name, p.Description, p.Price, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: test package", apperr.ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM test_package_item WHERE package_id = $1`, p.ID); err != nil {
		return err
	}
	for _, testID := range p.TestIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO test_package_item (package_id, test_id) VALUES ($1,$2)`,
			p.ID, testID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *packageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestPackage, error) {
	p, err := scanPackage(r.pool.QueryRow(ctx, `SELECT `+packageCols+` FROM test_package WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*TestPackage{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *packageRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestPackage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+packageCols+` FROM test_package WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[uuid.UUID]*TestPackage, len(ids))
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*TestPackage, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: test package %s", apperr.ErrNotFound, id)
		}
		out = append(out, p)
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *packageRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*TestPackage, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE active"
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM test_package`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+packageCols+` FROM test_package`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TestPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *packageRepoPG) loadItems(ctx context.Context, pkgs []*TestPackage) error {
	if len(pkgs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(pkgs))
	byID := make(map[uuid.UUID]*TestPackage, len(pkgs))
	for i, p := range pkgs {
		ids[i] = p.ID
		byID[p.ID] = p
	}
	rows, err := r.pool.Query(ctx, `
		SELECT package_id, test_id FROM test_package_item WHERE package_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var pkgID, testID uuid.UUID
		if err := rows.Scan(&pkgID, &testID); err != nil {
			return err
		}
		byID[pkgID].TestIDs = append(byID[pkgID].TestIDs, testID)
	}
	return rows.Err()
}
