package result

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const resultCols = `id, order_id, test_id, patient_id, technician_id, verified_by,
	result_data, overall_status, comments, report_url, reported_date,
	is_verified, verified_date, created_at, updated_at`

func scanResult(row pgx.Row) (*Result, error) {
	var r Result
	var data []byte
	err := row.Scan(&r.ID, &r.OrderID, &r.TestID, &r.PatientID, &r.TechnicianID, &r.VerifiedBy,
		&data, &r.OverallStatus, &r.Comments, &r.ReportURL, &r.ReportedDate,
		&r.IsVerified, &r.VerifiedDate, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: result", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &r.Rows); err != nil {
		return nil, fmt.Errorf("decode result data: %w", err)
	}
	return &r, nil
}

func (r *repoPG) Upsert(ctx context.Context, res *Result) error {
	data, err := json.Marshal(res.Rows)
	if err != nil {
		return fmt.Errorf("encode result data: %w", err)
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	// The conflict branch keeps is_verified/verified_by/verified_date and
	// the row identity; only content and authorship move.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO test_result (id, order_id, test_id, patient_id, technician_id,
			result_data, overall_status, comments, report_url, reported_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (order_id, test_id) DO UPDATE SET
			technician_id = EXCLUDED.technician_id,
			result_data = EXCLUDED.result_data,
			overall_status = EXCLUDED.overall_status,
			comments = EXCLUDED.comments,
			report_url = EXCLUDED.report_url,
			reported_date = EXCLUDED.reported_date,
			updated_at = now()
		RETURNING id, is_verified, verified_by, verified_date, created_at, updated_at`,
		res.ID, res.OrderID, res.TestID, res.PatientID, res.TechnicianID,
		data, res.OverallStatus, res.Comments, res.ReportURL, res.ReportedDate)
	return row.Scan(&res.ID, &res.IsVerified, &res.VerifiedBy, &res.VerifiedDate, &res.CreatedAt, &res.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Result, error) {
	return scanResult(r.pool.QueryRow(ctx, `SELECT `+resultCols+` FROM test_result WHERE id = $1`, id))
}

func (r *repoPG) GetByOrderAndTest(ctx context.Context, orderID, testID uuid.UUID) (*Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultCols+` FROM test_result WHERE order_id = $1 AND test_id = $2`, orderID, testID))
}

func (r *repoPG) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultCols+` FROM test_result WHERE order_id = $1 ORDER BY reported_date`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Result, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	n := 0
	add := func(clause string, v any) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, v)
	}
	if f.OrderID != nil {
		add("order_id", *f.OrderID)
	}
	if f.PatientID != nil {
		add("patient_id", *f.PatientID)
	}
	if f.Verified != nil {
		add("is_verified", *f.Verified)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM test_result`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM test_result%s ORDER BY reported_date DESC LIMIT $%d OFFSET $%d`,
		resultCols, where, n+1, n+2)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateContent(ctx context.Context, res *Result) error {
	data, err := json.Marshal(res.Rows)
	if err != nil {
		return fmt.Errorf("encode result data: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE test_result
		SET result_data = $2, overall_status = $3, comments = $4, report_url = $5, updated_at = now()
		WHERE id = $1`,
		res.ID, data, res.OverallStatus, res.Comments, res.ReportURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: result", apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) SetVerification(ctx context.Context, id uuid.UUID, verified bool, by *uuid.UUID, date *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE test_result
		SET is_verified = $2, verified_by = $3, verified_date = $4, updated_at = now()
		WHERE id = $1`,
		id, verified, by, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: result", apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM test_result WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: result", apperr.ErrNotFound)
	}
	return nil
}
