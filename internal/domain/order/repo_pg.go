package order

import (
	"context"
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

const orderCols = `id, order_number, patient_id, doctor_id, total_amount, paid_amount,
	payment_status, payment_method, order_status, priority,
	sample_collection_date, expected_report_date, completed_at, notes,
	created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.DoctorID, &o.TotalAmount, &o.PaidAmount,
		&o.PaymentStatus, &o.PaymentMethod, &o.OrderStatus, &o.Priority,
		&o.SampleCollectionDate, &o.ExpectedReportDate, &o.CompletedAt, &o.Notes,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order", apperr.ErrNotFound)
	}
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	o.ID = uuid.New()
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('lab_order_number_seq')`).Scan(&seq); err != nil {
		return err
	}
	o.OrderNumber = fmt.Sprintf("ORD-%d-%06d", time.Now().UTC().Year(), seq)

	_, err = tx.Exec(ctx, `
		INSERT INTO lab_order (id, order_number, patient_id, doctor_id, total_amount, paid_amount,
			payment_status, payment_method, order_status, priority,
			sample_collection_date, expected_report_date, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.OrderNumber, o.PatientID, o.DoctorID, o.TotalAmount, o.PaidAmount,
		o.PaymentStatus, o.PaymentMethod, o.OrderStatus, o.Priority,
		o.SampleCollectionDate, o.ExpectedReportDate, o.Notes, o.CreatedBy)
	if err != nil {
		return err
	}

	for _, t := range o.Tests {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lab_order_test (order_id, test_id, test_name, price)
			VALUES ($1,$2,$3,$4)`,
			o.ID, t.TestID, t.Name, t.Price); err != nil {
			return err
		}
	}
	for _, p := range o.Packages {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lab_order_package (order_id, package_id, package_name, price)
			VALUES ($1,$2,$3,$4)`,
			o.ID, p.PackageID, p.Name, p.Price); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM lab_order WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Order, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	n := 0
	add := func(clause string, v any) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", clause, n)
		args = append(args, v)
	}
	if f.PatientID != nil {
		add("patient_id", *f.PatientID)
	}
	if f.OrderStatus != nil {
		add("order_status", *f.OrderStatus)
	}
	if f.PaymentStatus != nil {
		add("payment_status", *f.PaymentStatus)
	}
	if f.Priority != nil {
		add("priority", *f.Priority)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lab_order`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM lab_order%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderCols, where, n+1, n+2)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadLines(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) loadLines(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, `
		SELECT order_id, test_id, test_name, price
		FROM lab_order_test WHERE order_id = ANY($1) ORDER BY test_name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID uuid.UUID
		var t OrderTest
		if err := rows.Scan(&orderID, &t.TestID, &t.Name, &t.Price); err != nil {
			return err
		}
		byID[orderID].Tests = append(byID[orderID].Tests, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT order_id, package_id, package_name, price
		FROM lab_order_package WHERE order_id = ANY($1) ORDER BY package_name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID uuid.UUID
		var p OrderPackage
		if err := rows.Scan(&orderID, &p.PackageID, &p.Name, &p.Price); err != nil {
			return err
		}
		byID[orderID].Packages = append(byID[orderID].Packages, p)
	}
	return rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, completedAt *time.Time, changedBy uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The WHERE order_status guard makes a stale transition affect zero
	// rows instead of silently overwriting a concurrent one.
	tag, err := tx.Exec(ctx, `
		UPDATE lab_order
		SET order_status = $3, completed_at = COALESCE($4, completed_at), updated_at = now()
		WHERE id = $1 AND order_status = $2`,
		id, from, to, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lab_order WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: order", apperr.ErrNotFound)
		}
		return fmt.Errorf("%w: order status changed concurrently", apperr.ErrConflict)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, changed_by)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), id, from, to, changedBy); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) UpdateFields(ctx context.Context, o *Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lab_order
		SET priority = $2, sample_collection_date = $3, expected_report_date = $4,
			notes = $5, payment_method = $6, updated_at = now()
		WHERE id = $1`,
		o.ID, o.Priority, o.SampleCollectionDate, o.ExpectedReportDate, o.Notes, o.PaymentMethod)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order", apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) UpdatePayment(ctx context.Context, id uuid.UUID, paid int64, status PaymentStatus, method *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lab_order
		SET paid_amount = $2, payment_status = $3,
			payment_method = COALESCE($4, payment_method), updated_at = now()
		WHERE id = $1`,
		id, paid, status, method)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order", apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lab_order WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order", apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, changed_at
		FROM order_status_history WHERE order_id = $1 ORDER BY changed_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.FromStatus, &c.ToStatus, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}
