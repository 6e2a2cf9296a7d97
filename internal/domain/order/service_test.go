package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/domain/catalog"
	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

type mockRepo struct {
	orders  map[uuid.UUID]*Order
	history []*StatusChange
	seq     int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{orders: make(map[uuid.UUID]*Order)}
}

func (m *mockRepo) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	m.seq++
	o.OrderNumber = fmt.Sprintf("ORD-2026-%06d", m.seq)
	o.CreatedAt = time.Now()
	m.orders[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Order, int, error) {
	var items []*Order
	for _, o := range m.orders {
		if f.PatientID != nil && o.PatientID != *f.PatientID {
			continue
		}
		if f.OrderStatus != nil && o.OrderStatus != *f.OrderStatus {
			continue
		}
		if f.PaymentStatus != nil && o.PaymentStatus != *f.PaymentStatus {
			continue
		}
		if f.Priority != nil && o.Priority != *f.Priority {
			continue
		}
		items = append(items, o)
	}
	return items, len(items), nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, completedAt *time.Time, changedBy uuid.UUID) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if o.OrderStatus != from {
		return apperr.ErrConflict
	}
	o.OrderStatus = to
	if completedAt != nil {
		o.CompletedAt = completedAt
	}
	m.history = append(m.history, &StatusChange{OrderID: id, FromStatus: from, ToStatus: to, ChangedBy: changedBy})
	return nil
}

func (m *mockRepo) UpdateFields(ctx context.Context, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	stored.Priority = o.Priority
	stored.SampleCollectionDate = o.SampleCollectionDate
	stored.ExpectedReportDate = o.ExpectedReportDate
	stored.Notes = o.Notes
	stored.PaymentMethod = o.PaymentMethod
	return nil
}

func (m *mockRepo) UpdatePayment(ctx context.Context, id uuid.UUID, paid int64, status PaymentStatus, method *string) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.ErrNotFound
	}
	o.PaidAmount = paid
	o.PaymentStatus = status
	if method != nil {
		o.PaymentMethod = method
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockRepo) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	var items []*StatusChange
	for _, h := range m.history {
		if h.OrderID == orderID {
			items = append(items, h)
		}
	}
	return items, nil
}

type mockCatalog struct {
	tests    map[uuid.UUID]*catalog.LabTest
	packages map[uuid.UUID]*catalog.TestPackage
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		tests:    make(map[uuid.UUID]*catalog.LabTest),
		packages: make(map[uuid.UUID]*catalog.TestPackage),
	}
}

func (m *mockCatalog) addTest(name string, price int64) uuid.UUID {
	id := uuid.New()
	m.tests[id] = &catalog.LabTest{ID: id, Name: name, Price: price}
	return id
}

func (m *mockCatalog) addPackage(name string, price int64) uuid.UUID {
	id := uuid.New()
	m.packages[id] = &catalog.TestPackage{ID: id, Name: name, Price: price}
	return id
}

func (m *mockCatalog) Resolve(ctx context.Context, testIDs, packageIDs []uuid.UUID) ([]*catalog.LabTest, []*catalog.TestPackage, error) {
	var tests []*catalog.LabTest
	for _, id := range testIDs {
		t, ok := m.tests[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: lab test %s", apperr.ErrNotFound, id)
		}
		tests = append(tests, t)
	}
	var packages []*catalog.TestPackage
	for _, id := range packageIDs {
		p, ok := m.packages[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: test package %s", apperr.ErrNotFound, id)
		}
		packages = append(packages, p)
	}
	return tests, packages, nil
}

type mockProfiles struct {
	ensured map[uuid.UUID]int
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{ensured: make(map[uuid.UUID]int)}
}

func (m *mockProfiles) EnsureProfile(ctx context.Context, patientID uuid.UUID) error {
	m.ensured[patientID]++
	return nil
}

var (
	admin     = auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	reception = auth.Actor{ID: uuid.New(), Role: auth.RoleReception}
	labTech   = auth.Actor{ID: uuid.New(), Role: auth.RoleLabTech}
	doctor    = auth.Actor{ID: uuid.New(), Role: auth.RoleDoctor}
)

func newTestService() (*Service, *mockRepo, *mockCatalog, *mockProfiles) {
	repo := newMockRepo()
	cat := newMockCatalog()
	profiles := newMockProfiles()
	return NewService(repo, cat, profiles), repo, cat, profiles
}

func TestCreateSnapshotsTotal(t *testing.T) {
	svc, _, cat, profiles := newTestService()
	t1 := cat.addTest("Complete Blood Count", 500)
	t2 := cat.addTest("Liver Function Test", 300)
	patientID := uuid.New()

	o, err := svc.Create(context.Background(), CreateInput{
		PatientID: patientID,
		TestIDs:   []uuid.UUID{t1, t2},
	}, reception)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if o.TotalAmount != 800 {
		t.Errorf("total = %d, want 800", o.TotalAmount)
	}
	if o.OrderStatus != StatusPending || o.PaymentStatus != PaymentPending || o.PaidAmount != 0 {
		t.Errorf("new order not initialized: %+v", o)
	}
	if o.Priority != PriorityNormal {
		t.Errorf("priority should default to normal, got %s", o.Priority)
	}
	if o.OrderNumber == "" {
		t.Error("order number not assigned")
	}
	if profiles.ensured[patientID] != 1 {
		t.Error("patient profile should be ensured exactly once")
	}

	// A later price change never touches the snapshot.
	cat.tests[t1].Price = 9999
	if o.Tests[0].Price != 500 {
		t.Error("order line must keep the snapshotted price")
	}
}

func TestCreateWithPackage(t *testing.T) {
	svc, _, cat, _ := newTestService()
	t1 := cat.addTest("Complete Blood Count", 500)
	pkg := cat.addPackage("Basic Panel", 900)

	o, err := svc.Create(context.Background(), CreateInput{
		PatientID:  uuid.New(),
		TestIDs:    []uuid.UUID{t1},
		PackageIDs: []uuid.UUID{pkg},
	}, doctor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.TotalAmount != 1400 {
		t.Errorf("total = %d, want 1400", o.TotalAmount)
	}
}

func TestCreateDeduplicatesSelections(t *testing.T) {
	svc, _, cat, _ := newTestService()
	t1 := cat.addTest("Complete Blood Count", 500)
	pkg := cat.addPackage("Basic Panel", 900)

	o, err := svc.Create(context.Background(), CreateInput{
		PatientID:  uuid.New(),
		TestIDs:    []uuid.UUID{t1, t1},
		PackageIDs: []uuid.UUID{pkg, pkg},
	}, reception)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.TotalAmount != 1400 {
		t.Errorf("total = %d, want 1400; duplicates must not double-count", o.TotalAmount)
	}
	if len(o.Tests) != 1 || len(o.Packages) != 1 {
		t.Errorf("lines = %d tests, %d packages; want one of each", len(o.Tests), len(o.Packages))
	}
}

func TestCreateRejectsEmptySelection(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{PatientID: uuid.New()}, reception)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty order, got %v", err)
	}
}

func TestCreateUnknownTestIsNotFound(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	t1 := cat.addTest("Complete Blood Count", 500)

	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(),
		TestIDs:   []uuid.UUID{t1, uuid.New()},
	}, reception)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(repo.orders) != 0 {
		t.Error("nothing must be written when a reference fails to resolve")
	}
}

func TestCreateRoleGate(t *testing.T) {
	svc, _, cat, _ := newTestService()
	t1 := cat.addTest("Complete Blood Count", 500)
	in := CreateInput{PatientID: uuid.New(), TestIDs: []uuid.UUID{t1}}

	if _, err := svc.Create(context.Background(), in, labTech); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("lab_tech must not create orders, got %v", err)
	}
	if _, err := svc.Create(context.Background(), in, doctor); err != nil {
		t.Errorf("doctor should create orders: %v", err)
	}
}

func makeOrder(t *testing.T, svc *Service, cat *mockCatalog) *Order {
	t.Helper()
	testID := cat.addTest("Complete Blood Count", 800)
	o, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(),
		TestIDs:   []uuid.UUID{testID},
	}, reception)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestTransitionHappyPath(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	for _, to := range []OrderStatus{StatusConfirmed, StatusInProgress, StatusCompleted} {
		updated, err := svc.Transition(context.Background(), o.ID, to, labTech)
		if err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if updated.OrderStatus != to {
			t.Errorf("status = %s, want %s", updated.OrderStatus, to)
		}
	}

	stored := repo.orders[o.ID]
	if stored.CompletedAt == nil {
		t.Error("completed_at must be stamped on completion")
	}
	if len(repo.history) != 3 {
		t.Errorf("expected 3 history rows, got %d", len(repo.history))
	}
}

func TestTransitionSkippingStateIsRejected(t *testing.T) {
	svc, _, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	_, err := svc.Transition(context.Background(), o.ID, StatusInProgress, labTech)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("pending -> in_progress must be rejected, got %v", err)
	}
}

func TestTransitionFromTerminalIsRejected(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	repo.orders[o.ID].OrderStatus = StatusCancelled

	_, err := svc.Transition(context.Background(), o.ID, StatusConfirmed, admin)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("cancelled is terminal, got %v", err)
	}
}

func TestTransitionRoleGate(t *testing.T) {
	svc, _, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	if _, err := svc.Transition(context.Background(), o.ID, StatusConfirmed, doctor); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("doctor must not drive order status, got %v", err)
	}
}

func TestTransitionConcurrentConflict(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	// Simulate another request landing between our read and write: the
	// service reads pending while storage already moved on.
	repo.orders[o.ID].OrderStatus = StatusCancelled
	stale := NewService(&staleReadRepo{mockRepo: repo, stale: StatusPending}, cat, newMockProfiles())

	_, err := stale.Transition(context.Background(), o.ID, StatusConfirmed, labTech)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale transition must conflict, got %v", err)
	}
}

// staleReadRepo serves reads with a fixed status so the conditional write
// path can be exercised.
type staleReadRepo struct {
	*mockRepo
	stale OrderStatus
}

func (r *staleReadRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := r.mockRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o.OrderStatus = r.stale
	return o, nil
}

func TestRecordPaymentFlow(t *testing.T) {
	svc, _, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	method := "cash"

	updated, err := svc.RecordPayment(context.Background(), o.ID, 500, &method, reception)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if updated.PaidAmount != 500 || updated.PaymentStatus != PaymentPartial {
		t.Errorf("after partial: paid=%d status=%s", updated.PaidAmount, updated.PaymentStatus)
	}

	updated, err = svc.RecordPayment(context.Background(), o.ID, 800, nil, reception)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if updated.PaymentStatus != PaymentPaid {
		t.Errorf("paying the full total must derive paid, got %s", updated.PaymentStatus)
	}
}

func TestRecordPaymentClampsOverpayment(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	updated, err := svc.RecordPayment(context.Background(), o.ID, 5000, nil, admin)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if updated.PaidAmount != 800 || updated.PaymentStatus != PaymentPaid {
		t.Errorf("overpayment must clamp to total: paid=%d status=%s", updated.PaidAmount, updated.PaymentStatus)
	}
	if repo.orders[o.ID].PaidAmount != 800 {
		t.Error("clamped amount must be what is persisted")
	}
}

func TestRecordPaymentRoleGate(t *testing.T) {
	svc, _, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	if _, err := svc.RecordPayment(context.Background(), o.ID, 100, nil, doctor); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("doctor must not record payments, got %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	stat := PriorityStat
	notes := "fasting sample"
	updated, err := svc.UpdateFields(context.Background(), o.ID, UpdateInput{Priority: &stat, Notes: &notes}, labTech)
	if err != nil {
		t.Fatalf("update fields: %v", err)
	}
	if updated.Priority != PriorityStat {
		t.Errorf("priority = %s, want stat", updated.Priority)
	}
	if repo.orders[o.ID].Notes == nil || *repo.orders[o.ID].Notes != "fasting sample" {
		t.Error("notes not persisted")
	}

	bogus := Priority("asap")
	if _, err := svc.UpdateFields(context.Background(), o.ID, UpdateInput{Priority: &bogus}, labTech); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown priority must be rejected, got %v", err)
	}
	if _, err := svc.UpdateFields(context.Background(), o.ID, UpdateInput{Notes: &notes}, doctor); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("doctor must not update order fields, got %v", err)
	}
}

func TestTransitionToCurrentStatusIsNoop(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	updated, err := svc.Transition(context.Background(), o.ID, StatusPending, labTech)
	if err != nil {
		t.Fatalf("same-status transition should be a no-op: %v", err)
	}
	if updated.OrderStatus != StatusPending {
		t.Errorf("status = %s", updated.OrderStatus)
	}
	if len(repo.history) != 0 {
		t.Error("no-op transition must not write history")
	}
}

func TestDeleteIsAdminOnly(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)

	if err := svc.Delete(context.Background(), o.ID, reception); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("reception must not delete orders, got %v", err)
	}
	if err := svc.Delete(context.Background(), o.ID, admin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, ok := repo.orders[o.ID]; ok {
		t.Error("order should be gone")
	}
}

func TestDeleteRequiresPendingOrCancelled(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	repo.orders[o.ID].OrderStatus = StatusInProgress

	if err := svc.Delete(context.Background(), o.ID, admin); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("in_progress orders must not be deletable, got %v", err)
	}

	repo.orders[o.ID].OrderStatus = StatusCancelled
	if err := svc.Delete(context.Background(), o.ID, admin); err != nil {
		t.Fatalf("cancelled orders are deletable: %v", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o1 := makeOrder(t, svc, cat)
	o2 := makeOrder(t, svc, cat)
	repo.orders[o2.ID].OrderStatus = StatusConfirmed

	status := StatusConfirmed
	items, total, err := svc.List(context.Background(), ListFilter{OrderStatus: &status}, 20, 0, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != o2.ID {
		t.Errorf("filter by status returned %d items", len(items))
	}

	pid := repo.orders[o1.ID].PatientID
	items, _, err = svc.List(context.Background(), ListFilter{PatientID: &pid}, 20, 0, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != o1.ID {
		t.Error("filter by patient mismatched")
	}
}
