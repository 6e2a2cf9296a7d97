package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/platform/apperr"
	"github.com/labdesk/labdesk/internal/platform/auth"
)

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
	profiles map[uuid.UUID]*Profile
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		patients: make(map[uuid.UUID]*Patient),
		profiles: make(map[uuid.UUID]*Profile),
	}
}

func (m *mockPatientRepo) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		items = append(items, p)
	}
	return items, len(items), nil
}

func (m *mockPatientRepo) GetProfile(ctx context.Context, patientID uuid.UUID) (*Profile, error) {
	p, ok := m.profiles[patientID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) EnsureProfile(ctx context.Context, p *Profile) error {
	if _, ok := m.profiles[p.PatientID]; ok {
		return nil
	}
	m.profiles[p.PatientID] = p
	return nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.ErrConflict
		}
	}
	u.ID = uuid.New()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var items []*User
	for _, u := range m.users {
		items = append(items, u)
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockPatientRepo, *mockUserRepo) {
	pr := newMockPatientRepo()
	ur := newMockUserRepo()
	return NewService(pr, ur), pr, ur
}

func TestCreatePatientRequiresName(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.CreatePatient(context.Background(), &Patient{LastName: "Doe"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for missing first name, got %v", err)
	}

	err = svc.CreatePatient(context.Background(), &Patient{FirstName: "Jane"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for missing last name, got %v", err)
	}
}

func TestCreatePatient(t *testing.T) {
	svc, repo, _ := newTestService()

	p := &Patient{FirstName: "Jane", LastName: "Doe"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected patient id to be assigned")
	}
	if _, ok := repo.patients[p.ID]; !ok {
		t.Error("patient not persisted")
	}
}

func TestEnsureProfileProvisionsPlaceholder(t *testing.T) {
	svc, repo, _ := newTestService()

	p := &Patient{FirstName: "Jane", LastName: "Doe"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	if err := svc.EnsureProfile(context.Background(), p.ID); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	prof, ok := repo.profiles[p.ID]
	if !ok {
		t.Fatal("expected profile to be provisioned")
	}
	if prof.Gender != "unknown" {
		t.Errorf("expected placeholder gender, got %q", prof.Gender)
	}
	if got := prof.DateOfBirth.Format("2006-01-02"); got != "1970-01-01" {
		t.Errorf("expected placeholder date of birth, got %s", got)
	}
}

func TestEnsureProfileKeepsExisting(t *testing.T) {
	svc, repo, _ := newTestService()

	p := &Patient{FirstName: "Jane", LastName: "Doe"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	repo.profiles[p.ID] = &Profile{PatientID: p.ID, Gender: "female"}

	if err := svc.EnsureProfile(context.Background(), p.ID); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	if repo.profiles[p.ID].Gender != "female" {
		t.Error("existing profile must not be overwritten")
	}
}

func TestEnsureProfileUnknownPatient(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.EnsureProfile(context.Background(), uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name string
		user User
	}{
		{"missing name", User{Email: "a@b.c", Role: auth.RoleLabTech}},
		{"missing email", User{Name: "Tech", Role: auth.RoleLabTech}},
		{"unknown role", User{Name: "Tech", Email: "a@b.c", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			if err := svc.CreateUser(context.Background(), &u); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	u := &User{Name: "Tech", Email: "tech@lab.test", Role: auth.RoleLabTech}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !u.Active {
		t.Error("new users should be active")
	}

	dup := &User{Name: "Other", Email: "tech@lab.test", Role: auth.RoleDoctor}
	if err := svc.CreateUser(context.Background(), dup); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}
}
