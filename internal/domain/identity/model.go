package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/platform/auth"
)

// Patient maps to the patient table.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Profile maps to the patient_profile table. Orders require one; a missing
// profile is auto-provisioned with placeholder values rather than blocking
// order creation.
type Profile struct {
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      string    `db:"gender" json:"gender"`
	BloodGroup  *string   `db:"blood_group" json:"blood_group,omitempty"`
	Address     *string   `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultProfile returns the placeholder profile provisioned when a patient
// has none at order-creation time.
func DefaultProfile(patientID uuid.UUID) *Profile {
	return &Profile{
		PatientID:   patientID,
		DateOfBirth: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:      "unknown",
	}
}

// User maps to the app_user table: the staff and patient accounts that act
// on orders and results.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      auth.Role `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
