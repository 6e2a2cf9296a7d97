// Package result implements test result submission, the verification
// workflow and its immutability rules.
package result

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

type Flag string

const (
	FlagNormal   Flag = "normal"
	FlagHigh     Flag = "high"
	FlagLow      Flag = "low"
	FlagCritical Flag = "critical"
)

func ValidFlag(f Flag) bool {
	switch f {
	case FlagNormal, FlagHigh, FlagLow, FlagCritical:
		return true
	}
	return false
}

type OverallStatus string

const (
	OverallNormal   OverallStatus = "normal"
	OverallAbnormal OverallStatus = "abnormal"
	OverallCritical OverallStatus = "critical"
)

func ValidOverallStatus(s OverallStatus) bool {
	switch s {
	case OverallNormal, OverallAbnormal, OverallCritical:
		return true
	}
	return false
}

// Row is one measurement. Rows are stored as a jsonb array, ordered as
// submitted.
type Row struct {
	Parameter   string  `json:"parameter"`
	Value       string  `json:"value"`
	Unit        *string `json:"unit,omitempty"`
	NormalRange *string `json:"normal_range,omitempty"`
	Flag        *Flag   `json:"flag,omitempty"`
}

// ValidateRows enforces the content invariant: at least one row, every row
// with a non-blank parameter and value, flags from the known set.
func ValidateRows(rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: result data must not be empty", apperr.ErrValidation)
	}
	for i, r := range rows {
		if strings.TrimSpace(r.Parameter) == "" {
			return fmt.Errorf("%w: row %d has a blank parameter", apperr.ErrValidation, i)
		}
		if strings.TrimSpace(r.Value) == "" {
			return fmt.Errorf("%w: row %d has a blank value", apperr.ErrValidation, i)
		}
		if r.Flag != nil && !ValidFlag(*r.Flag) {
			return fmt.Errorf("%w: row %d has unknown flag %q", apperr.ErrValidation, i, *r.Flag)
		}
	}
	return nil
}

// Result maps to the test_result table. At most one exists per
// (order, test) pair, enforced by a unique constraint.
type Result struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	OrderID      uuid.UUID  `db:"order_id" json:"order_id"`
	TestID       uuid.UUID  `db:"test_id" json:"test_id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	TechnicianID uuid.UUID  `db:"technician_id" json:"technician_id"`
	VerifiedBy   *uuid.UUID `db:"verified_by" json:"verified_by,omitempty"`

	Rows          []Row         `db:"result_data" json:"result_data"`
	OverallStatus OverallStatus `db:"overall_status" json:"overall_status"`
	Comments      *string       `db:"comments" json:"comments,omitempty"`
	ReportURL     *string       `db:"report_url" json:"report_url,omitempty"`
	ReportedDate  time.Time     `db:"reported_date" json:"reported_date"`

	IsVerified   bool       `db:"is_verified" json:"is_verified"`
	VerifiedDate *time.Time `db:"verified_date" json:"verified_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
