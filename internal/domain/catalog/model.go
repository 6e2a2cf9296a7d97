// Package catalog holds the billable lab tests and test packages. Prices
// here are the source orders snapshot from at creation time; changing a
// price never touches existing orders.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// LabTest maps to the lab_test table.
type LabTest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       int64     `db:"price" json:"price"`
	Unit        *string   `db:"unit" json:"unit,omitempty"`
	NormalRange *string   `db:"normal_range" json:"normal_range,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TestPackage maps to the test_package table. A package bundles tests under
// a single price; the bundle price is independent of the member prices.
type TestPackage struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Code        string      `db:"code" json:"code"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description,omitempty"`
	Price       int64       `db:"price" json:"price"`
	TestIDs     []uuid.UUID `db:"-" json:"test_ids"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
