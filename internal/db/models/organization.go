// Package models - organization.go defines the OrganizationRow model for registered
// organizations awaiting or holding verification.
package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// OrganizationRow is one row of the organizations table.
// Latitude and Longitude are either both valid or both null.
type OrganizationRow struct {
	ID           string          `db:"id"`
	OwnerID      string          `db:"owner_id"`
	Name         string          `db:"name"`
	EIN          sql.NullString  `db:"ein"`
	WebsiteURL   sql.NullString  `db:"website_url"`
	Mission      sql.NullString  `db:"mission"`
	ContactName  sql.NullString  `db:"contact_name"`
	ContactEmail sql.NullString  `db:"contact_email"`
	ContactPhone sql.NullString  `db:"contact_phone"`
	Address      sql.NullString  `db:"address"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	Tags         pq.StringArray  `db:"tags"`
	IsVerified   bool            `db:"is_verified"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}
