// Package models - profile.go defines the ProfileRow model for end-user accounts.
package models

import (
	"database/sql"
	"time"
)

// ProfileRow is one row of the profiles table
type ProfileRow struct {
	ID             string         `db:"id"`
	Email          string         `db:"email"`
	FullName       sql.NullString `db:"full_name"`
	Username       sql.NullString `db:"username"`
	Bio            sql.NullString `db:"bio"`
	ProfilePicture sql.NullString `db:"profile_picture"`
	Location       sql.NullString `db:"location"`
	Block          bool           `db:"block"`
	CreatedAt      time.Time      `db:"created_at"`
}
