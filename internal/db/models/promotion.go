// Package models - promotion.go defines the PromotionRow model for promotional posts.
package models

import (
	"database/sql"
	"time"
)

// PromotionRow is one row of the promotions table
type PromotionRow struct {
	ID             string         `db:"id"`
	OrganizerName  string         `db:"organizer_name"`
	URL            sql.NullString `db:"url"`
	EventDetails   string         `db:"event_details"`
	AdditionalInfo sql.NullString `db:"additional_info"`
	ImageURL       sql.NullString `db:"image_url"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
