// Package console is the domain layer of the admin console. It maps store rows to
// the four moderated entities, keeps a per-entity in-memory cache with loading
// state, and implements the moderation mutations on top of the repositories.
package console

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of updates and promotions
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

func statusOf(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusEnded
}

// Update is an announcement banner. At most one update is active at a time.
type Update struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Description *string   `json:"description"`
	Features    []string  `json:"features"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Promotion is a promotional post, optionally with an image and an external link
type Promotion struct {
	ID             string    `json:"id"`
	Organizer      string    `json:"organizer"`
	EventDetails   string    `json:"event_details"`
	AdditionalInfo *string   `json:"additional_info"`
	URL            *string   `json:"url"`
	ImageURL       *string   `json:"image_url"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// GeoPoint is a latitude/longitude pair
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Organization is a registered organization. Verification is a plain boolean.
type Organization struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	EIN          *string   `json:"ein"`
	Website      *string   `json:"website_url"`
	Mission      *string   `json:"mission"`
	ContactName  *string   `json:"contact_name"`
	ContactEmail *string   `json:"contact_email"`
	ContactPhone *string   `json:"contact_phone"`
	Address      *string   `json:"address"`
	Location     *GeoPoint `json:"location"`
	Tags         []string  `json:"tags"`
	Verified     bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MapURL returns a maps link for the organization's coordinates, or "" when it has none.
func (o Organization) MapURL() string {
	if o.Location == nil {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%g,%g", o.Location.Latitude, o.Location.Longitude)
}

// UserProfile is an end-user account
type UserProfile struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       *string   `json:"full_name"`
	Username       *string   `json:"username"`
	Bio            *string   `json:"bio"`
	ProfilePicture *string   `json:"profile_picture"`
	Location       *string   `json:"location"`
	Blocked        bool      `json:"blocked"`
	CreatedAt      time.Time `json:"created_at"`
}
