package console

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/admin-console/admin-console/internal/db/models"
)

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// optional trims s and returns nil when nothing is left.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func updateFromRow(row *models.UpdateRow) Update {
	features := make([]string, len(row.Features))
	copy(features, row.Features)
	return Update{
		ID:          row.ID,
		Title:       row.Title,
		Subtitle:    row.Subtitle,
		Description: stringPtr(row.Description),
		Features:    features,
		Status:      statusOf(row.IsActive),
		CreatedAt:   row.CreatedAt,
	}
}

func updateToRow(u Update) *models.UpdateRow {
	return &models.UpdateRow{
		Title:       u.Title,
		Subtitle:    u.Subtitle,
		Description: nullString(u.Description),
		Features:    pq.StringArray(u.Features),
		IsActive:    u.Status == StatusActive,
	}
}

func promotionFromRow(row *models.PromotionRow) Promotion {
	return Promotion{
		ID:             row.ID,
		Organizer:      row.OrganizerName,
		EventDetails:   row.EventDetails,
		AdditionalInfo: stringPtr(row.AdditionalInfo),
		URL:            stringPtr(row.URL),
		ImageURL:       stringPtr(row.ImageURL),
		Status:         statusOf(row.IsActive),
		CreatedAt:      row.CreatedAt,
	}
}

func promotionToRow(p Promotion) *models.PromotionRow {
	return &models.PromotionRow{
		OrganizerName:  p.Organizer,
		EventDetails:   p.EventDetails,
		AdditionalInfo: nullString(p.AdditionalInfo),
		URL:            nullString(p.URL),
		ImageURL:       nullString(p.ImageURL),
		IsActive:       p.Status == StatusActive,
	}
}

func organizationFromRow(row *models.OrganizationRow) Organization {
	org := Organization{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		Name:         row.Name,
		EIN:          stringPtr(row.EIN),
		Website:      stringPtr(row.WebsiteURL),
		Mission:      stringPtr(row.Mission),
		ContactName:  stringPtr(row.ContactName),
		ContactEmail: stringPtr(row.ContactEmail),
		ContactPhone: stringPtr(row.ContactPhone),
		Address:      stringPtr(row.Address),
		Verified:     row.IsVerified,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	// A half-filled coordinate pair is treated as no location.
	if row.Latitude.Valid && row.Longitude.Valid {
		org.Location = &GeoPoint{Latitude: row.Latitude.Float64, Longitude: row.Longitude.Float64}
	}
	if row.Tags != nil {
		org.Tags = append([]string{}, row.Tags...)
	}
	return org
}

func profileFromRow(row *models.ProfileRow) UserProfile {
	return UserProfile{
		ID:             row.ID,
		Email:          row.Email,
		FullName:       stringPtr(row.FullName),
		Username:       stringPtr(row.Username),
		Bio:            stringPtr(row.Bio),
		ProfilePicture: stringPtr(row.ProfilePicture),
		Location:       stringPtr(row.Location),
		Blocked:        row.Block,
		CreatedAt:      row.CreatedAt,
	}
}
