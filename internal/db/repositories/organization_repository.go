// organization_repository.go implements OrganizationRepository. Organizations are
// registered elsewhere; the console only reads them and toggles verification.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// ListOrganizations returns every organization ordered by creation time, newest first.
// Rows created in the same instant are listed in reverse insertion order.
func (r *OrganizationRepository) ListOrganizations(ctx context.Context) ([]*models.OrganizationRow, error) {
	var rows []*models.OrganizationRow
	query := `
		SELECT id, owner_id, name, ein, website_url, mission,
		       contact_name, contact_email, contact_phone, address,
		       latitude, longitude, tags, is_verified, created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC, seq DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return rows, nil
}

// SetOrganizationVerified writes the verification flag and the updated timestamp
func (r *OrganizationRepository) SetOrganizationVerified(ctx context.Context, id string, verified bool, at time.Time) error {
	query := `UPDATE organizations SET is_verified = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, verified, at)
	if err != nil {
		if isInvalidID(err) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to update organization %s: %w", id, err)
	}
	return requireRow(res, id)
}
