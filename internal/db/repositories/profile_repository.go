// profile_repository.go implements ProfileRepository for end-user accounts: listing,
// toggling the block flag and hard deletion.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ListProfiles returns every profile ordered by creation time, newest first.
// Rows created in the same instant are listed in reverse insertion order.
func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]*models.ProfileRow, error) {
	var rows []*models.ProfileRow
	query := `
		SELECT id, email, full_name, username, bio, profile_picture, location, block, created_at
		FROM profiles
		ORDER BY created_at DESC, seq DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return rows, nil
}

// SetProfileBlocked writes the block flag of one profile
func (r *ProfileRepository) SetProfileBlocked(ctx context.Context, id string, blocked bool) error {
	query := `UPDATE profiles SET block = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, blocked)
	if err != nil {
		if isInvalidID(err) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to update profile %s: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteProfile permanently removes a profile. Deleting a missing or malformed
// id is a no-op.
func (r *ProfileRepository) DeleteProfile(ctx context.Context, id string) error {
	query := `DELETE FROM profiles WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		if isInvalidID(err) {
			return nil
		}
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	return nil
}

// requireRow turns an update that touched nothing into ErrNotFound.
func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
