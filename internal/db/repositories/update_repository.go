// update_repository.go implements UpdateRepository, providing queries for the updates
// table: listing newest first, inserting new announcements and flipping the active flag.
package repositories

import (
	"context"
	"fmt"

	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/jmoiron/sqlx"
)

const singleActiveIndex = "updates_single_active"

// UpdateRepository handles database operations for update announcements
type UpdateRepository struct {
	db *sqlx.DB
}

// NewUpdateRepository creates a new update repository
func NewUpdateRepository(db *sqlx.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// ListUpdates returns every update ordered by creation time, newest first.
// Rows created in the same instant are listed in reverse insertion order.
func (r *UpdateRepository) ListUpdates(ctx context.Context) ([]*models.UpdateRow, error) {
	var rows []*models.UpdateRow
	query := `
		SELECT id, title, subtitle, description, features, is_active, created_at, updated_at
		FROM updates
		ORDER BY created_at DESC, seq DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}
	return rows, nil
}

// InsertUpdate inserts row and fills in the store-generated id and timestamps
func (r *UpdateRepository) InsertUpdate(ctx context.Context, row *models.UpdateRow) error {
	query := `
		INSERT INTO updates (title, subtitle, description, features, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		row.Title, row.Subtitle, row.Description, row.Features, row.IsActive,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, singleActiveIndex) {
			return ErrActiveUpdateConflict
		}
		return fmt.Errorf("failed to insert update: %w", err)
	}
	return nil
}

// SetUpdateActive sets the active flag of one update
func (r *UpdateRepository) SetUpdateActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE updates SET is_active = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		if isUniqueViolation(err, singleActiveIndex) {
			return ErrActiveUpdateConflict
		}
		if isInvalidID(err) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to update update %s: %w", id, err)
	}
	return requireRow(res, id)
}
