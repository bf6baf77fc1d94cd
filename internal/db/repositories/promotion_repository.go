// promotion_repository.go implements PromotionRepository for the promotions table.
package repositories

import (
	"context"
	"fmt"

	"github.com/admin-console/admin-console/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// PromotionRepository handles database operations for promotional posts
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// ListPromotions returns every promotion ordered by creation time, newest first.
// Rows created in the same instant are listed in reverse insertion order.
func (r *PromotionRepository) ListPromotions(ctx context.Context) ([]*models.PromotionRow, error) {
	var rows []*models.PromotionRow
	query := `
		SELECT id, organizer_name, url, event_details, additional_info, image_url,
		       is_active, created_at, updated_at
		FROM promotions
		ORDER BY created_at DESC, seq DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	return rows, nil
}

// InsertPromotion inserts row and fills in the store-generated id and timestamps
func (r *PromotionRepository) InsertPromotion(ctx context.Context, row *models.PromotionRow) error {
	query := `
		INSERT INTO promotions (organizer_name, url, event_details, additional_info, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		row.OrganizerName, row.URL, row.EventDetails, row.AdditionalInfo, row.ImageURL, row.IsActive,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert promotion: %w", err)
	}
	return nil
}

// SetPromotionActive sets the active flag of one promotion
func (r *PromotionRepository) SetPromotionActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE promotions SET is_active = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		if isInvalidID(err) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to update promotion %s: %w", id, err)
	}
	return requireRow(res, id)
}
