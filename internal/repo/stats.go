// Package repo – lightweight aggregates used for conditional responses.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
)

// DraftsStats returns the number of drafts owned by userID and the most
// recent autosave timestamp (nil when the user has none). Handlers use the
// pair to build a weak ETag for the dashboard listing without loading rows.
func DraftsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Draft{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var maxTS time.Time
	row := db.WithContext(ctx).
		Model(&domain.Draft{}).
		Where("user_id = ?", userID).
		Select("MAX(auto_saved_at)").
		Row()
	if err := row.Scan(&maxTS); err != nil {
		// Aggregate scan failures are non-fatal; callers fall back to
		// count-only ETags.
		return count, nil, nil
	}
	return count, &maxTS, nil
}
