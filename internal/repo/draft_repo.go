// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Draft
// model: creation, resume lookup, the last-write-wins autosave upsert, and
// the dashboard listing queries.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a draft is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateDraft inserts a new draft row owned by userID with the given initial
// payload (typically "{}" or a destination-seeded snapshot). The draft ID is
// a randomly generated UUID and timestamps are set to UTC.
func CreateDraft(ctx context.Context, db *gorm.DB, userID, payload string) (*domain.Draft, error) {
	now := time.Now().UTC()
	d := &domain.Draft{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          domain.StatusDraft,
		StepIndex:       0,
		ApplicationData: payload,
		AutoSavedAt:     now,
		CreatedAt:       now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDraft fetches a single draft by its ID and owner. If the record does
// not exist, it returns ErrNotFound.
func GetDraft(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Draft, error) {
	var d domain.Draft
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveDraftPayload overwrites the stored snapshot and step marker for a
// draft, stamping auto_saved_at with savedAt. Writes are last-write-wins on
// whole-snapshot granularity: the most recent call always replaces the
// stored payload, no merge logic. Returns ErrNotFound when the draft is
// missing, not owned by userID, or no longer in the draft status.
func SaveDraftPayload(ctx context.Context, db *gorm.DB, id, userID, payload string, stepIndex int, savedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Draft{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.StatusDraft).
		Updates(map[string]any{
			"application_data": payload,
			"step_index":       stepIndex,
			"auto_saved_at":    savedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDraftSubmitted flips a draft into the submitted status. Returns
// ErrNotFound when the draft is missing or already left the draft status.
func MarkDraftSubmitted(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Draft{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.StatusDraft).
		Update("status", domain.StatusSubmitted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDrafts returns the total number of drafts owned by userID.
func CountDrafts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Draft{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListDraftsPage returns a paginated slice of drafts for userID, ordered by
// most recent autosave first. Use CountDrafts to obtain the total for
// pagination metadata.
func ListDraftsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Draft, error) {
	var out []domain.Draft
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("auto_saved_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
