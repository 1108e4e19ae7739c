// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the critical-write path: inserting a
// sanitized SubmissionRecord into the lead table selected by its form tag.
//
// The two row shapes are logically equivalent; only the column carrying the
// declared reason differs (purpose vs visa_category). Mapping the tag to the
// right table here keeps the pipeline free of category string branching.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlasvisa/go-visa-backend/internal/domain"
)

// InsertSubmission persists a sanitized submission as a new, append-only row
// in the table selected by rec.Kind and returns the store-assigned
// identifier. This write is the authority on overall submission success.
func InsertSubmission(ctx context.Context, db *gorm.DB, rec domain.SubmissionRecord) (string, error) {
	switch rec.Kind {
	case domain.FormShortStay:
		return insertShortStay(ctx, db, rec)
	case domain.FormLongStay:
		return insertLongStay(ctx, db, rec)
	default:
		return "", fmt.Errorf("unknown form kind %q", rec.Kind)
	}
}

func insertShortStay(ctx context.Context, db *gorm.DB, rec domain.SubmissionRecord) (string, error) {
	row := &domain.ShortStayApplication{
		ID:                 uuid.NewString(),
		Purpose:            rec.CategoryOrPurpose,
		DepartureCity:      rec.DepartureCity,
		Nationality:        rec.Nationality,
		DestinationCountry: rec.DestinationCountry,
		Name:               rec.Name,
		Email:              rec.Email,
		Phone:              rec.Phone,
		CreatedAt:          time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

func insertLongStay(ctx context.Context, db *gorm.DB, rec domain.SubmissionRecord) (string, error) {
	row := &domain.LongStayApplication{
		ID:                 uuid.NewString(),
		VisaCategory:       rec.CategoryOrPurpose,
		DepartureCity:      rec.DepartureCity,
		Nationality:        rec.Nationality,
		DestinationCountry: rec.DestinationCountry,
		Name:               rec.Name,
		Email:              rec.Email,
		Phone:              rec.Phone,
		CreatedAt:          time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}
