// Package domain defines the persistence models and core value types for the
// visa application intake pipeline. The GORM-mapped types in this file form
// the data layer shared by the repository and service packages.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Draft status values for the dashboard-facing application lifecycle.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusInReview  = "in-review"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Draft represents a partially completed visa application persisted for later
// resumption. The wizard payload is stored as an opaque JSON snapshot and is
// overwritten whole on every autosave (last write wins, no merge logic).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the applicant session; indexed for retrieval.
//   - Status: draft | submitted | in-review | approved | rejected.
//   - StepIndex: wizard step the applicant last reached, used to resume.
//   - ApplicationData: opaque JSON snapshot of the working draft.
//   - AutoSavedAt: timestamp of the most recent autosave flush.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (abandoned drafts are retained for ops).
type Draft struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID          string         `json:"user_id"          gorm:"type:varchar(64);not null;index:idx_user_drafts"`
	Status          string         `json:"status"           gorm:"type:varchar(16);not null;default:'draft';check:status IN ('draft','submitted','in-review','approved','rejected')"`
	StepIndex       int            `json:"step_index"       gorm:"not null;default:0"`
	ApplicationData string         `json:"application_data" gorm:"type:text;not null;default:'{}'"`
	AutoSavedAt     time.Time      `json:"auto_saved_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Draft.
func (Draft) TableName() string { return "application_drafts" }

// ShortStayApplication is the persisted lead row for short-stay submissions
// (tourism, business, transit, family visits). The declared reason for travel
// is stored under the "purpose" column.
type ShortStayApplication struct {
	ID                 string         `json:"id"                  gorm:"type:char(36);primaryKey"`
	Purpose            string         `json:"purpose"             gorm:"type:varchar(64);not null"`
	DepartureCity      string         `json:"departure_city"      gorm:"type:varchar(120);not null"`
	Nationality        string         `json:"nationality"         gorm:"type:varchar(80);not null"`
	DestinationCountry string         `json:"destination_country" gorm:"type:varchar(80);not null;index:idx_short_dest"`
	Name               string         `json:"name"                gorm:"type:varchar(120);not null"`
	Email              string         `json:"email"               gorm:"type:varchar(254);not null"`
	Phone              string         `json:"phone"               gorm:"type:varchar(32);not null"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-"                   gorm:"index"`
}

// TableName returns the database table name for ShortStayApplication.
func (ShortStayApplication) TableName() string { return "short_stay_applications" }

// LongStayApplication is the persisted lead row for long-stay submissions
// (work, study, family reunification). Identical shape to the short-stay row
// except the declared reason is stored under the "visa_category" column.
type LongStayApplication struct {
	ID                 string         `json:"id"                  gorm:"type:char(36);primaryKey"`
	VisaCategory       string         `json:"visa_category"       gorm:"type:varchar(64);not null"`
	DepartureCity      string         `json:"departure_city"      gorm:"type:varchar(120);not null"`
	Nationality        string         `json:"nationality"         gorm:"type:varchar(80);not null"`
	DestinationCountry string         `json:"destination_country" gorm:"type:varchar(80);not null;index:idx_long_dest"`
	Name               string         `json:"name"                gorm:"type:varchar(120);not null"`
	Email              string         `json:"email"               gorm:"type:varchar(254);not null"`
	Phone              string         `json:"phone"               gorm:"type:varchar(32);not null"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-"                   gorm:"index"`
}

// TableName returns the database table name for LongStayApplication.
func (LongStayApplication) TableName() string { return "long_stay_applications" }

// Idempotency represents a recorded result of a previously processed submit
// request, keyed by (user_id, draft_id, key). It enables safe retries for the
// submit endpoint by returning the originally produced outcome without
// re-executing the critical write.
type Idempotency struct {
	ID            string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_draft_key,priority:1"`
	DraftID       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_draft_key,priority:2"`
	Key           string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_draft_key,priority:3"`
	ApplicationID string    `gorm:"type:TEXT NOT NULL"`
	Status        int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt     time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt     time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
