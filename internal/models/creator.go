package models

import (
	"database/sql"
	"time"
)

// Creator represents a row in the 'creators' table
type Creator struct {
	ID          int64          `db:"id" json:"id"`
	Handle      string         `db:"handle" json:"handle"`
	DisplayName sql.NullString `db:"display_name" json:"display_name"`
	Status      string         `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt   sql.NullTime   `db:"deleted_at" json:"-"`
}

// NewCreator creates a new Creator with default values
func NewCreator() *Creator {
	now := time.Now()
	return &Creator{
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreatorSource represents a row in the 'creator_sources' table: one
// followed URL on one platform for a creator.
type CreatorSource struct {
	ID              int64          `db:"id" json:"id"`
	CreatorID       int64          `db:"creator_id" json:"creator_id"`
	Platform        Platform       `db:"platform" json:"platform"`
	URL             string         `db:"url" json:"url"`
	Comments        sql.NullString `db:"comments" json:"comments"`
	Language        sql.NullString `db:"language" json:"language"`
	Status          string         `db:"status" json:"status"`
	FailuresCount   int            `db:"failures_count" json:"failures_count"`
	LastError       sql.NullString `db:"last_error" json:"last_error"`
	LastRetrievedAt sql.NullTime   `db:"last_retrieved_at" json:"last_retrieved_at"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt       sql.NullTime   `db:"deleted_at" json:"-"`
}

// NewCreatorSource creates a new CreatorSource with default values
func NewCreatorSource() *CreatorSource {
	now := time.Now()
	return &CreatorSource{
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
