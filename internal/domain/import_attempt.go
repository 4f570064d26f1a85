package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which CRM collection an import targets.
type EntityType string

const (
	EntityContacts  EntityType = "contacts"
	EntityCompanies EntityType = "companies"
	EntityLicenses  EntityType = "licenses"
)

// ParseEntityType resolves a path or form value to a known entity type.
func ParseEntityType(raw string) (EntityType, bool) {
	switch EntityType(raw) {
	case EntityContacts, EntityCompanies, EntityLicenses:
		return EntityType(raw), true
	}
	return "", false
}

// SourceKind records where the CSV payload came from.
type SourceKind string

const (
	SourceFileUpload SourceKind = "file-upload"
	SourceRemoteURL  SourceKind = "remote-url"
)

// AttemptStatus is the lifecycle state of an import attempt.
type AttemptStatus string

const (
	AttemptRunning   AttemptStatus = "running"
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptPartial   AttemptStatus = "partial"
)

// ImportAttempt is one invocation of the import pipeline. It is created
// at pipeline start, mutated only by the pipeline that owns it, and
// finalized exactly once.
type ImportAttempt struct {
	ID            uuid.UUID           `json:"id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	EntityType    EntityType          `json:"entity_type"`
	SourceKind    SourceKind          `json:"source_kind"`
	SourceLocator string              `json:"source_locator"`
	Status        AttemptStatus       `json:"status"`
	TotalRows     int                 `json:"total_rows"`
	ValidRows     int                 `json:"valid_rows"`
	UpsertedRows  int                 `json:"upserted_rows"`
	SkippedRows   int                 `json:"skipped_rows"`
	ErrorCount    int                 `json:"error_count"`
	WarningsCount int                 `json:"warnings_count"`
	SampleRows    []map[string]string `json:"sample_rows,omitempty"`
	ErrorSummary  *string             `json:"error_summary,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
}

// ResolveStatus derives the final attempt status from the batch outcome.
// Succeeded requires zero errors; a batch with errors is partial when at
// least one record was written and failed otherwise.
func ResolveStatus(errorCount, upsertedRows int) AttemptStatus {
	switch {
	case errorCount == 0:
		return AttemptSucceeded
	case upsertedRows == 0:
		return AttemptFailed
	default:
		return AttemptPartial
	}
}
