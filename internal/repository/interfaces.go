package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/canopycrm/importer/internal/domain"
)

// ImportAttemptRepository persists import attempt lifecycle records.
type ImportAttemptRepository interface {
	Create(ctx context.Context, attempt domain.ImportAttempt) (domain.ImportAttempt, error)
	// Finalize writes the terminal status, counters and sample exactly once.
	Finalize(ctx context.Context, attempt domain.ImportAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportAttempt, error)
	List(ctx context.Context, limit int, offset int) ([]domain.ImportAttempt, error)
}

// ImportIssueRepository stores row and header issues for operator review.
type ImportIssueRepository interface {
	RecordBatch(ctx context.Context, issues []domain.ImportIssue) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID, limit int, offset int) ([]domain.ImportIssue, error)
}

// RecordStore performs the lookup/insert/update operations reconciliation
// needs against a target entity collection. Table and column names come
// from the static entity schemas, never from user input.
type RecordStore interface {
	Find(ctx context.Context, table string, key map[string]any) (uuid.UUID, bool, error)
	Insert(ctx context.Context, table string, values map[string]any) (uuid.UUID, error)
	Update(ctx context.Context, table string, id uuid.UUID, values map[string]any) error
}
