package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canopycrm/importer/internal/domain"
)

type importAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewImportAttemptRepository wires a repository backed by pgxpool.
func NewImportAttemptRepository(pool *pgxpool.Pool) ImportAttemptRepository {
	return &importAttemptRepository{pool: pool}
}

func (r *importAttemptRepository) Create(ctx context.Context, attempt domain.ImportAttempt) (domain.ImportAttempt, error) {
	if r.pool == nil {
		return domain.ImportAttempt{}, fmt.Errorf("import attempt repository not initialized")
	}

	var userID any
	if attempt.UserID != nil {
		userID = *attempt.UserID
	}

	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO import_attempts (user_id, entity_type, source_kind, source_locator, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		userID,
		attempt.EntityType,
		attempt.SourceKind,
		attempt.SourceLocator,
		attempt.Status,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return domain.ImportAttempt{}, fmt.Errorf("failed to create import attempt: %w", err)
	}

	return attempt, nil
}

func (r *importAttemptRepository) Finalize(ctx context.Context, attempt domain.ImportAttempt) error {
	if r.pool == nil {
		return fmt.Errorf("import attempt repository not initialized")
	}

	var sampleJSON []byte
	if len(attempt.SampleRows) > 0 {
		encoded, err := json.Marshal(attempt.SampleRows)
		if err != nil {
			return fmt.Errorf("failed to encode sample rows: %w", err)
		}
		sampleJSON = encoded
	}

	var errorSummary any
	if attempt.ErrorSummary != nil {
		errorSummary = *attempt.ErrorSummary
	}

	// finished_at IS NULL guards the finalize-exactly-once invariant.
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE import_attempts
		 SET status = $2,
		     total_rows = $3,
		     valid_rows = $4,
		     upserted_rows = $5,
		     skipped_rows = $6,
		     error_count = $7,
		     warnings_count = $8,
		     sample_json = $9,
		     error_summary = $10,
		     finished_at = now()
		 WHERE id = $1 AND finished_at IS NULL`,
		attempt.ID,
		attempt.Status,
		attempt.TotalRows,
		attempt.ValidRows,
		attempt.UpsertedRows,
		attempt.SkippedRows,
		attempt.ErrorCount,
		attempt.WarningsCount,
		sampleJSON,
		errorSummary,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize import attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import attempt %s already finalized or missing", attempt.ID)
	}

	return nil
}

func (r *importAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportAttempt, error) {
	if r.pool == nil {
		return domain.ImportAttempt{}, fmt.Errorf("import attempt repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT id, user_id, entity_type, source_kind, source_locator, status,
		        total_rows, valid_rows, upserted_rows, skipped_rows,
		        error_count, warnings_count, sample_json, error_summary,
		        created_at, finished_at
		 FROM import_attempts
		 WHERE id = $1`,
		id,
	)
	return scanAttempt(row)
}

func (r *importAttemptRepository) List(ctx context.Context, limit int, offset int) ([]domain.ImportAttempt, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("import attempt repository not initialized")
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, user_id, entity_type, source_kind, source_locator, status,
		        total_rows, valid_rows, upserted_rows, skipped_rows,
		        error_count, warnings_count, sample_json, error_summary,
		        created_at, finished_at
		 FROM import_attempts
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.ImportAttempt{}
	for rows.Next() {
		attempt, scanErr := scanAttempt(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		attempts = append(attempts, attempt)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import attempts: %w", rowsErr)
	}

	return attempts, nil
}

func scanAttempt(row pgx.Row) (domain.ImportAttempt, error) {
	var (
		attempt      domain.ImportAttempt
		userID       pgtype.UUID
		sampleJSON   []byte
		errorSummary pgtype.Text
		finishedAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&attempt.ID,
		&userID,
		&attempt.EntityType,
		&attempt.SourceKind,
		&attempt.SourceLocator,
		&attempt.Status,
		&attempt.TotalRows,
		&attempt.ValidRows,
		&attempt.UpsertedRows,
		&attempt.SkippedRows,
		&attempt.ErrorCount,
		&attempt.WarningsCount,
		&sampleJSON,
		&errorSummary,
		&attempt.CreatedAt,
		&finishedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ImportAttempt{}, err
		}
		return domain.ImportAttempt{}, fmt.Errorf("failed to scan import attempt: %w", err)
	}

	if userID.Valid {
		value := uuid.UUID(userID.Bytes)
		attempt.UserID = &value
	}
	if len(sampleJSON) > 0 {
		if err := json.Unmarshal(sampleJSON, &attempt.SampleRows); err != nil {
			return domain.ImportAttempt{}, fmt.Errorf("failed to decode sample rows: %w", err)
		}
	}
	if errorSummary.Valid {
		value := errorSummary.String
		attempt.ErrorSummary = &value
	}
	if finishedAt.Valid {
		attempt.FinishedAt = &finishedAt.Time
	}

	return attempt, nil
}
