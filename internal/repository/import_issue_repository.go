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

type importIssueRepository struct {
	pool *pgxpool.Pool
}

// NewImportIssueRepository wires a repository backed by pgxpool.
func NewImportIssueRepository(pool *pgxpool.Pool) ImportIssueRepository {
	return &importIssueRepository{pool: pool}
}

func (r *importIssueRepository) RecordBatch(ctx context.Context, issues []domain.ImportIssue) error {
	if r.pool == nil {
		return fmt.Errorf("import issue repository not initialized")
	}
	if len(issues) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, issue := range issues {
		var rowNumber any
		if issue.RowNumber != nil {
			rowNumber = *issue.RowNumber
		}

		var rawRowJSON []byte
		if len(issue.RawRow) > 0 {
			encoded, err := json.Marshal(issue.RawRow)
			if err != nil {
				return fmt.Errorf("failed to encode raw row: %w", err)
			}
			rawRowJSON = encoded
		}

		var field any
		if issue.Field != "" {
			field = issue.Field
		}

		batch.Queue(
			`INSERT INTO import_issues (attempt_id, row_number, severity, code, message, field, raw_row_json)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			issue.AttemptID,
			rowNumber,
			issue.Severity,
			issue.Code,
			issue.Message,
			field,
			rawRowJSON,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range issues {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to record import issue: %w", err)
		}
	}

	return nil
}

func (r *importIssueRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID, limit int, offset int) ([]domain.ImportIssue, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("import issue repository not initialized")
	}

	if limit <= 0 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, attempt_id, row_number, severity, code, message, field, raw_row_json, created_at
		 FROM import_issues
		 WHERE attempt_id = $1
		 ORDER BY row_number NULLS FIRST, created_at
		 LIMIT $2 OFFSET $3`,
		attemptID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import issues: %w", err)
	}
	defer rows.Close()

	issues := []domain.ImportIssue{}
	for rows.Next() {
		var (
			issue      domain.ImportIssue
			rowNumber  pgtype.Int4
			field      pgtype.Text
			rawRowJSON []byte
		)
		if scanErr := rows.Scan(
			&issue.ID,
			&issue.AttemptID,
			&rowNumber,
			&issue.Severity,
			&issue.Code,
			&issue.Message,
			&field,
			&rawRowJSON,
			&issue.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan import issue: %w", scanErr)
		}

		if rowNumber.Valid {
			value := int(rowNumber.Int32)
			issue.RowNumber = &value
		}
		if field.Valid {
			issue.Field = field.String
		}
		if len(rawRowJSON) > 0 {
			if err := json.Unmarshal(rawRowJSON, &issue.RawRow); err != nil {
				return nil, fmt.Errorf("failed to decode raw row: %w", err)
			}
		}

		issues = append(issues, issue)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import issues: %w", rowsErr)
	}

	return issues, nil
}
