package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/repository"
)

// Service reads back persisted import attempts and renders issue reports.
type Service struct {
	attempts repository.ImportAttemptRepository
	issues   repository.ImportIssueRepository
	pageSize int
	issueCap int
}

func NewService(attempts repository.ImportAttemptRepository, issues repository.ImportIssueRepository) *Service {
	return &Service{
		attempts: attempts,
		issues:   issues,
		pageSize: 500,
		issueCap: 50000,
	}
}

// ListAttempts returns recent import attempts, newest first.
func (s *Service) ListAttempts(ctx context.Context, limit, offset int) ([]domain.ImportAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	attempts, err := s.attempts.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list import attempts: %w", err)
	}
	return attempts, nil
}

// GetAttempt loads a single attempt by id.
func (s *Service) GetAttempt(ctx context.Context, id uuid.UUID) (domain.ImportAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		return domain.ImportAttempt{}, fmt.Errorf("load import attempt: %w", err)
	}
	return attempt, nil
}

// ListIssues returns a page of issues for an attempt, errors first by row order.
func (s *Service) ListIssues(ctx context.Context, attemptID uuid.UUID, limit, offset int) ([]domain.ImportIssue, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	issues, err := s.issues.ListByAttempt(ctx, attemptID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list import issues: %w", err)
	}
	return issues, nil
}

// WriteIssueReport streams every issue for the attempt as CSV. The report
// pages through the issue table so large attempts never load fully into
// memory.
func (s *Service) WriteIssueReport(ctx context.Context, w io.Writer, attemptID uuid.UUID) error {
	csvWriter := csv.NewWriter(w)

	header := []string{"row_number", "severity", "code", "field", "message"}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	row := make([]string, len(header))
	written := 0
	offset := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		issues, err := s.issues.ListByAttempt(ctx, attemptID, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("list import issues: %w", err)
		}
		if len(issues) == 0 {
			break
		}
		for _, issue := range issues {
			row[0] = ""
			if issue.RowNumber != nil {
				row[0] = strconv.Itoa(*issue.RowNumber)
			}
			row[1] = string(issue.Severity)
			row[2] = issue.Code
			row[3] = issue.Field
			row[4] = issue.Message
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("write report row: %w", err)
			}
			written++
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("flush report rows: %w", err)
		}
		if written >= s.issueCap {
			break
		}
		if len(issues) < s.pageSize {
			break
		}
		offset += len(issues)
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
