package export

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/repository"
)

func TestWriteIssueReport(t *testing.T) {
	attemptID := uuid.New()
	row := 2
	issues := &stubIssueRepo{issues: []domain.ImportIssue{
		{AttemptID: attemptID, Severity: domain.SeverityError, Code: "HEADER_MISSING", Field: "Contact First Name", Message: "missing required header: Contact First Name"},
		{AttemptID: attemptID, RowNumber: &row, Severity: domain.SeverityWarning, Code: "EMAIL_INVALID", Field: "email", Message: "invalid email format: nope"},
	}}
	service := NewService(&stubAttemptRepo{}, issues)

	var sb strings.Builder
	if err := service.WriteIssueReport(context.Background(), &sb, attemptID); err != nil {
		t.Fatalf("report returned error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "row_number" || records[0][1] != "severity" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	// Header-level issues have no row number.
	if records[1][0] != "" || records[1][2] != "HEADER_MISSING" {
		t.Fatalf("unexpected first row: %v", records[1])
	}
	if records[2][0] != "2" || records[2][1] != "warning" {
		t.Fatalf("unexpected second row: %v", records[2])
	}
}

func TestWriteIssueReportPages(t *testing.T) {
	attemptID := uuid.New()
	issues := &stubIssueRepo{}
	for i := 0; i < 1200; i++ {
		row := i + 2
		issues.issues = append(issues.issues, domain.ImportIssue{
			AttemptID: attemptID,
			RowNumber: &row,
			Severity:  domain.SeverityWarning,
			Code:      "DATE_PARSE",
			Message:   "invalid date",
		})
	}
	service := NewService(&stubAttemptRepo{}, issues)

	var sb strings.Builder
	if err := service.WriteIssueReport(context.Background(), &sb, attemptID); err != nil {
		t.Fatalf("report returned error: %v", err)
	}

	lines := strings.Count(strings.TrimRight(sb.String(), "\n"), "\n") + 1
	if lines != 1201 {
		t.Fatalf("expected 1201 lines, got %d", lines)
	}
	if issues.calls < 3 {
		t.Fatalf("expected the report to page through issues, got %d calls", issues.calls)
	}
}

func TestListAttemptsDefaults(t *testing.T) {
	attempts := &stubAttemptRepo{attempts: []domain.ImportAttempt{{ID: uuid.New()}}}
	service := NewService(attempts, &stubIssueRepo{})

	got, err := service.ListAttempts(context.Background(), 0, -5)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(got))
	}
	if attempts.lastLimit != 20 || attempts.lastOffset != 0 {
		t.Fatalf("expected defaulted paging, got limit=%d offset=%d", attempts.lastLimit, attempts.lastOffset)
	}
}

type stubAttemptRepo struct {
	attempts   []domain.ImportAttempt
	lastLimit  int
	lastOffset int
}

func (s *stubAttemptRepo) Create(ctx context.Context, attempt domain.ImportAttempt) (domain.ImportAttempt, error) {
	return domain.ImportAttempt{}, errors.New("not implemented")
}

func (s *stubAttemptRepo) Finalize(ctx context.Context, attempt domain.ImportAttempt) error {
	return errors.New("not implemented")
}

func (s *stubAttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportAttempt, error) {
	for _, attempt := range s.attempts {
		if attempt.ID == id {
			return attempt, nil
		}
	}
	return domain.ImportAttempt{}, errors.New("not found")
}

func (s *stubAttemptRepo) List(ctx context.Context, limit int, offset int) ([]domain.ImportAttempt, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return s.attempts, nil
}

type stubIssueRepo struct {
	issues []domain.ImportIssue
	calls  int
}

func (s *stubIssueRepo) RecordBatch(ctx context.Context, issues []domain.ImportIssue) error {
	return errors.New("not implemented")
}

func (s *stubIssueRepo) ListByAttempt(ctx context.Context, attemptID uuid.UUID, limit int, offset int) ([]domain.ImportIssue, error) {
	s.calls++
	var matched []domain.ImportIssue
	for _, issue := range s.issues {
		if issue.AttemptID == attemptID {
			matched = append(matched, issue)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

var _ repository.ImportAttemptRepository = (*stubAttemptRepo)(nil)
var _ repository.ImportIssueRepository = (*stubIssueRepo)(nil)
