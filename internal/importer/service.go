package importer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/events"
	"github.com/canopycrm/importer/internal/repository"
	"github.com/canopycrm/importer/internal/schema"
)

const defaultSampleRows = 20

// Service runs the import pipeline: header mapping, row validation, and
// (outside dry runs) reconciliation against the record store, with the
// attempt and its issues persisted.
type Service struct {
	attempts   repository.ImportAttemptRepository
	issues     repository.ImportIssueRepository
	records    repository.RecordStore
	emitter    events.Emitter
	sampleRows int
}

// NewService wires the pipeline. A nil emitter discards events.
func NewService(
	attempts repository.ImportAttemptRepository,
	issues repository.ImportIssueRepository,
	records repository.RecordStore,
	emitter events.Emitter,
) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{
		attempts:   attempts,
		issues:     issues,
		records:    records,
		emitter:    emitter,
		sampleRows: defaultSampleRows,
	}
}

// Request describes one pipeline invocation over an acquired payload.
type Request struct {
	EntityType    domain.EntityType
	SourceKind    domain.SourceKind
	SourceLocator string
	FileName      string
	UserID        *uuid.UUID
	DryRun        bool
	CorrelationID string
	Payload       []byte
}

// Result carries the batch outcome back to the API layer. UpsertedRows
// counts distinct records written; two rows resolving to the same record
// count once, the second as an update.
type Result struct {
	AttemptID         *uuid.UUID           `json:"attemptId,omitempty"`
	Status            domain.AttemptStatus `json:"status,omitempty"`
	TotalRows         int                  `json:"totalRows"`
	ValidRows         int                  `json:"validRows"`
	UpsertedRows      int                  `json:"upsertedRows"`
	InsertedRows      int                  `json:"insertedRows"`
	UpdatedRows       int                  `json:"updatedRows"`
	SkippedRows       int                  `json:"skippedRows"`
	ErrorCount        int                  `json:"errorCount"`
	WarningsCount     int                  `json:"warningsCount"`
	Headers           []string             `json:"headers"`
	NormalizedHeaders []string             `json:"normalizedHeaders"`
	Issues            []domain.ImportIssue `json:"issues"`
	SampleData        []map[string]string  `json:"sampleData"`
}

// Run executes the pipeline over the payload. Rows are processed
// sequentially in input order; a row's persistence failure never aborts
// the batch.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	result := Result{Issues: []domain.ImportIssue{}, SampleData: []map[string]string{}}

	sch, ok := schema.ForEntity(req.EntityType)
	if !ok {
		return result, domain.NewImportError(domain.CodeNotFound,
			fmt.Sprintf("unknown entity type: %s", req.EntityType), http.StatusNotFound)
	}

	if len(strings.TrimSpace(string(req.Payload))) == 0 {
		return result, domain.NewImportError(domain.CodeCSVEmpty, "CSV file is empty or invalid", http.StatusBadRequest)
	}

	records, err := parseRecords(req.FileName, req.Payload)
	if err != nil {
		return result, err
	}
	if len(records) == 0 {
		return result, domain.NewImportError(domain.CodeCSVEmpty, "CSV file is empty or invalid", http.StatusBadRequest)
	}

	headers := records[0]
	dataRows := records[1:]

	mapping := MapHeaders(sch, headers)
	result.Headers = trimAll(headers)
	result.NormalizedHeaders = mapping.CanonicalHeaders()
	result.Issues = append(result.Issues, mapping.Issues...)
	result.TotalRows = len(dataRows)

	s.emitter.Emit("CSV_PARSED", req.CorrelationID, map[string]any{
		"entity_type":  req.EntityType,
		"total_rows":   len(dataRows),
		"header_count": len(headers),
	})

	if len(dataRows) == 0 {
		result.Issues = append(result.Issues, domain.ImportIssue{
			Severity: domain.SeverityError,
			Code:     domain.CodeNoData,
			Message:  "no data rows found in CSV file",
		})
	}

	var attempt domain.ImportAttempt
	if !req.DryRun {
		attempt, err = s.attempts.Create(ctx, domain.ImportAttempt{
			UserID:        req.UserID,
			EntityType:    req.EntityType,
			SourceKind:    req.SourceKind,
			SourceLocator: req.SourceLocator,
			Status:        domain.AttemptRunning,
		})
		if err != nil {
			return result, domain.NewImportError(domain.CodeDBError,
				fmt.Sprintf("failed to create import attempt: %v", err), http.StatusInternalServerError)
		}
		result.AttemptID = &attempt.ID
	}

	written := make(map[uuid.UUID]struct{})

	for i, record := range dataRows {
		rowNumber := i + 2 // 1-based, counting the header row

		values, rawRow, rowIssues, rejected := s.processRow(sch, mapping, record, rowNumber)
		result.Issues = append(result.Issues, rowIssues...)

		if len(result.SampleData) < s.sampleRows {
			result.SampleData = append(result.SampleData, sampleRow(mapping, record))
		}

		if rejected {
			result.SkippedRows++
			continue
		}

		// Validity is assessed before persistence; a later upsert failure
		// does not retract it.
		if !hasError(rowIssues) {
			result.ValidRows++
		}

		if req.DryRun {
			continue
		}

		issue, inserted := s.reconcile(ctx, sch, values, rawRow, rowNumber, written)
		if issue != nil {
			result.Issues = append(result.Issues, *issue)
			result.SkippedRows++
			continue
		}
		if inserted {
			result.InsertedRows++
		} else {
			result.UpdatedRows++
		}
	}

	result.UpsertedRows = len(written)
	result.ErrorCount, result.WarningsCount = domain.CountBySeverity(result.Issues)
	result.Status = domain.ResolveStatus(result.ErrorCount, result.UpsertedRows)

	if !req.DryRun {
		s.persistOutcome(ctx, req, attempt, &result)
	}

	s.emitter.Emit("VALIDATION_COMPLETE", req.CorrelationID, map[string]any{
		"entity_type":    req.EntityType,
		"total_rows":     result.TotalRows,
		"valid_rows":     result.ValidRows,
		"error_count":    result.ErrorCount,
		"warnings_count": result.WarningsCount,
		"dry_run":        req.DryRun,
	})

	return result, nil
}

// processRow builds the canonical field map for one record. A panic while
// cleaning downgrades to a ROW_PROCESSING_ERROR issue on that row.
func (s *Service) processRow(
	sch schema.EntitySchema,
	mapping HeaderMapping,
	record []string,
	rowNumber int,
) (values map[string]any, rawRow map[string]string, issues []domain.ImportIssue, rejected bool) {
	defer func() {
		if r := recover(); r != nil {
			row := rowNumber
			issues = append(issues, domain.ImportIssue{
				RowNumber: &row,
				Severity:  domain.SeverityError,
				Code:      domain.CodeRowProcessing,
				Message:   fmt.Sprintf("row processing failed: %v", r),
				RawRow:    rawRow,
			})
			rejected = true
		}
	}()

	values = make(map[string]any)
	rawRow = make(map[string]string)

	for j, col := range mapping.Columns {
		raw := ""
		if j < len(record) {
			raw = strings.TrimSpace(record[j])
		}
		rawRow[col.Input] = raw
		if col.Field == nil || raw == "" {
			continue
		}

		value, keep, issue := cleanField(*col.Field, raw, rowNumber)
		if issue != nil {
			issues = append(issues, *issue)
		}
		if keep {
			values[col.Field.Column] = value
		}
	}

	row := rowNumber

	if sch.UniqueIDColumn != "" && isEmpty(values[sch.UniqueIDColumn]) {
		surrogate, derived := deriveSurrogate(sch, values)
		if !derived {
			issues = append(issues, domain.ImportIssue{
				RowNumber: &row,
				Severity:  domain.SeverityError,
				Code:      domain.CodeUniqueIDMissing,
				Message:   "missing unique identifier and insufficient data to generate one",
				Field:     sch.UniqueIDColumn,
				RawRow:    rawRow,
			})
			return values, rawRow, issues, true
		}
		values[sch.UniqueIDColumn] = surrogate
		issues = append(issues, domain.ImportIssue{
			RowNumber: &row,
			Severity:  domain.SeverityWarning,
			Code:      domain.CodeUniqueIDGenerated,
			Message:   fmt.Sprintf("generated surrogate unique identifier: %s", surrogate),
			Field:     sch.UniqueIDColumn,
			RawRow:    rawRow,
		})
	}

	for _, column := range sch.RequiredColumns() {
		if isEmpty(values[column]) {
			issues = append(issues, domain.ImportIssue{
				RowNumber: &row,
				Severity:  domain.SeverityError,
				Code:      domain.CodeMissingRequiredField,
				Message:   fmt.Sprintf("missing required field: %s", column),
				Field:     column,
				RawRow:    rawRow,
			})
			rejected = true
		}
	}

	return values, rawRow, issues, rejected
}

// reconcile decides insert-vs-update for one canonical row. Lookup keys
// are tried in schema order; a row matching a record written earlier in
// the same batch observes it as an update.
func (s *Service) reconcile(
	ctx context.Context,
	sch schema.EntitySchema,
	values map[string]any,
	rawRow map[string]string,
	rowNumber int,
	written map[uuid.UUID]struct{},
) (*domain.ImportIssue, bool) {
	row := rowNumber

	var key map[string]any
	for _, keyCols := range sch.LookupKeys {
		candidate := make(map[string]any, len(keyCols))
		usable := true
		for _, col := range keyCols {
			if isEmpty(values[col]) {
				usable = false
				break
			}
			candidate[col] = values[col]
		}
		if usable {
			key = candidate
			break
		}
	}

	if key != nil {
		id, found, err := s.records.Find(ctx, sch.Table, key)
		if err != nil {
			return &domain.ImportIssue{
				RowNumber: &row,
				Severity:  domain.SeverityError,
				Code:      domain.CodeUpdateError,
				Message:   err.Error(),
				RawRow:    rawRow,
			}, false
		}
		if found {
			if err := s.records.Update(ctx, sch.Table, id, values); err != nil {
				return &domain.ImportIssue{
					RowNumber: &row,
					Severity:  domain.SeverityError,
					Code:      domain.CodeUpdateError,
					Message:   err.Error(),
					RawRow:    rawRow,
				}, false
			}
			written[id] = struct{}{}
			return nil, false
		}
	}

	id, err := s.records.Insert(ctx, sch.Table, values)
	if err != nil {
		return &domain.ImportIssue{
			RowNumber: &row,
			Severity:  domain.SeverityError,
			Code:      domain.CodeInsertError,
			Message:   err.Error(),
			RawRow:    rawRow,
		}, false
	}
	written[id] = struct{}{}
	return nil, true
}

// persistOutcome saves issues and finalizes the attempt. Persistence
// problems here are reported through the emitter rather than failing the
// batch the operator already ran.
func (s *Service) persistOutcome(ctx context.Context, req Request, attempt domain.ImportAttempt, result *Result) {
	if len(result.Issues) > 0 {
		batch := make([]domain.ImportIssue, len(result.Issues))
		for i, issue := range result.Issues {
			issue.AttemptID = attempt.ID
			batch[i] = issue
		}
		if err := s.issues.RecordBatch(ctx, batch); err != nil {
			s.emitter.Emit("ISSUES_PERSIST_FAILED", req.CorrelationID, map[string]any{
				"attempt_id": attempt.ID,
				"error":      err.Error(),
			})
		}
	}

	attempt.Status = result.Status
	attempt.TotalRows = result.TotalRows
	attempt.ValidRows = result.ValidRows
	attempt.UpsertedRows = result.UpsertedRows
	attempt.SkippedRows = result.SkippedRows
	attempt.ErrorCount = result.ErrorCount
	attempt.WarningsCount = result.WarningsCount
	attempt.SampleRows = result.SampleData
	if summary := firstErrorMessage(result.Issues); summary != "" {
		attempt.ErrorSummary = &summary
	}

	if err := s.attempts.Finalize(ctx, attempt); err != nil {
		s.emitter.Emit("ATTEMPT_FINALIZE_FAILED", req.CorrelationID, map[string]any{
			"attempt_id": attempt.ID,
			"error":      err.Error(),
		})
	}

	s.emitter.Emit("IMPORT_COMPLETE", req.CorrelationID, map[string]any{
		"attempt_id":    attempt.ID,
		"status":        result.Status,
		"upserted_rows": result.UpsertedRows,
		"skipped_rows":  result.SkippedRows,
	})
}

func deriveSurrogate(sch schema.EntitySchema, values map[string]any) (string, bool) {
	if sch.Surrogate == nil {
		return "", false
	}
	parts := make([]string, 0, len(sch.Surrogate.Parts))
	for _, col := range sch.Surrogate.Parts {
		value, ok := values[col].(string)
		if !ok || value == "" {
			return "", false
		}
		parts = append(parts, value)
	}
	return SurrogateID(sch.Surrogate.Prefix, parts), true
}

func sampleRow(mapping HeaderMapping, record []string) map[string]string {
	row := make(map[string]string, len(mapping.Columns))
	for j, col := range mapping.Columns {
		if j < len(record) {
			row[col.Canonical] = strings.TrimSpace(record[j])
		} else {
			row[col.Canonical] = ""
		}
	}
	return row
}

func hasError(issues []domain.ImportIssue) bool {
	for _, issue := range issues {
		if issue.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

func firstErrorMessage(issues []domain.ImportIssue) string {
	for _, issue := range issues {
		if issue.Severity == domain.SeverityError {
			return issue.Message
		}
	}
	return ""
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func trimAll(values []string) []string {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	return trimmed
}
