package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies an import issue. Errors reject or skip the row,
// warnings only annotate it.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Stable machine-readable issue codes.
const (
	CodeHeaderUnknown        = "HEADER_UNKNOWN"
	CodeHeaderMissing        = "HEADER_MISSING"
	CodeUniqueIDGenerated    = "UNIQUE_ID_GENERATED"
	CodeUniqueIDMissing      = "UNIQUE_ID_MISSING"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeEmailInvalid         = "EMAIL_INVALID"
	CodeURLInvalid           = "URL_INVALID"
	CodeDateParse            = "DATE_PARSE"
	CodePhoneShort           = "PHONE_SHORT"
	CodeBooleanInvalid       = "BOOLEAN_INVALID"
	CodeRowProcessing        = "ROW_PROCESSING_ERROR"
	CodeInsertError          = "INSERT_ERROR"
	CodeUpdateError          = "UPDATE_ERROR"
	CodeNoData               = "NO_DATA"
)

// ImportIssue is one problem found while processing a specific row or
// header. RowNumber is 1-based counting the header row, so data row N of
// the source CSV is reported as N+1; header-level issues carry no row
// number. Immutable once created.
type ImportIssue struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	AttemptID uuid.UUID         `json:"attempt_id,omitempty"`
	RowNumber *int              `json:"row_number,omitempty"`
	Severity  Severity          `json:"severity"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Field     string            `json:"field,omitempty"`
	RawRow    map[string]string `json:"raw_row,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// CountBySeverity tallies errors and warnings over an issue collection.
func CountBySeverity(issues []ImportIssue) (errors, warnings int) {
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}
