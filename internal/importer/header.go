package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/schema"
)

var (
	zeroWidthReplacer = strings.NewReplacer(
		"\uFEFF", "",
		"\u200B", "",
		"\u200C", "",
		"\u200D", "",
	)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeHeader prepares header text for alias comparison: strip BOM
// and zero-width characters, trim, collapse whitespace runs, lowercase.
func NormalizeHeader(header string) string {
	header = zeroWidthReplacer.Replace(header)
	header = strings.TrimSpace(header)
	header = whitespaceRun.ReplaceAllString(header, " ")
	return strings.ToLower(header)
}

// MappedColumn is the resolution of one input column.
type MappedColumn struct {
	// Input is the original header text, trimmed.
	Input string
	// Canonical is the mapped field name, or the original header text
	// verbatim when unrecognized.
	Canonical string
	// Field is nil for unrecognized headers.
	Field *schema.Field
}

// HeaderMapping is the per-column resolution of input headers against an
// entity schema's alias table, plus the header-level issues found.
type HeaderMapping struct {
	Columns []MappedColumn
	Issues  []domain.ImportIssue
}

// CanonicalHeaders returns the output header order, one entry per input
// column, unmapped headers retained verbatim.
func (m HeaderMapping) CanonicalHeaders() []string {
	headers := make([]string, len(m.Columns))
	for i, col := range m.Columns {
		headers[i] = col.Canonical
	}
	return headers
}

// MapHeaders matches each input header's normalized form against the
// schema's alias table. First exact match wins; unknown headers produce a
// HEADER_UNKNOWN warning and required canonical fields with no mapped
// column produce a HEADER_MISSING error. Neither aborts processing.
func MapHeaders(sch schema.EntitySchema, headers []string) HeaderMapping {
	lookup := make(map[string]*schema.Field)
	for i := range sch.Fields {
		field := &sch.Fields[i]
		lookup[NormalizeHeader(field.Canonical)] = field
		for _, alias := range field.Aliases {
			if _, taken := lookup[alias]; !taken {
				lookup[alias] = field
			}
		}
	}

	mapping := HeaderMapping{Columns: make([]MappedColumn, len(headers))}
	mapped := make(map[string]bool)

	for i, header := range headers {
		trimmed := strings.TrimSpace(header)
		field, ok := lookup[NormalizeHeader(header)]
		if !ok {
			mapping.Columns[i] = MappedColumn{Input: trimmed, Canonical: trimmed}
			mapping.Issues = append(mapping.Issues, domain.ImportIssue{
				Severity: domain.SeverityWarning,
				Code:     domain.CodeHeaderUnknown,
				Message:  fmt.Sprintf("unknown header: %s", trimmed),
				Field:    trimmed,
			})
			continue
		}
		mapping.Columns[i] = MappedColumn{Input: trimmed, Canonical: field.Canonical, Field: field}
		mapped[field.Column] = true
	}

	for _, field := range sch.Fields {
		if field.RequiredHeader && !mapped[field.Column] {
			mapping.Issues = append(mapping.Issues, domain.ImportIssue{
				Severity: domain.SeverityError,
				Code:     domain.CodeHeaderMissing,
				Message:  fmt.Sprintf("missing required header: %s", field.Canonical),
				Field:    field.Canonical,
			})
		}
	}

	return mapping
}
