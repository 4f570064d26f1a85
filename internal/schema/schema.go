package schema

import (
	"github.com/canopycrm/importer/internal/domain"
)

// FieldKind selects the cleaning rule applied to values of a canonical field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindEmail
	KindURL
	KindDate
	KindPhone
	KindBool
	KindState
)

// Field describes one canonical field of an entity type.
type Field struct {
	// Canonical is the display name a recognized header alias maps to,
	// e.g. "Contact Email".
	Canonical string
	// Column is the target store column, e.g. "email".
	Column string
	Kind   FieldKind
	// Aliases are accepted lowercase header forms. The canonical name
	// itself always matches and does not need to be listed.
	Aliases []string
	// Required rejects the row when the value is empty after cleaning.
	Required bool
	// RequiredHeader records a HEADER_MISSING error when no input column
	// maps to this field.
	RequiredHeader bool
}

// SurrogateKey describes how to derive a fallback identifier when the
// natural unique identifier is absent from the source data.
type SurrogateKey struct {
	Prefix string
	// Parts are the columns hashed, in order. All must be present for a
	// surrogate to be derivable.
	Parts []string
}

// EntitySchema is the static descriptor driving header mapping, row
// validation and reconciliation for one entity type. Read-only,
// process-wide configuration.
type EntitySchema struct {
	EntityType domain.EntityType
	Table      string
	Fields     []Field
	// UniqueIDColumn names the natural unique identifier column, empty
	// when the entity type has none.
	UniqueIDColumn string
	Surrogate      *SurrogateKey
	// LookupKeys are column sets tried in order during reconciliation;
	// a key is usable only when every column has a value.
	LookupKeys [][]string
}

// FieldByColumn returns the field descriptor for a store column.
func (s EntitySchema) FieldByColumn(column string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredColumns lists the columns whose absence rejects a row.
func (s EntitySchema) RequiredColumns() []string {
	var cols []string
	for _, f := range s.Fields {
		if f.Required {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// Columns lists every store column of the schema, in field order.
func (s EntitySchema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Column
	}
	return cols
}

// ForEntity returns the descriptor for the given entity type.
func ForEntity(t domain.EntityType) (EntitySchema, bool) {
	s, ok := registry[t]
	return s, ok
}
