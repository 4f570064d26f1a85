package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore wires the entity-collection store backed by pgxpool.
// Table and column identifiers originate from the static entity schemas,
// never from request data; they are still quoted defensively.
func NewRecordStore(pool *pgxpool.Pool) RecordStore {
	return &recordStore{pool: pool}
}

func (s *recordStore) Find(ctx context.Context, table string, key map[string]any) (uuid.UUID, bool, error) {
	if s.pool == nil {
		return uuid.Nil, false, fmt.Errorf("record store not initialized")
	}
	if len(key) == 0 {
		return uuid.Nil, false, fmt.Errorf("empty lookup key for table %s", table)
	}

	columns, args := sortedPairs(key)
	predicates := make([]string, len(columns))
	for i, column := range columns {
		predicates[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{column}.Sanitize(), i+1)
	}

	query := fmt.Sprintf(
		`SELECT id FROM %s WHERE %s LIMIT 1`,
		pgx.Identifier{table}.Sanitize(),
		strings.Join(predicates, " AND "),
	)

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up %s record: %w", table, err)
	}

	return id, true, nil
}

func (s *recordStore) Insert(ctx context.Context, table string, values map[string]any) (uuid.UUID, error) {
	if s.pool == nil {
		return uuid.Nil, fmt.Errorf("record store not initialized")
	}
	if len(values) == 0 {
		return uuid.Nil, fmt.Errorf("no values to insert into table %s", table)
	}

	columns, args := sortedPairs(values)
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = pgx.Identifier{column}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		pgx.Identifier{table}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert %s record: %w", table, err)
	}

	return id, nil
}

func (s *recordStore) Update(ctx context.Context, table string, id uuid.UUID, values map[string]any) error {
	if s.pool == nil {
		return fmt.Errorf("record store not initialized")
	}
	if len(values) == 0 {
		return fmt.Errorf("no values to update in table %s", table)
	}

	columns, args := sortedPairs(values)
	assignments := make([]string, len(columns))
	for i, column := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{column}.Sanitize(), i+1)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE %s SET %s, updated_at = now() WHERE id = $%d`,
		pgx.Identifier{table}.Sanitize(),
		strings.Join(assignments, ", "),
		len(columns)+1,
	)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s record: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s record %s not found", table, id)
	}

	return nil
}

// sortedPairs orders map entries by column name so generated SQL is
// deterministic.
func sortedPairs(values map[string]any) ([]string, []any) {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	args := make([]any, len(columns))
	for i, column := range columns {
		args[i] = values[column]
	}
	return columns, args
}
