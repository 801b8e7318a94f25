package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Kind names a record kind held in the warehouse; it maps one-to-one to a table
type Kind string

const (
	KindRulemakings Kind = "rulemakings"
	KindSubmissions Kind = "submissions"
	KindAnalytics   Kind = "analytics"
	KindAdminUsers  Kind = "admin_users"
)

// ErrMalformed is the generic store error for requests naming unknown kinds or columns
var ErrMalformed = errors.New("malformed store request")

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("duplicate record")

type schema struct {
	columns      []string
	hasUpdatedAt bool
}

var schemas = map[Kind]schema{
	KindRulemakings: {
		columns: []string{
			"id", "agency", "title", "description", "docket_id", "federal_register_url",
			"comment_deadline", "status", "context_documents", "legal_analysis",
			"opposition_points", "created_at", "updated_at",
		},
		hasUpdatedAt: true,
	},
	KindSubmissions: {
		columns: []string{
			"id", "rulemaking_id", "user_name", "user_email", "user_city", "user_state",
			"user_zip", "personal_story", "why_it_matters", "experiences", "concerns",
			"generated_comment", "final_comment", "submission_status",
			"federal_register_submission_id", "ip_address", "user_agent",
			"recaptcha_verified", "created_at", "submitted_at",
		},
	},
	KindAnalytics: {
		columns: []string{
			"id", "date", "rulemaking_id", "total_submissions", "unique_users",
			"states_represented", "avg_comment_length", "created_at",
		},
	},
	KindAdminUsers: {
		columns: []string{
			"id", "email", "password_hash", "name", "role", "is_active",
			"created_at", "updated_at", "last_login",
		},
		hasUpdatedAt: true,
	},
}

// transient Postgres conditions on UPDATE: the row is still held by the writer that
// inserted it, or the statement lost a serialization race
var transientCodes = map[pq.ErrorCode]bool{
	"55P03": true, // lock_not_available
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// Record is one row keyed by column name
type Record map[string]any

// Warehouse is the uniform insert/query/get/update adapter over the record kinds.
// It is the only writer of persisted state.
type Warehouse struct {
	db          *sql.DB
	logger      *zap.Logger
	lockTimeout time.Duration
}

// NewWarehouse creates a Warehouse over an open database handle
func NewWarehouse(db *sql.DB, logger *zap.Logger) *Warehouse {
	return &Warehouse{
		db:          db,
		logger:      logger.Named("warehouse"),
		lockTimeout: 2 * time.Second,
	}
}

// DB exposes the underlying handle for typed read queries
func (w *Warehouse) DB() *sql.DB {
	return w.db
}

// Insert appends rows of one kind and returns the number of rows written.
// Every record must carry the same set of columns.
func (w *Warehouse) Insert(ctx context.Context, kind Kind, records ...Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query, args, err := buildInsert(kind, records)
	if err != nil {
		return 0, err
	}

	res, err := w.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("failed to insert into %s: %w", kind, ErrDuplicate)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", kind, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return int64(len(records)), nil
	}
	return n, nil
}

// Query runs a parameterized read and returns each row as a Record.
// Byte-slice values (text, json, numeric) are returned as strings.
func (w *Warehouse) Query(ctx context.Context, stmt string, args ...any) ([]Record, error) {
	rows, err := w.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// GetByID loads the row of the given kind into dest, one pointer per schema column in
// declaration order. It reports false when no such row exists.
func (w *Warehouse) GetByID(ctx context.Context, kind Kind, id string, dest ...any) (bool, error) {
	sc, ok := schemas[kind]
	if !ok {
		return false, fmt.Errorf("%w: unknown kind %q", ErrMalformed, kind)
	}
	if len(dest) != len(sc.columns) {
		return false, fmt.Errorf("%w: %s needs %d scan targets, got %d", ErrMalformed, kind, len(sc.columns), len(dest))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(sc.columns, ", "), kind)
	err := w.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return true, nil
}

// Update applies a partial update and stamps updated_at when the kind has one.
// A row still locked by its inserting transaction is logged and skipped, so callers
// must not assume the change is visible immediately after an insert.
func (w *Warehouse) Update(ctx context.Context, kind Kind, id string, changes Record) error {
	query, args, err := buildUpdate(kind, id, changes)
	if err != nil {
		return err
	}

	err = w.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", w.lockTimeout.Milliseconds())); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if isTransient(err) {
		w.logger.Warn("update skipped, row busy; recently inserted rows may reject updates",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	return nil
}

func (w *Warehouse) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientCodes[pqErr.Code]
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func buildInsert(kind Kind, records []Record) (string, []any, error) {
	sc, ok := schemas[kind]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, kind)
	}

	cols := sortedKeys(records[0])
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: empty record", ErrMalformed)
	}
	for _, col := range cols {
		if !sc.has(col) {
			return "", nil, fmt.Errorf("%w: %s has no column %q", ErrMalformed, kind, col)
		}
	}

	var (
		b    strings.Builder
		args = make([]any, 0, len(cols)*len(records))
	)
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", kind, strings.Join(cols, ", "))

	for i, rec := range records {
		if len(rec) != len(cols) {
			return "", nil, fmt.Errorf("%w: record %d has a different column set", ErrMalformed, i)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range cols {
			v, ok := rec[col]
			if !ok {
				return "", nil, fmt.Errorf("%w: record %d is missing %q", ErrMalformed, i, col)
			}
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, v)
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteString(")")
	}

	return b.String(), args, nil
}

func buildUpdate(kind Kind, id string, changes Record) (string, []any, error) {
	sc, ok := schemas[kind]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, kind)
	}
	if len(changes) == 0 {
		return "", nil, fmt.Errorf("%w: no fields to update", ErrMalformed)
	}

	cols := sortedKeys(changes)
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		if col == "id" || col == "created_at" || col == "updated_at" || !sc.has(col) {
			return "", nil, fmt.Errorf("%w: column %q of %s is not updatable", ErrMalformed, col, kind)
		}
		args = append(args, changes[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if sc.hasUpdatedAt {
		sets = append(sets, "updated_at = NOW()")
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", kind, strings.Join(sets, ", "), len(args))
	return query, args, nil
}

func (s schema) has(col string) bool {
	for _, c := range s.columns {
		if c == col {
			return true
		}
	}
	return false
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
