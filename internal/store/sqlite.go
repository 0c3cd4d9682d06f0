package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/outreach-inbox/internal/model"
)

// ErrNotFound is returned when no projected email has the requested id.
var ErrNotFound = errors.New("email not found")

// createdAtLayout is fixed-width so lexical order equals time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements EmailStore on SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens a SQLite database at dbPath (":memory:" for a
// throwaway projection) and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceScope swaps every row of scope for emails, preserving their order
// as the tie-breaker for equal sort keys.
func (s *SQLiteStore) ReplaceScope(
	ctx context.Context,
	scope string,
	emails []model.Email,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM emails WHERE scope = ?", scope); err != nil {
		return fmt.Errorf("clearing scope %q: %w", scope, err)
	}

	const query = `
		INSERT OR REPLACE INTO emails (
			scope, id, position, label,
			sender, from_email, subject, preview,
			created_at, is_preview, raw_data
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range emails {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling email %s: %w", e.ID, err)
		}

		var createdAt sql.NullString
		if t, ok := e.CreatedAt(); ok {
			createdAt = sql.NullString{String: t.UTC().Format(createdAtLayout), Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			scope, e.ID, i, e.Label,
			strings.ToLower(e.SenderName()), strings.ToLower(e.FromAddressEmail),
			strings.ToLower(e.Subject), strings.ToLower(e.ContentPreview),
			createdAt, boolToInt(e.Preview), string(raw),
		)
		if err != nil {
			return fmt.Errorf("inserting email %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Search returns the rows of scope matching filter, sorted by
// filter.SortBy. Undated emails sort after dated ones.
func (s *SQLiteStore) Search(
	ctx context.Context,
	scope string,
	filter EmailFilter,
) ([]model.Email, error) {
	conditions := []string{"scope = ?"}
	args := []interface{}{scope}

	if filter.Label != "" {
		conditions = append(conditions, "label = ?")
		args = append(args, filter.Label)
	}
	if term := strings.TrimSpace(filter.Term); term != "" {
		conditions = append(conditions,
			`(sender LIKE ? ESCAPE '\' OR from_email LIKE ? ESCAPE '\'`+
				` OR subject LIKE ? ESCAPE '\' OR preview LIKE ? ESCAPE '\')`)
		q := "%" + escapeLike(strings.ToLower(term)) + "%"
		args = append(args, q, q, q, q)
	}

	query := "SELECT raw_data, is_preview FROM emails WHERE " +
		strings.Join(conditions, " AND ")

	switch filter.SortBy {
	case SortBySender:
		query += " ORDER BY sender ASC, position ASC"
	case SortBySubject:
		query += " ORDER BY subject ASC, position ASC"
	default:
		query += " ORDER BY created_at IS NULL, created_at DESC, position ASC"
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying emails: %w", err)
	}
	defer rows.Close()

	var emails []model.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}

	return emails, rows.Err()
}

// GetEmail returns the most complete projected copy of the email with id.
// Full records win over previews.
func (s *SQLiteStore) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT raw_data, is_preview FROM emails WHERE id = ? ORDER BY is_preview ASC LIMIT 1",
		id,
	)

	var (
		raw       string
		isPreview int
	)
	if err := row.Scan(&raw, &isPreview); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting email %s: %w", id, err)
	}

	e, err := decodeEmail(raw, isPreview)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEmail(rows *sqlx.Rows) (model.Email, error) {
	var (
		raw       string
		isPreview int
	)
	if err := rows.Scan(&raw, &isPreview); err != nil {
		return model.Email{}, fmt.Errorf("scanning email row: %w", err)
	}
	return decodeEmail(raw, isPreview)
}

func decodeEmail(raw string, isPreview int) (model.Email, error) {
	var e model.Email
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return model.Email{}, fmt.Errorf("unmarshaling email: %w", err)
	}
	e.Preview = isPreview != 0
	return e, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
