package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type rowCloser interface {
	Close() error
}

func closeRows(rows rowCloser) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// inClause returns "?, ?, ?" and the matching args for ids.
func inClause(ids []uuid.UUID) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

// dbTimeLayout matches the driver's "sqlite" write format.
const dbTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

// parseDBTime parses DATETIME text returned by aggregate expressions, which
// the driver does not convert to time.Time.
func parseDBTime(s string) (time.Time, error) {
	t, err := time.Parse(dbTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// checkAffected turns a zero-row update into domain.ErrNotFound.
func checkAffected(n int64, what string) error {
	if n == 0 {
		return fmt.Errorf("%s %w", what, domain.ErrNotFound)
	}
	return nil
}

// utcPtr converts an optional time to UTC so DATETIME text compares correctly.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
