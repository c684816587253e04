package database

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// DuplicateKeyError reports a unique index violation on Field.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return e.Message()
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// Message renders the user-facing text, e.g. "Email already exists".
func (e *DuplicateKeyError) Message() string {
	field := e.Field
	if field == "" {
		field = "Field"
	}
	return strings.ToUpper(field[:1]) + field[1:] + " already exists"
}

var (
	// duplicate key value violates unique constraint "idx_users_email"
	pgConstraintRe = regexp.MustCompile(`unique constraint "(?:idx|uni)_[a-z0-9]+_(\w+)"`)
	// UNIQUE constraint failed: users.email
	sqliteUniqueRe = regexp.MustCompile(`UNIQUE constraint failed: \w+\.(\w+)`)
)

// AsDuplicateKey converts a store error into a *DuplicateKeyError when it is a
// unique violation, returning nil otherwise. The field name is recovered from
// the constraint name or, failing that, from the driver's error text.
func AsDuplicateKey(err error) *DuplicateKeyError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &DuplicateKeyError{Field: fieldFromConstraint(pgErr.ConstraintName), Err: err}
	}

	msg := err.Error()
	if m := pgConstraintRe.FindStringSubmatch(msg); m != nil {
		return &DuplicateKeyError{Field: snakeToCamel(m[1]), Err: err}
	}
	if m := sqliteUniqueRe.FindStringSubmatch(msg); m != nil {
		return &DuplicateKeyError{Field: snakeToCamel(m[1]), Err: err}
	}
	if strings.Contains(msg, "duplicate key") {
		return &DuplicateKeyError{Err: err}
	}
	return nil
}

func fieldFromConstraint(name string) string {
	if m := pgConstraintRe.FindStringSubmatch(`unique constraint "` + name + `"`); m != nil {
		return snakeToCamel(m[1])
	}
	return ""
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
