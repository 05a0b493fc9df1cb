package dbutil

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// RunGuarded executes fn in a nested transaction. When tx is already inside
// a transaction gorm issues a SAVEPOINT around fn, so a failed INSERT (a
// lost unique-index race) rolls back to the savepoint and the caller's
// transaction stays usable for the follow-up winner read. Without the
// savepoint Postgres aborts the whole transaction and rejects every later
// statement with SQLSTATE 25P02.
func RunGuarded(tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	return tx.Transaction(fn)
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// Postgres surfaces these as SQLSTATE 23505; gorm additionally translates
// them to ErrDuplicatedKey when error translation is enabled. Callers treat
// a violation as "lost the create race" and re-read instead of failing.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
