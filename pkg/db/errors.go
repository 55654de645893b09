package db

import "strings"

// IsUniqueViolation reports whether err stems from a unique index violation.
// A non-empty constraintName narrows the match to that constraint. Both the
// Postgres and sqlite wordings are recognized.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
