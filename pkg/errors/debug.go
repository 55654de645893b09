package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostic is a flattened view of an error chain for structured logs.
type Diagnostic struct {
	Message string     `json:"message"`
	Code    Code       `json:"code,omitempty"`
	Chain   []string   `json:"chain,omitempty"`
	PG      *PGDetails `json:"pg,omitempty"`
}

// PGDetails carries the postgres fields worth querying on, so constraint and
// table names land in their own log fields instead of a concatenated message.
type PGDetails struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

// Diagnose flattens err. The chain lists every link with its dynamic type so
// wrapped causes stay visible after formatting.
func Diagnose(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	diag := Diagnostic{
		Message: err.Error(),
		PG:      pgDetails(err),
	}
	if typed := As(err); typed != nil {
		diag.Code = typed.Code()
	}
	for link := err; link != nil; link = errors.Unwrap(link) {
		diag.Chain = append(diag.Chain, fmt.Sprintf("%T: %v", link, link))
	}
	return diag
}

// pgDetails recognizes both postgres drivers in the tree: pgx under gorm and
// lib/pq under goose.
func pgDetails(err error) *PGDetails {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDetails{
			Code:       pgxErr.Code,
			Message:    pgxErr.Message,
			Detail:     pgxErr.Detail,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Constraint: pgxErr.ConstraintName,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetails{
			Code:       string(pqErr.Code),
			Message:    pqErr.Message,
			Detail:     pqErr.Detail,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Constraint: pqErr.Constraint,
		}
	}
	return nil
}
