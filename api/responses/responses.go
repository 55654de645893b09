// Package responses writes the envelope every handler speaks: {"data": ...}
// on success and {"error": {...}} on failure, with the HTTP status taken
// from the error code's metadata.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as the error envelope. Client errors keep their
// specific message; anything in the 5xx range is masked with the code's
// generic public message so internals never reach a client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	coded := pkgerrors.As(err)
	if coded == nil {
		if err == nil {
			err = errors.New("unknown error")
		}
		coded = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(coded.Code())

	apiErr := types.APIError{
		Code:    string(coded.Code()),
		Message: meta.ClientMessage,
	}
	if meta.Status < http.StatusInternalServerError {
		if m := coded.Message(); m != "" {
			apiErr.Message = m
		}
	}
	if meta.ShowDetails {
		apiErr.Details = coded.Details()
	}

	logRequestError(ctx, logg, coded, err)
	writeJSON(w, meta.Status, types.ErrorEnvelope{Error: apiErr})
}

func logRequestError(ctx context.Context, logg *logger.Logger, coded *pkgerrors.Error, err error) {
	if logg == nil {
		return
	}

	diag := pkgerrors.Diagnose(err)
	fields := map[string]any{
		"error":       diag.Message,
		"error_code":  diag.Code,
		"error_chain": diag.Chain,
	}
	if diag.PG != nil {
		fields["pg_code"] = diag.PG.Code
		fields["pg_detail"] = diag.PG.Detail
		fields["pg_message"] = diag.PG.Message
		fields["pg_table"] = diag.PG.Table
		fields["pg_column"] = diag.PG.Column
		fields["pg_constraint"] = diag.PG.Constraint
	}
	// Services tag multi-statement writes with a "step" detail; lifting it
	// into its own field keeps failed transactions traceable to the exact
	// statement.
	if dm, ok := coded.Details().(map[string]any); ok {
		if step, ok := dm["step"]; ok {
			fields["step"] = step
		}
	}

	logg.Error(logg.WithFields(ctx, fields), "request failed", err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// The status line is already on the wire, so the failure can only be
		// noted locally.
		log.Printf(`{"level":"error","msg":"response encode failed","err":"%v"}`, err)
	}
}
