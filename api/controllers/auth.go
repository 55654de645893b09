package controllers

import (
	"net/http"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	"github.com/bitetrack/bitetrack-backend/api/validators"
	"github.com/bitetrack/bitetrack-backend/internal/auth"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
)

// AuthLogin handles credential submission and returns the first token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-BT-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
