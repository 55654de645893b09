package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	"github.com/bitetrack/bitetrack-backend/api/validators"
	"github.com/bitetrack/bitetrack-backend/internal/drops"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

const dropDateLayout = "2006-01-02"

// DropRecord writes off stock and opens the undo window.
func DropRecord(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drop service unavailable"))
			return
		}

		sellerID, err := actorSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordDropRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		drop, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, drop)
	}
}

// DropReverse undoes a drop inside its undo window, restoring stock.
func DropReverse(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drop service unavailable"))
			return
		}

		sellerID, err := actorSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dropID, err := parsePathUUID(r, "dropId", "drop id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reverseDropRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		drop, err := svc.Reverse(r.Context(), drops.ReverseDropInput{
			DropID:   dropID,
			SellerID: sellerID,
			Reason:   payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, drop)
	}
}

// DropDetail returns one drop with its remaining undo time.
func DropDetail(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drop service unavailable"))
			return
		}

		dropID, err := parsePathUUID(r, "dropId", "drop id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		drop, err := svc.Get(r.Context(), dropID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, drop)
	}
}

// DropList returns a cursor page of drops.
func DropList(svc drops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drop service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := drops.ListDropsInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
			reason, err := enums.ParseDropReason(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason"))
				return
			}
			input.Reason = &reason
		}

		reversed, err := validators.ParseQueryBool(r, "reversed")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Reversed = reversed

		if raw := strings.TrimSpace(r.URL.Query().Get("product_id")); raw != "" {
			productID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			input.ProductID = &productID
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type recordDropRequest struct {
	ProductID      string  `json:"product_id" validate:"required,uuid"`
	Quantity       int     `json:"quantity" validate:"required,min=1"`
	Reason         string  `json:"reason" validate:"required"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	ProductionDate *string `json:"production_date,omitempty"`
	ExpirationDate *string `json:"expiration_date,omitempty"`
	BatchCode      *string `json:"batch_code,omitempty" validate:"omitempty,max=64"`
}

type reverseDropRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func (r recordDropRequest) toInput(sellerID uuid.UUID) (drops.RecordDropInput, error) {
	productID, err := uuid.Parse(strings.TrimSpace(r.ProductID))
	if err != nil {
		return drops.RecordDropInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}

	reason, err := enums.ParseDropReason(strings.TrimSpace(r.Reason))
	if err != nil {
		return drops.RecordDropInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason")
	}

	input := drops.RecordDropInput{
		ProductID: productID,
		SellerID:  sellerID,
		Quantity:  r.Quantity,
		Reason:    reason,
		BatchCode: r.BatchCode,
	}

	if r.Notes != nil {
		trimmed := validators.SanitizeString(*r.Notes, 500)
		input.Notes = &trimmed
	}

	if input.ProductionDate, err = parseDropDate(r.ProductionDate, "production_date"); err != nil {
		return drops.RecordDropInput{}, err
	}
	if input.ExpirationDate, err = parseDropDate(r.ExpirationDate, "expiration_date"); err != nil {
		return drops.RecordDropInput{}, err
	}

	return input, nil
}

func parseDropDate(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dropDateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &parsed, nil
}
