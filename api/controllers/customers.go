package controllers

import (
	"net/http"
	"strings"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	"github.com/bitetrack/bitetrack-backend/api/validators"
	"github.com/bitetrack/bitetrack-backend/internal/customers"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// CustomerCreate registers a customer in the directory.
func CustomerCreate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		var payload createCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// CustomerDetail returns one directory entry.
func CustomerDetail(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		customerID, err := parsePathUUID(r, "customerId", "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, customer)
	}
}

// CustomerList returns a cursor page of directory entries.
func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), customers.ListCustomersInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Search: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type createCustomerRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=1,max=64"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=64"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

func (r createCustomerRequest) toInput() customers.CreateCustomerInput {
	return customers.CreateCustomerInput{
		FirstName: validators.SanitizeString(r.FirstName, 64),
		LastName:  validators.SanitizeString(r.LastName, 64),
		Email:     strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:     r.Phone,
	}
}
