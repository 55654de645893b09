package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	"github.com/bitetrack/bitetrack-backend/api/validators"
	"github.com/bitetrack/bitetrack-backend/internal/sales"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// SaleRecord atomically decrements stock across every line and persists the
// sale. All lines commit or none do.
func SaleRecord(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		sellerID, err := actorSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// SaleSettle replaces the amount paid on a sale and recomputes settled.
func SaleSettle(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		sellerID, err := actorSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := parsePathUUID(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settleSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.AmountPaid, "amount_paid")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Settle(r.Context(), sales.SettleSaleInput{
			SaleID:     saleID,
			SellerID:   sellerID,
			AmountPaid: amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// SaleDetail returns one sale with its line items and derived fields.
func SaleDetail(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		saleID, err := parsePathUUID(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Get(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// SaleList returns a cursor page of sales.
func SaleList(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sale service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := sales.ListSalesInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}

		settled, err := validators.ParseQueryBool(r, "settled")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Settled = settled

		if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
				return
			}
			input.CustomerID = &customerID
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type saleLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type recordSaleRequest struct {
	CustomerID string            `json:"customer_id" validate:"required,uuid"`
	Lines      []saleLineRequest `json:"lines" validate:"required,min=1,dive"`
	AmountPaid string            `json:"amount_paid,omitempty"`
}

type settleSaleRequest struct {
	AmountPaid string `json:"amount_paid" validate:"required"`
}

func (r recordSaleRequest) toInput(sellerID uuid.UUID) (sales.RecordSaleInput, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(r.CustomerID))
	if err != nil {
		return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
	}

	lines := make([]sales.SaleLineInput, 0, len(r.Lines))
	for _, line := range r.Lines {
		productID, err := uuid.Parse(strings.TrimSpace(line.ProductID))
		if err != nil {
			return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		lines = append(lines, sales.SaleLineInput{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}

	input := sales.RecordSaleInput{
		CustomerID: customerID,
		SellerID:   sellerID,
		Lines:      lines,
	}

	if raw := strings.TrimSpace(r.AmountPaid); raw != "" {
		amount, err := parseAmount(raw, "amount_paid")
		if err != nil {
			return sales.RecordSaleInput{}, err
		}
		input.AmountPaid = amount
	}

	return input, nil
}
