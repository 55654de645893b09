package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/api/responses"
	"github.com/bitetrack/bitetrack-backend/api/validators"
	"github.com/bitetrack/bitetrack-backend/internal/catalog"
	"github.com/bitetrack/bitetrack-backend/pkg/enums"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/bitetrack/bitetrack-backend/pkg/logger"
	"github.com/bitetrack/bitetrack-backend/pkg/pagination"
)

// ProductCreate catalogs a new product with its opening stock count.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		sellerID, err := actorSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), sellerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductUpdate applies partial catalog edits. Quantity here is an absolute
// restock set; ledgered movements go through sales and drops.
func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		sellerID, err := actorSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parsePathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), sellerID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductDetail returns one catalog entry.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductList returns a cursor page of catalog entries.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.ListProductsInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			input.Category = &category
		}

		isActive, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.IsActive = isActive

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type createProductRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=120"`
	Category        string   `json:"category" validate:"required"`
	Description     *string  `json:"description,omitempty"`
	PriceAmount     string   `json:"price_amount" validate:"required"`
	InitialQuantity int      `json:"initial_quantity" validate:"min=0"`
	DietaryFlags    []string `json:"dietary_flags,omitempty"`
}

type updateProductRequest struct {
	Name           *string   `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category       *string   `json:"category,omitempty"`
	Description    *string   `json:"description,omitempty"`
	PriceAmount    *string   `json:"price_amount,omitempty"`
	QuantityOnHand *int      `json:"quantity_on_hand,omitempty"`
	DietaryFlags   *[]string `json:"dietary_flags,omitempty"`
	IsActive       *bool     `json:"is_active,omitempty"`
}

func (r createProductRequest) toCreateInput() (catalog.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}

	price, err := parseAmount(r.PriceAmount, "price_amount")
	if err != nil {
		return catalog.CreateProductInput{}, err
	}

	return catalog.CreateProductInput{
		Name:            strings.TrimSpace(r.Name),
		Category:        category,
		Description:     r.Description,
		PriceAmount:     price,
		InitialQuantity: r.InitialQuantity,
		DietaryFlags:    r.DietaryFlags,
	}, nil
}

func (r updateProductRequest) toUpdateInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Description:  r.Description,
		DietaryFlags: r.DietaryFlags,
		IsActive:     r.IsActive,
	}

	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		input.Name = &trimmed
	}

	if r.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*r.Category))
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}

	if r.PriceAmount != nil {
		price, err := parseAmount(*r.PriceAmount, "price_amount")
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.PriceAmount = &price
	}

	if r.QuantityOnHand != nil {
		if *r.QuantityOnHand < 0 {
			return catalog.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity_on_hand cannot be negative")
		}
		input.QuantityOnHand = r.QuantityOnHand
	}

	return input, nil
}

// parseAmount converts a decimal string from the wire, rejecting negatives.
func parseAmount(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	if value.IsNegative() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, field+" cannot be negative")
	}
	return value, nil
}

// parsePathUUID reads a chi URL parameter and parses it as a UUID.
func parsePathUUID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
