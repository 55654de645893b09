package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/bitetrack-backend/api/middleware"
	"github.com/bitetrack/bitetrack-backend/internal/sales"
	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
)

type stubSaleService struct {
	recordInput sales.RecordSaleInput
	recordResp  *sales.SaleDTO
	recordErr   error
	recordCalls int

	settleInput sales.SettleSaleInput
	settleResp  *sales.SaleDTO
	settleErr   error

	listInput sales.ListSalesInput
	listResp  *sales.SaleListResult
	listErr   error
}

func (s *stubSaleService) Record(ctx context.Context, input sales.RecordSaleInput) (*sales.SaleDTO, error) {
	s.recordCalls++
	s.recordInput = input
	return s.recordResp, s.recordErr
}

func (s *stubSaleService) Settle(ctx context.Context, input sales.SettleSaleInput) (*sales.SaleDTO, error) {
	s.settleInput = input
	return s.settleResp, s.settleErr
}

func (s *stubSaleService) Get(ctx context.Context, saleID uuid.UUID) (*sales.SaleDTO, error) {
	panic("unimplemented")
}

func (s *stubSaleService) List(ctx context.Context, input sales.ListSalesInput) (*sales.SaleListResult, error) {
	s.listInput = input
	return s.listResp, s.listErr
}

func TestSaleRecord(t *testing.T) {
	logg := testLogger()
	sellerID := uuid.New()
	customerID := uuid.New()
	productID := uuid.New()

	makeRequest := func(ctx context.Context, svc sales.Service, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		SaleRecord(svc, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing seller context", func(t *testing.T) {
		body := `{"customer_id":"` + customerID.String() + `","lines":[{"product_id":"` + productID.String() + `","quantity":2}]}`
		rec := makeRequest(context.Background(), &stubSaleService{}, body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 when seller missing, got %d", rec.Code)
		}
	})

	t.Run("empty lines", func(t *testing.T) {
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		body := `{"customer_id":"` + customerID.String() + `","lines":[]}`
		stub := &stubSaleService{}
		rec := makeRequest(ctx, stub, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty lines, got %d", rec.Code)
		}
		if stub.recordCalls != 0 {
			t.Fatalf("expected service untouched got %d calls", stub.recordCalls)
		}
	})

	t.Run("zero quantity line", func(t *testing.T) {
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		body := `{"customer_id":"` + customerID.String() + `","lines":[{"product_id":"` + productID.String() + `","quantity":0}]}`
		rec := makeRequest(ctx, &stubSaleService{}, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
		}
	})

	t.Run("insufficient inventory", func(t *testing.T) {
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		stub := &stubSaleService{recordErr: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient stock for product")}
		body := `{"customer_id":"` + customerID.String() + `","lines":[{"product_id":"` + productID.String() + `","quantity":500}]}`
		rec := makeRequest(ctx, stub, body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 for insufficient stock, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubSaleService{recordResp: &sales.SaleDTO{
			ID:          uuid.New(),
			CustomerID:  customerID,
			SellerID:    sellerID,
			TotalAmount: decimal.RequireFromString("9.00"),
			AmountPaid:  decimal.RequireFromString("9.00"),
			Settled:     true,
		}}
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		body := `{"customer_id":"` + customerID.String() + `","lines":[{"product_id":"` + productID.String() + `","quantity":2}],"amount_paid":"9.00"}`
		rec := makeRequest(ctx, stub, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 on success, got %d", rec.Code)
		}
		if stub.recordInput.SellerID != sellerID {
			t.Fatalf("expected seller forwarded got %s", stub.recordInput.SellerID)
		}
		if stub.recordInput.CustomerID != customerID {
			t.Fatalf("expected customer forwarded got %s", stub.recordInput.CustomerID)
		}
		if len(stub.recordInput.Lines) != 1 || stub.recordInput.Lines[0].ProductID != productID || stub.recordInput.Lines[0].Quantity != 2 {
			t.Fatalf("expected one line qty 2 got %+v", stub.recordInput.Lines)
		}
		if !stub.recordInput.AmountPaid.Equal(decimal.RequireFromString("9.00")) {
			t.Fatalf("expected amount paid 9.00 got %s", stub.recordInput.AmountPaid)
		}

		var envelope struct {
			Data sales.SaleDTO `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !envelope.Data.Settled {
			t.Fatalf("expected settled sale in payload got %+v", envelope.Data)
		}
	})
}

func TestSaleSettle(t *testing.T) {
	logg := testLogger()
	sellerID := uuid.New()
	saleID := uuid.New()

	makeRequest := func(svc sales.Service, rawID, body string) *httptest.ResponseRecorder {
		ctx := middleware.WithSellerID(context.Background(), sellerID.String())
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("saleId", rawID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/sales/"+rawID+"/settlement", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		SaleSettle(svc, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("invalid sale id", func(t *testing.T) {
		rec := makeRequest(&stubSaleService{}, "not-a-uuid", `{"amount_paid":"5.00"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		rec := makeRequest(&stubSaleService{}, saleID.String(), `{"amount_paid":"-1.00"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for negative amount, got %d", rec.Code)
		}
	})

	t.Run("sale not found", func(t *testing.T) {
		stub := &stubSaleService{settleErr: pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")}
		rec := makeRequest(stub, saleID.String(), `{"amount_paid":"5.00"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubSaleService{settleResp: &sales.SaleDTO{
			ID:         saleID,
			AmountPaid: decimal.RequireFromString("5.00"),
			Settled:    true,
		}}
		rec := makeRequest(stub, saleID.String(), `{"amount_paid":"5.00"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if stub.settleInput.SaleID != saleID {
			t.Fatalf("expected sale %s got %s", saleID, stub.settleInput.SaleID)
		}
		if stub.settleInput.SellerID != sellerID {
			t.Fatalf("expected seller forwarded got %s", stub.settleInput.SellerID)
		}
		if !stub.settleInput.AmountPaid.Equal(decimal.RequireFromString("5.00")) {
			t.Fatalf("expected amount 5.00 got %s", stub.settleInput.AmountPaid)
		}
	})
}

func TestSaleList(t *testing.T) {
	logg := testLogger()
	customerID := uuid.New()

	makeRequest := func(svc sales.Service, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		SaleList(svc, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("invalid settled filter", func(t *testing.T) {
		rec := makeRequest(&stubSaleService{}, "/api/v1/sales?settled=sometimes")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad boolean, got %d", rec.Code)
		}
	})

	t.Run("invalid customer filter", func(t *testing.T) {
		rec := makeRequest(&stubSaleService{}, "/api/v1/sales?customer_id=not-a-uuid")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad customer id, got %d", rec.Code)
		}
	})

	t.Run("forwards filters", func(t *testing.T) {
		stub := &stubSaleService{listResp: &sales.SaleListResult{Sales: []sales.SaleDTO{}}}
		rec := makeRequest(stub, "/api/v1/sales?settled=false&customer_id="+customerID.String()+"&limit=5")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if stub.listInput.Settled == nil || *stub.listInput.Settled {
			t.Fatalf("expected settled false got %v", stub.listInput.Settled)
		}
		if stub.listInput.CustomerID == nil || *stub.listInput.CustomerID != customerID {
			t.Fatalf("expected customer filter got %v", stub.listInput.CustomerID)
		}
		if stub.listInput.Pagination.Limit != 5 {
			t.Fatalf("expected limit 5 got %d", stub.listInput.Pagination.Limit)
		}
	})
}
