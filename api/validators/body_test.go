package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
)

type restockBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=0"`
	Note      string `json:"note" validate:"omitempty,max=5"`
}

func bodyRequest(payload string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(payload))
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var dest restockBody
	req := bodyRequest(`{"product_id":"0d4c7695-42a4-4a4e-9f3a-0a8f6f8f9b11","quantity":3}`)

	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	if dest.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", dest.Quantity)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest restockBody
	req := bodyRequest(`{"product_id":"0d4c7695-42a4-4a4e-9f3a-0a8f6f8f9b11","quantity":1,"warehouse":"north"}`)

	err := DecodeJSONBody(req, &dest)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("want a validation error for an unknown field, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsTrailingContent(t *testing.T) {
	var dest restockBody
	req := bodyRequest(`{"product_id":"0d4c7695-42a4-4a4e-9f3a-0a8f6f8f9b11","quantity":1}{"quantity":2}`)

	err := DecodeJSONBody(req, &dest)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("want a validation error for trailing content, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsEmptyBody(t *testing.T) {
	var dest restockBody

	err := DecodeJSONBody(bodyRequest(""), &dest)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("want a validation error for an empty body, got %v", err)
	}
	if coded.Message() != "request body is empty" {
		t.Fatalf("message = %q, want the empty-body message", coded.Message())
	}
}

func TestDecodeJSONBodyReportsWireFieldNames(t *testing.T) {
	var dest restockBody
	req := bodyRequest(`{"product_id":"not-a-uuid","quantity":2,"note":"too long"}`)

	err := DecodeJSONBody(req, &dest)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("want a validation error, got %v", err)
	}
	details, ok := coded.Details().(map[string]string)
	if !ok {
		t.Fatalf("details = %T, want a field message map", coded.Details())
	}
	if details["product_id"] != "must be a valid uuid" {
		t.Fatalf("product_id message = %q", details["product_id"])
	}
	if details["note"] != "must be at most 5 characters" {
		t.Fatalf("note message = %q", details["note"])
	}
	if _, leaked := details["ProductID"]; leaked {
		t.Fatal("details keyed by Go field name instead of the json tag")
	}
}
