package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	pkgerrors "github.com/bitetrack/bitetrack-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// bodyValidator is shared by every request; validator instances cache struct
// metadata, so there is exactly one.
var bodyValidator = newBodyValidator()

func newBodyValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// jsonFieldName reports violations under the wire name of a field rather
// than the Go identifier.
func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// DecodeJSONBody decodes a JSON request body into dest and applies the
// struct's validation tags. Unknown fields and trailing content are rejected.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer drainBody(r.Body)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body is empty")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed request body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must hold a single JSON document")
	}
	return checkStruct(dest)
}

func checkStruct(dest any) error {
	err := bodyValidator.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = ruleMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "request validation failed").WithDetails(details)
}

// ruleMessage renders one violated rule. Length bounds read in characters or
// items depending on the field kind.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid uuid"
	case "min":
		return "must be at least " + fe.Param() + lengthUnit(fe)
	case "max":
		return "must be at most " + fe.Param() + lengthUnit(fe)
	}
	if p := fe.Param(); p != "" {
		return "must satisfy " + fe.Tag() + "=" + p
	}
	return "must satisfy " + fe.Tag()
}

func lengthUnit(fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	}
	return ""
}

func drainBody(body io.Reader) {
	io.Copy(io.Discard, body)
}
