package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestFromValidationError(t *testing.T) {
	type body struct {
		Title string `validate:"required"`
		Name  string `validate:"max=2"`
	}

	err := validator.New().Struct(&body{Name: "long"})
	resp := FromValidationError(err)

	structured, ok := resp.(*StructuredError)
	if !ok {
		t.Fatalf("FromValidationError() = %T, want *StructuredError", resp)
	}

	if structured.Code() != http.StatusBadRequest {
		t.Errorf("Code() = %d, want 400", structured.Code())
	}

	if len(structured.Errors["Title"]) != 1 || len(structured.Errors["Name"]) != 1 {
		t.Errorf("Errors = %v", structured.Errors)
	}
}

func TestFromValidationErrorFallback(t *testing.T) {
	if resp := FromValidationError(errors.New("boom")); resp != MalformedBodyError {
		t.Errorf("FromValidationError() = %v, want %v", resp, MalformedBodyError)
	}
}
