package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse abstracts all API error responses to the user.
//
// This interface does not implement `error`, since its only purpose
// is to be used for API responses and not for logging circumstances.
//
// In general, the whole ErrorResponse can be sent for serialization.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type StructuredError struct {
	Errors map[string][]string `json:"errors"`
	Status int                 `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

func (s *StructuredError) Add(field, problem string) {
	s.Errors[field] = append(s.Errors[field], problem)
}

var (
	MalformedBodyError   = NewSimple(http.StatusBadRequest, "Malformed body")
	InternalServerError  = NewSimple(http.StatusInternalServerError, "Internal server error")
	TooManyRequestsError = NewSimple(http.StatusTooManyRequests, "Too many requests")

	NotFoundError     = NewSimple(http.StatusNotFound, "Note not found")
	DuplicateTagError = NewSimple(http.StatusBadRequest, "Tag already attached to note")
	TagNotOnNoteError = NewSimple(http.StatusBadRequest, "Tag is not attached to note")

	/*
	 * Used for authentications
	 */
	UnauthorizedError        = NewSimple(http.StatusUnauthorized, "Could not validate credentials")
	IdentityTakenError       = NewSimple(http.StatusBadRequest, "Telegram ID already registered")
	CredentialsMismatchError = NewSimple(http.StatusUnauthorized, "Incorrect Telegram ID or password")
)

// FromValidationError turns validator failures into a per-field problem
// list. Errors that did not come from the validator are reported as a
// malformed body.
func FromValidationError(err error) ErrorResponse {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return MalformedBodyError
	}

	structured := NewStructured(http.StatusBadRequest)
	for _, fe := range ve {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			structured.Add(field, "This field is required")
		case "min":
			structured.Add(field, "Value is too short, min: "+fe.Param())
		case "max":
			structured.Add(field, "Value is too long, max: "+fe.Param())
		case "maxbytes":
			structured.Add(field, "Value is too long, max bytes: "+fe.Param())
		case "nospaces":
			structured.Add(field, "Value must not contain whitespace")

		default:
			structured.Add(field, "Invalid value provided")
		}
	}
	return structured
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewStructured(code int) *StructuredError {
	return &StructuredError{
		Errors: make(map[string][]string),
		Status: code,
	}
}

func NewInvalidParamTypeError(name, dataType string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' has invalid type, expected: %s", name, dataType)
}

func NewMissingParamError(name string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' is required", name)
}
