package middleware

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "dashcli/internal/errors"
)

// DefaultMaxBodySize bounds request bodies; datasets travel inline.
const DefaultMaxBodySize = 32 << 20

// Validator decodes JSON request bodies and validates them using struct tags
type Validator struct {
	validate    *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator creates a request validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:    v,
		logger:      logger.With(slog.String("component", "validation")),
		maxBodySize: DefaultMaxBodySize,
	}
}

// Decode reads the JSON body of r into dst and validates it. Errors are
// *apperrors.APIError values ready for the error handler.
func (v *Validator) Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.ContentLength > v.maxBodySize {
		return apperrors.PayloadTooLarge(v.maxBodySize)
	}

	r.Body = http.MaxBytesReader(w, r.Body, v.maxBodySize)
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.PayloadTooLarge(v.maxBodySize)
		case errors.Is(err, io.EOF):
			return apperrors.New(http.StatusBadRequest, "INVALID_REQUEST", "Request body is required")
		default:
			v.logger.DebugContext(r.Context(), "request body rejected", slog.String("error", err.Error()))
			return apperrors.InvalidRequestWithError(err)
		}
	}
	return v.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apperrors.ValidationError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(validationErrors)
}

// fieldPath drops the top-level struct name from the namespace so nested
// fields read like "columns[0].key".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
