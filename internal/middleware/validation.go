package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "tradecohort/internal/errors"
	"tradecohort/pkg/contracts/domain"
)

// Validator checks request structs against their validate tags
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator with the domain tags registered:
// yearmonth (2006-01), status (a lifecycle label) and pair (BASE/COUNTER).
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()

	v.RegisterValidation("yearmonth", isYearMonth)
	v.RegisterValidation("status", isStatus)
	v.RegisterValidation("pair", isMarketPair)

	// Use query/json tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			if name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{
		validator: v,
		logger:    logger.With(slog.String("component", "validator")),
	}
}

// ValidateStruct validates a struct and returns an API error listing every failed field
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.ErrInvalidRequest
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// BindQuery copies the request's query parameters into the string fields of dst tagged
// `query:"name"` and validates the result
func (m *Validator) BindQuery(r *http.Request, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("BindQuery needs a pointer to a struct, got %T", dst)
	}
	rv = rv.Elem()
	q := r.URL.Query()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Type().Field(i)
		name := strings.SplitN(field.Tag.Get("query"), ",", 2)[0]
		if name == "" || field.Type.Kind() != reflect.String {
			continue
		}
		rv.Field(i).SetString(strings.TrimSpace(q.Get(name)))
	}

	if err := m.ValidateStruct(dst); err != nil {
		m.logger.DebugContext(r.Context(), "query validation failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "yearmonth":
		return fmt.Sprintf("%s must be a month formatted as YYYY-MM", field)
	case "status":
		return fmt.Sprintf("%s must be a lifecycle status", field)
	case "pair":
		return fmt.Sprintf("%s must be a market pair such as XBT/ZAR", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// Custom validators

func isYearMonth(fl validator.FieldLevel) bool {
	_, err := domain.ParseMonth(fl.Field().String())
	return err == nil
}

func isStatus(fl validator.FieldLevel) bool {
	_, err := domain.ParseStatus(fl.Field().String())
	return err == nil
}

func isMarketPair(fl validator.FieldLevel) bool {
	base, counter, ok := strings.Cut(fl.Field().String(), "/")
	if !ok || base == "" || counter == "" || len(base) > 10 || len(counter) > 10 {
		return false
	}
	for _, ch := range base + counter {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')) {
			return false
		}
	}
	return true
}
