// Package audit turns a deal form into the prompt that opens an audit session.
package audit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Rrens/gladius/internal/domain"
)

var validate = validator.New()

// ValidationError lists the invalid request fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Prepare trims the form, fills defaults and validates it
func Prepare(d domain.Deal) (domain.Deal, error) {
	d.Location = strings.TrimSpace(d.Location)
	if d.Typology == "" {
		d.Typology = domain.TypologyFamily
	}
	if d.Strategy == "" {
		d.Strategy = domain.StrategyTraditionalRent
	}
	if d.Strategy == domain.StrategyShortTermRent && d.Occupancy == nil {
		occupancy := domain.DefaultOccupancy
		d.Occupancy = &occupancy
	}

	if err := Validate(d); err != nil {
		return d, err
	}
	return d, nil
}

// Validate checks the form against its field rules
func Validate(d domain.Deal) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate deal: %w", err)
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[jsonName(fe.Field())] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

var fieldNames = map[string]string{
	"AdminFee":    "admin_fee",
	"NightlyRate": "nightly_rate",
	"MonthlyRent": "monthly_rent",
}

func jsonName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
