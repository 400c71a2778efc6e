package services

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"catalog/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxPrice is the first value that no longer fits decimal(18,2).
var maxPrice = decimal.New(1, 16)

// ValidationError lists the fields of a product that failed validation, keyed
// by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid product: %s", strings.Join(names, ", "))
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if p, ok := field.Interface().(models.Price); ok {
			f, _ := p.Float64()
			return f
		}
		return nil
	}, models.Price{})
	return validate
}

// ValidateProduct checks the field rules of a product: required name, brand
// and type, and a non-negative price that fits decimal(18,2).
func (s *ProductService) ValidateProduct(product *models.Product) error {
	fields := make(map[string]string)

	if err := s.validate.Struct(product); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("failed to validate product: %w", err)
		}
		for _, e := range validationErrors {
			fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}

	if _, failed := fields["price"]; !failed {
		switch {
		case !product.Price.Equal(product.Price.Round(2)):
			fields["price"] = "Field 'price' must have at most 2 decimal places"
		case product.Price.Abs().GreaterThanOrEqual(maxPrice):
			fields["price"] = "Field 'price' is too large"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
