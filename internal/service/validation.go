package service

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists the json names of the fields that failed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// newValidator reports fields by their json name and accepts a zone only
// when it is one of zones.
func newValidator(zones []string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("zone", func(fl validator.FieldLevel) bool {
		return slices.Contains(zones, fl.Field().String())
	})
	return v
}

// check validates each value and folds the failures into one *ValidationError.
func check(v *validator.Validate, values ...any) error {
	var fields []string
	for _, val := range values {
		err := v.Struct(val)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
