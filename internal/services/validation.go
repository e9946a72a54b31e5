package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json names in messages
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Let numeric tags (gt, gte, lte) work on decimal amounts
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// validateStruct runs the struct tags and folds the failures into one ErrValidation
func validateStruct(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, "el campo "+e.Field()+" es obligatorio")
		case "min", "gte":
			messages = append(messages, "el campo "+e.Field()+" debe ser mayor o igual a "+e.Param())
		case "max", "lte":
			messages = append(messages, "el campo "+e.Field()+" debe ser menor o igual a "+e.Param())
		case "gt":
			messages = append(messages, "el campo "+e.Field()+" debe ser mayor a "+e.Param())
		case "oneof":
			messages = append(messages, "el campo "+e.Field()+" debe ser uno de: "+e.Param())
		case "email":
			messages = append(messages, "el campo "+e.Field()+" debe ser un correo válido")
		default:
			messages = append(messages, "el campo "+e.Field()+" es inválido")
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
