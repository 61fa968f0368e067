package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator registers the "topk" alias so the bound lives only in MaxTopK.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("topk", fmt.Sprintf("min=1,max=%d", MaxTopK))
	return v
}

// ValidationError carries one message per invalid field, keyed by JSON-ish field name.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error returns the summary message.
func (e *ValidationError) Error() string { return e.Message }

// Validate checks s against its validate tags.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.ActualTag() {
		case "required":
			fields[name] = fmt.Sprintf("%s is required", name)
		case "min":
			fields[name] = fmt.Sprintf("%s must be at least %s", name, fe.Param())
		case "max":
			fields[name] = fmt.Sprintf("%s must be at most %s", name, fe.Param())
		default:
			fields[name] = fmt.Sprintf("%s failed on '%s'", name, fe.Tag())
		}
	}
	return &ValidationError{Message: "validation failed", Fields: fields}
}
