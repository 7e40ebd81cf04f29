package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// AddItemRequest is the input of SessionManager.AddItem. Field order is the
// order in which validation failures are reported.
type AddItemRequest struct {
	ProductName   string `json:"product_name" validate:"notblank"`
	Quantity      int    `json:"quantity" validate:"min=1"`
	SupplierName  string `json:"supplier_name" validate:"notblank"`
	SupplierEmail string `json:"supplier_email" validate:"notblank,contains=@"`
	Notes         string `json:"notes,omitempty"`
}

// EditItemRequest is a partial update of an item; nil fields are left as they are
type EditItemRequest struct {
	ProductName   *string `json:"product_name,omitempty" validate:"omitempty,notblank"`
	Quantity      *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	SupplierName  *string `json:"supplier_name,omitempty" validate:"omitempty,notblank"`
	SupplierEmail *string `json:"supplier_email,omitempty" validate:"omitempty,notblank,contains=@"`
	Notes         *string `json:"notes,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate reports the first failing field as a *ValidationError
func (r *AddItemRequest) Validate() error {
	return validateStruct(r)
}

// Validate checks the fields present in the patch, in the same order as AddItemRequest
func (r *EditItemRequest) Validate() error {
	return validateStruct(r)
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	first := fieldErrs[0]
	return &ValidationError{Field: first.Field(), Rule: ruleFor(first.Tag())}
}

func ruleFor(tag string) string {
	switch tag {
	case "min":
		return RuleMinQuantity
	case "contains":
		return RuleEmail
	default:
		return RuleRequired
	}
}
