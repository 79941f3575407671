// Package inventory keeps the product table: a durable backend, an optional
// write-through index in front of it, and the HTTP pages that drive both.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrDuplicateKey       = errors.New("product id already exists")
	ErrNotFound           = errors.New("product not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	}); err != nil {
		panic(err)
	}
	return v
}

// Product is one stock-keeping unit. ID 0 means "not assigned yet"; the
// backend picks one on insert. Quantity is capped at the range of the
// Postgres INTEGER column.
type Product struct {
	ID       int64   `json:"id" validate:"gte=0"`
	Name     string  `json:"nombre" validate:"required"`
	Quantity int     `json:"cantidad" validate:"gte=0,lte=2147483647"`
	Price    float64 `json:"precio" validate:"gte=0,finite"`
}

func NewProduct(id int64, name string, quantity int, price float64) (Product, error) {
	p := Product{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Quantity: quantity,
		Price:    price,
	}
	if err := validate.Struct(p); err != nil {
		return Product{}, invalid(err)
	}
	return p, nil
}

func (p Product) String() string {
	return fmt.Sprintf("ID: %d | Nombre: %s | Cant: %d | Precio: $%.2f", p.ID, p.Name, p.Quantity, p.Price)
}

// ProductUpdate carries the mutable fields. A nil field is left unchanged.
type ProductUpdate struct {
	Quantity *int     `json:"cantidad,omitempty" validate:"omitnil,gte=0,lte=2147483647"`
	Price    *float64 `json:"precio,omitempty" validate:"omitnil,gte=0,finite"`
}

func (u ProductUpdate) Validate() error {
	if err := validate.Struct(u); err != nil {
		return invalid(err)
	}
	return nil
}

func (u ProductUpdate) Empty() bool {
	return u.Quantity == nil && u.Price == nil
}

func (u ProductUpdate) apply(p Product) Product {
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	return p
}

// invalid wraps a validator failure so callers can match ErrInvalidInput
// and still reach the field errors with errors.As.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// InputError reports fields that could not be parsed. It matches
// ErrInvalidInput.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(ErrInvalidInput.Error())
	for _, k := range keys {
		fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
	}
	return b.String()
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// FieldErrors flattens parse and validator failures into field -> reason,
// or nil when err carries none.
func FieldErrors(err error) map[string]string {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = "failed on rule: " + fe.Tag()
	}
	return out
}
