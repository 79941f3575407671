package inventory

import (
	"math"
	"strconv"
	"strings"
)

// Parsers shared by the HTML forms and the console menu. Each returns an
// *InputError naming the offending field.

func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, fieldError(field, "must be a non-negative integer")
	}
	return id, nil
}

func ParseQuantity(field, raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fieldError(field, "must be an integer")
	}
	return q, nil
}

func ParsePrice(field, raw string) (float64, error) {
	raw = strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(p, 0) || math.IsNaN(p) {
		return 0, fieldError(field, "must be a number")
	}
	return p, nil
}

// ParseUpdate reads optional quantity and price; a blank value leaves the
// field unset.
func ParseUpdate(quantityField, rawQuantity, priceField, rawPrice string) (ProductUpdate, error) {
	var u ProductUpdate
	fields := map[string]string{}

	if strings.TrimSpace(rawQuantity) != "" {
		q, err := ParseQuantity(quantityField, rawQuantity)
		if err != nil {
			fields[quantityField] = FieldErrors(err)[quantityField]
		} else {
			u.Quantity = &q
		}
	}
	if strings.TrimSpace(rawPrice) != "" {
		p, err := ParsePrice(priceField, rawPrice)
		if err != nil {
			fields[priceField] = FieldErrors(err)[priceField]
		} else {
			u.Price = &p
		}
	}

	if len(fields) > 0 {
		return ProductUpdate{}, &InputError{Fields: fields}
	}
	return u, u.Validate()
}

type addForm struct {
	id       string
	name     string
	quantity string
	price    string
}

// product parses every field before reporting, so the caller sees all bad
// fields at once.
func (f addForm) product() (Product, error) {
	fields := map[string]string{}

	var id int64
	if strings.TrimSpace(f.id) != "" {
		v, err := ParseID("id", f.id)
		if err != nil {
			fields["id"] = FieldErrors(err)["id"]
		}
		id = v
	}
	quantity, err := ParseQuantity("cantidad", f.quantity)
	if err != nil {
		fields["cantidad"] = FieldErrors(err)["cantidad"]
	}
	price, err := ParsePrice("precio", f.price)
	if err != nil {
		fields["precio"] = FieldErrors(err)["precio"]
	}

	if len(fields) > 0 {
		return Product{}, &InputError{Fields: fields}
	}
	return NewProduct(id, f.name, quantity, price)
}

func fieldError(field, reason string) error {
	return &InputError{Fields: map[string]string{field: reason}}
}
