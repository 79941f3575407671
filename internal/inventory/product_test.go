package inventory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	p, err := NewProduct(3, "  Martillo ", 4, 12.5)
	require.NoError(t, err)
	assert.Equal(t, Product{ID: 3, Name: "Martillo", Quantity: 4, Price: 12.5}, p)
	assert.Equal(t, "ID: 3 | Nombre: Martillo | Cant: 4 | Precio: $12.50", p.String())

	_, err = NewProduct(0, "", -1, 1)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, map[string]string{
		"nombre":   "failed on rule: required",
		"cantidad": "failed on rule: gte",
	}, FieldErrors(err))
}

func TestParseUpdate(t *testing.T) {
	u, err := ParseUpdate("cantidad", "", "precio", " ")
	require.NoError(t, err)
	assert.True(t, u.Empty())

	u, err = ParseUpdate("cantidad", "12", "precio", "")
	require.NoError(t, err)
	require.NotNil(t, u.Quantity)
	assert.Equal(t, 12, *u.Quantity)
	assert.Nil(t, u.Price)

	u, err = ParseUpdate("cantidad", "", "precio", "3,75")
	require.NoError(t, err)
	require.NotNil(t, u.Price)
	assert.Equal(t, 3.75, *u.Price)

	_, err = ParseUpdate("cantidad", "doce", "precio", "x")
	require.ErrorIs(t, err, ErrInvalidInput)
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Len(t, ie.Fields, 2)

	_, err = ParseUpdate("cantidad", "-4", "precio", "")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, errors.As(err, &ie))
}

func TestAddFormReportsEveryBadField(t *testing.T) {
	_, err := addForm{id: "abc", name: "Bolt", quantity: "1.5", price: "free"}.product()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, map[string]string{
		"id":       "must be a non-negative integer",
		"cantidad": "must be an integer",
		"precio":   "must be a number",
	}, FieldErrors(err))

	p, err := addForm{name: "Bolt", quantity: "100", price: "0.50"}.product()
	require.NoError(t, err)
	assert.Equal(t, Product{Name: "Bolt", Quantity: 100, Price: 0.5}, p)
}

func TestInputErrorMessageIsStable(t *testing.T) {
	err := &InputError{Fields: map[string]string{"precio": "must be a number", "cantidad": "must be an integer"}}
	assert.Equal(t, "invalid input; cantidad: must be an integer; precio: must be a number", err.Error())
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"0.50", 0.5, false},
		{" 3,75 ", 3.75, false},
		{"Inf", 0, true},
		{"+Inf", 0, true},
		{"-Inf", 0, true},
		{"NaN", 0, true},
		{"barato", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice("precio", tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				assert.Equal(t, map[string]string{"precio": "must be a number"}, FieldErrors(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddFormRejectsNonFinitePrice(t *testing.T) {
	for _, raw := range []string{"Inf", "-Inf"} {
		_, err := addForm{name: "Bolt", quantity: "1", price: raw}.product()
		require.ErrorIs(t, err, ErrInvalidInput, raw)
		assert.Equal(t, map[string]string{"precio": "must be a number"}, FieldErrors(err), raw)
	}
}

func TestProductRejectsNonFinitePrice(t *testing.T) {
	_, err := NewProduct(1, "Bolt", 1, math.Inf(1))
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, map[string]string{"precio": "failed on rule: finite"}, FieldErrors(err))

	inf := math.Inf(1)
	err = ProductUpdate{Price: &inf}.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, map[string]string{"precio": "failed on rule: finite"}, FieldErrors(err))

	s, err := NewStore(context.Background(), NewMemBackend(), WithCache())
	require.NoError(t, err)
	_, err = s.Add(context.Background(), Product{ID: 1, Name: "Bolt", Quantity: 1, Price: inf})
	require.ErrorIs(t, err, ErrInvalidInput)
	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestQuantityFitsIntegerColumn(t *testing.T) {
	_, err := NewProduct(1, "Bolt", math.MaxInt32, 1)
	require.NoError(t, err)

	_, err = addForm{name: "Bolt", quantity: "3000000000", price: "1"}.product()
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseUpdate("cantidad", "3000000000", "precio", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}
