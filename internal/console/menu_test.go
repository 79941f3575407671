package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Inventory/internal/inventory"
)

func newStore(t *testing.T) *inventory.Store {
	t.Helper()

	store, err := inventory.NewStore(context.Background(), inventory.NewMemBackend(), inventory.WithCache())
	require.NoError(t, err)
	return store
}

func run(t *testing.T, store *inventory.Store, lines ...string) string {
	t.Helper()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, New(store, in, &out, nil).Run(context.Background()))
	return out.String()
}

func TestMenu_Session(t *testing.T) {
	store := newStore(t)

	out := run(t, store,
		"1", "1", "Bolt", "100", "0.50",
		"1", "2", "Nut", "200", "0.25",
		"1", "2", "Nut again", "1", "1",
		"5",
		"4", "bol",
		"3", "2", "150", "",
		"2", "1",
		"2", "1",
		"6",
	)

	assert.Equal(t, 2, strings.Count(out, "Producto agregado exitosamente."))
	assert.Contains(t, out, "Error: Ya existe un producto con ese ID.")
	assert.Contains(t, out, "--- Listado Completo del Inventario ---")
	assert.Contains(t, out, "ID: 1 | Nombre: Bolt | Cant: 100 | Precio: $0.50")
	assert.Contains(t, out, "--- Resultados de búsqueda ---")
	assert.Contains(t, out, "Producto actualizado correctamente.")
	assert.Contains(t, out, "Producto eliminado.")
	assert.Contains(t, out, "Error: Producto no encontrado.")
	assert.True(t, strings.HasSuffix(out, "Saliendo del sistema...\n"))

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []inventory.Product{{ID: 2, Name: "Nut", Quantity: 150, Price: 0.25}}, all)
}

func TestMenu_BadNumbersDoNotTouchTheStore(t *testing.T) {
	store := newStore(t)

	out := run(t, store,
		"1", "uno", "Bolt", "100", "0.50",
		"1", "1", "Bolt", "cien", "0.50",
		"1", "1", "Bolt", "100", "barato",
		"2", "abc",
		"3", "x",
		"6",
	)

	assert.Equal(t, 3, strings.Count(out, "Error: Asegúrese de ingresar números válidos para ID, cantidad y precio."))
	assert.Contains(t, out, "Error: El ID debe ser un número.")
	assert.Contains(t, out, "Error: Ingrese valores numéricos válidos.")
	assert.NotContains(t, out, "Producto agregado exitosamente.")

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMenu_UpdateValidation(t *testing.T) {
	store := newStore(t)
	_, err := store.Add(context.Background(), inventory.Product{ID: 1, Name: "Bolt", Quantity: 100, Price: 0.5})
	require.NoError(t, err)

	out := run(t, store,
		"3", "1", "muchos", "",
		"3", "1", "-5", "",
		"3", "1", "", "",
		"6",
	)

	assert.Contains(t, out, "Error: Ingrese valores numéricos válidos.")
	assert.Contains(t, out, "Error: Datos inválidos.")
	assert.Equal(t, 1, strings.Count(out, "Producto actualizado correctamente."))

	got, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Quantity)
	assert.Equal(t, 0.5, got.Price)
}

func TestMenu_EmptyInventoryAndUnknownOption(t *testing.T) {
	out := run(t, newStore(t), "5", "4", "x", "9", "6")

	assert.Contains(t, out, "El inventario está vacío.")
	assert.Contains(t, out, "No se encontraron productos coincidentes.")
	assert.Contains(t, out, "Opción no válida, intente de nuevo.")
}

func TestMenu_EndOfInputExits(t *testing.T) {
	var out bytes.Buffer

	err := New(newStore(t), strings.NewReader("5\n"), &out, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saliendo del sistema...")
}

func TestMenu_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(newStore(t), strings.NewReader("5\n"), &out, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
