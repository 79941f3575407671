// Package console drives the product store from a numbered text menu.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"Inventory/internal/inventory"
)

const (
	optionAdd    = "1"
	optionDelete = "2"
	optionUpdate = "3"
	optionSearch = "4"
	optionList   = "5"
	optionExit   = "6"
)

const separator = "========================================"

// Menu reads one answer per line from In and writes prompts and results to
// Out. It never touches the store when an answer fails to parse.
type Menu struct {
	Store *inventory.Store
	Log   *zap.Logger

	in  *bufio.Scanner
	out io.Writer
}

func New(store *inventory.Store, in io.Reader, out io.Writer, log *zap.Logger) *Menu {
	if log == nil {
		log = zap.NewNop()
	}
	return &Menu{Store: store, Log: log, in: bufio.NewScanner(in), out: out}
}

// Run shows the menu until the user picks exit, input ends or ctx is done.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printMenu()
		option, ok := m.ask("\nSeleccione una opción: ")
		if !ok {
			m.println("\nSaliendo del sistema...")
			return m.in.Err()
		}

		switch strings.TrimSpace(option) {
		case optionAdd:
			m.add(ctx)
		case optionDelete:
			m.delete(ctx)
		case optionUpdate:
			m.update(ctx)
		case optionSearch:
			m.search(ctx)
		case optionList:
			m.list(ctx)
		case optionExit:
			m.println("Saliendo del sistema...")
			return nil
		default:
			m.println("Opción no válida, intente de nuevo.")
		}
	}
}

func (m *Menu) printMenu() {
	m.println("\n" + separator)
	m.println(" SISTEMA DE GESTIÓN DE INVENTARIO")
	m.println(separator)
	m.println("1. Añadir nuevo producto")
	m.println("2. Eliminar producto por ID")
	m.println("3. Actualizar cantidad o precio")
	m.println("4. Buscar producto por nombre")
	m.println("5. Mostrar todos los productos")
	m.println("6. Salir")
}

func (m *Menu) add(ctx context.Context) {
	answers, ok := m.askAll(
		"Ingrese ID único (numérico): ",
		"Ingrese nombre del producto: ",
		"Ingrese cantidad: ",
		"Ingrese precio: ",
	)
	if !ok {
		return
	}

	id, err := inventory.ParseID("id", answers[0])
	if err != nil {
		m.println("Error: Asegúrese de ingresar números válidos para ID, cantidad y precio.")
		return
	}
	quantity, err := inventory.ParseQuantity("cantidad", answers[2])
	if err != nil {
		m.println("Error: Asegúrese de ingresar números válidos para ID, cantidad y precio.")
		return
	}
	price, err := inventory.ParsePrice("precio", answers[3])
	if err != nil {
		m.println("Error: Asegúrese de ingresar números válidos para ID, cantidad y precio.")
		return
	}

	p, err := inventory.NewProduct(id, answers[1], quantity, price)
	if err != nil {
		m.report(err)
		return
	}
	if _, err := m.Store.Add(ctx, p); err != nil {
		m.report(err)
		return
	}
	m.println("Producto agregado exitosamente.")
}

func (m *Menu) delete(ctx context.Context) {
	raw, ok := m.ask("Ingrese el ID del producto a eliminar: ")
	if !ok {
		return
	}
	id, err := inventory.ParseID("id", raw)
	if err != nil {
		m.println("Error: El ID debe ser un número.")
		return
	}

	if err := m.Store.Delete(ctx, id); err != nil {
		m.report(err)
		return
	}
	m.println("Producto eliminado.")
}

func (m *Menu) update(ctx context.Context) {
	raw, ok := m.ask("Ingrese el ID del producto a actualizar: ")
	if !ok {
		return
	}
	id, err := inventory.ParseID("id", raw)
	if err != nil {
		m.println("Error: Ingrese valores numéricos válidos.")
		return
	}

	m.println("(Deje vacío y presione Enter si no desea cambiar el valor)")
	answers, ok := m.askAll("Nueva cantidad: ", "Nuevo precio: ")
	if !ok {
		return
	}

	u, err := inventory.ParseUpdate("cantidad", answers[0], "precio", answers[1])
	if err != nil {
		var parseErr *inventory.InputError
		if errors.As(err, &parseErr) {
			m.println("Error: Ingrese valores numéricos válidos.")
			return
		}
		m.report(err)
		return
	}

	if _, err := m.Store.Update(ctx, id, u); err != nil {
		m.report(err)
		return
	}
	m.println("Producto actualizado correctamente.")
}

func (m *Menu) search(ctx context.Context) {
	name, ok := m.ask("Ingrese el nombre a buscar: ")
	if !ok {
		return
	}

	found, err := m.Store.Search(ctx, name)
	if err != nil {
		m.report(err)
		return
	}

	m.println("\n--- Resultados de búsqueda ---")
	if len(found) == 0 {
		m.println("No se encontraron productos coincidentes.")
		return
	}
	for _, p := range found {
		m.println(p.String())
	}
}

func (m *Menu) list(ctx context.Context) {
	all, err := m.Store.List(ctx)
	if err != nil {
		m.report(err)
		return
	}

	if len(all) == 0 {
		m.println("El inventario está vacío.")
		return
	}
	m.println("\n--- Listado Completo del Inventario ---")
	for _, p := range all {
		m.println(p.String())
	}
}

// report prints the outcome of a failed store call. Backend failures are
// logged as well; the menu keeps running either way.
func (m *Menu) report(err error) {
	switch {
	case errors.Is(err, inventory.ErrDuplicateKey):
		m.println("Error: Ya existe un producto con ese ID.")
	case errors.Is(err, inventory.ErrNotFound):
		m.println("Error: Producto no encontrado.")
	case errors.Is(err, inventory.ErrInvalidInput):
		m.println("Error: Datos inválidos.")
		for field, reason := range inventory.FieldErrors(err) {
			m.println(fmt.Sprintf("  %s: %s", field, reason))
		}
	default:
		m.Log.Error("store operation failed", zap.Error(err))
		m.println(fmt.Sprintf("Error: no se pudo completar la operación: %v", err))
	}
}

func (m *Menu) ask(prompt string) (string, bool) {
	_, _ = fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		return "", false
	}
	return m.in.Text(), true
}

func (m *Menu) askAll(prompts ...string) ([]string, bool) {
	answers := make([]string, 0, len(prompts))
	for _, p := range prompts {
		a, ok := m.ask(p)
		if !ok {
			return nil, false
		}
		answers = append(answers, a)
	}
	return answers, true
}

func (m *Menu) println(s string) {
	_, _ = fmt.Fprintln(m.out, s)
}
