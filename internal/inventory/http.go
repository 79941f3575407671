package inventory

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Inventory/pkg/kit"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(
	template.New("pages").
		Funcs(template.FuncMap{"price": func(v float64) string { return fmt.Sprintf("$%.2f", v) }}).
		ParseFS(templatesFS, "templates/*.html"),
)

const maxFormBytes = 1 << 20

type Server struct {
	Store *Store
	Log   *zap.Logger
	// Limiter throttles the routes that change the table. Nil disables it.
	Limiter *kit.IPRateLimiter
}

type page struct {
	Title     string
	Products  []Product
	Product   *Product
	Query     string
	Searching bool
	Message   string
	Code      string
	Fields    map[string]string
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/", s.index)
	r.Get("/about", s.about)
	r.Get("/item/{code}", s.item)
	r.Post("/buscar", s.search)

	r.Group(func(wr chi.Router) {
		if s.Limiter != nil {
			wr.Use(s.Limiter.Middleware)
		}
		wr.Post("/agregar", s.add)
		wr.Get("/eliminar/{id}", s.remove)
		wr.Post("/actualizar/{id}", s.update)
	})

	r.Route("/api/productos", s.apiRoutes)

	return r
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.renderError(w, r, err, "")
		return
	}
	s.render(w, r, http.StatusOK, "index.html", page{Title: "Inventario", Products: products})
}

func (s *Server) about(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about.html", page{Title: "Acerca de"})
}

func (s *Server) item(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	id, err := ParseID("code", code)
	if err != nil {
		s.renderError(w, r, err, code)
		return
	}

	p, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err, code)
		return
	}
	s.render(w, r, http.StatusOK, "item.html", page{Title: p.Name, Product: &p})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	q := r.PostFormValue("buscar")

	products, err := s.Store.Search(r.Context(), q)
	if err != nil {
		s.renderError(w, r, err, "")
		return
	}
	s.render(w, r, http.StatusOK, "index.html", page{
		Title:     "Inventario",
		Products:  products,
		Query:     q,
		Searching: true,
	})
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	p, err := addForm{
		id:       r.PostFormValue("id"),
		name:     r.PostFormValue("nombre"),
		quantity: r.PostFormValue("cantidad"),
		price:    r.PostFormValue("precio"),
	}.product()
	if err != nil {
		s.renderError(w, r, err, "")
		return
	}

	if _, err := s.Store.Add(r.Context(), p); err != nil {
		s.renderError(w, r, err, "")
		return
	}
	kit.RedirectHome(w, r)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	id, err := ParseID("id", raw)
	if err != nil {
		s.renderError(w, r, err, raw)
		return
	}
	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.renderError(w, r, err, raw)
		return
	}
	kit.RedirectHome(w, r)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	id, err := ParseID("id", raw)
	if err != nil {
		s.renderError(w, r, err, raw)
		return
	}
	if !s.parseForm(w, r) {
		return
	}

	u, err := ParseUpdate("cantidad", r.PostFormValue("cantidad"), "precio", r.PostFormValue("precio"))
	if err != nil {
		s.renderError(w, r, err, raw)
		return
	}
	if _, err := s.Store.Update(r.Context(), id, u); err != nil {
		s.renderError(w, r, err, raw)
		return
	}
	kit.RedirectHome(w, r)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "error.html", page{Title: "Error", Message: "Formulario inválido."})
		return false
	}
	return true
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, code string) {
	status := statusFor(err)
	p := page{Title: "Error", Code: code, Fields: FieldErrors(err)}

	switch status {
	case http.StatusBadRequest:
		p.Message = "Datos inválidos."
	case http.StatusNotFound:
		p.Message = "Producto no encontrado."
	case http.StatusConflict:
		p.Message = "Ya existe un producto con ese ID."
	default:
		s.logger().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		p.Message = "No se pudo completar la operación. Intente más tarde."
	}
	s.render(w, r, status, "error.html", p)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger().Error("render template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
