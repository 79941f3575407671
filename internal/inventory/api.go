package inventory

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Inventory/pkg/kit"
)

const maxBodyBytes = 1 << 20

func (s *Server) apiRoutes(r chi.Router) {
	r.Get("/", s.apiList)
	r.With(s.limit).Post("/", s.apiCreate)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.apiGet)
		r.With(s.limit).Patch("/", s.apiUpdate)
		r.With(s.limit).Delete("/", s.apiDelete)
	})
}

func (s *Server) limit(next http.Handler) http.Handler {
	if s.Limiter == nil {
		return next
	}
	return s.Limiter.Middleware(next)
}

func (s *Server) apiList(w http.ResponseWriter, r *http.Request) {
	var (
		products []Product
		err      error
	)
	if q, ok := r.URL.Query()["q"]; ok {
		products, err = s.Store.Search(r.Context(), q[0])
	} else {
		products, err = s.Store.List(r.Context())
	}
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) apiGet(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	p, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) apiCreate(w http.ResponseWriter, r *http.Request) {
	var req Product
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Store.Add(r.Context(), req)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) apiUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	var req ProductUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Store.Update(r.Context(), id, req)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) apiDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID("id", chi.URLParam(r, "id"))
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	switch status {
	case http.StatusBadRequest:
		kit.WriteError(w, r, status, ErrInvalidInput.Error(), map[string]any{"validation_errors": FieldErrors(err)})
	case http.StatusNotFound:
		kit.WriteError(w, r, status, "not found", map[string]any{"id": chi.URLParam(r, "id")})
	case http.StatusConflict:
		kit.WriteError(w, r, status, ErrDuplicateKey.Error(), nil)
	case http.StatusServiceUnavailable:
		s.logger().Error("backend unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		kit.WriteError(w, r, status, "backend unavailable", nil)
	default:
		s.logger().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		kit.WriteError(w, r, status, "server error", nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
