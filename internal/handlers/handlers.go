package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"kogma/internal/apierror"
	"kogma/internal/auth"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type Services struct {
	Companies CompanyService
	Orders    OrderService
	Auth      AuthService
	Users     UserService
}

// Handler turns HTTP requests into service calls.
type Handler struct {
	Services
	DB  Pinger
	log *slog.Logger
}

func NewHandler(svc Services, db Pinger, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Services: svc, DB: db, log: log.With("cmp", "http")}
}

// PingHandler answers "ok" while the process is up.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadyHandler checks the database.
func (h *Handler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			h.log.Warn("readiness check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.log.Info("route not found", "method", r.Method, "path", r.URL.RequestURI())
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found", "path": r.URL.RequestURI()})
}

// decodeJSON reads a size-limited body into v. Decode failures become
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apierror.Wrap(apierror.KindValidation, err, "Não foi possível ler o corpo da requisição")
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	err = json.Unmarshal(body, v)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &syntaxErr):
		return apierror.MalformedJSON()
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return apierror.MalformedJSON()
		}
		return apierror.Validation("Dados inválidos").Add(field, "tipo inválido")
	default:
		// value-level errors from custom decoders (dates, decimals)
		return apierror.Wrap(apierror.KindValidation, err, "Dados inválidos").Add("body", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apierror.From(err)
	if ae.Kind == apierror.KindInternal {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, ae.Code(), ae)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.InvalidID()
	}
	return id, nil
}

// principal is set by auth.Middleware; handlers behind RequireAuth always
// have one.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
