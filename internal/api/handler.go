// Package api exposes the JSON HTTP API of the field data service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/pm25-field-data/internal/auth"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

// LoginPath is served without a bearer token.
const LoginPath = "/v1/auth/login"

const maxBodyBytes = 1 << 20

// Handler coordinates HTTP requests with the pipeline service.
type Handler struct {
	service *pipeline.Service
	auth    auth.Config
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *pipeline.Service, authCfg auth.Config, logger *slog.Logger) *Handler {
	return &Handler{service: service, auth: authCfg, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+LoginPath, h.login)
	mux.HandleFunc("GET /v1/reference", h.reference)
	mux.HandleFunc("GET /v1/sites", h.sites)

	mux.HandleFunc("POST /v1/observations", h.submitObservation)
	mux.HandleFunc("GET /v1/observations", h.listObservations)
	mux.HandleFunc("PUT /v1/observations/{row}", h.editObservation)
	mux.HandleFunc("DELETE /v1/observations/{row}", h.deleteObservation)
	mux.HandleFunc("GET /v1/deleted", h.listDeleted)
	mux.HandleFunc("POST /v1/deleted/{row}/restore", h.restoreObservation)

	mux.HandleFunc("POST /v1/merge", h.merge)
	mux.HandleFunc("GET /v1/merged", h.listMerged)
	mux.HandleFunc("POST /v1/calculations", h.calculate)
	mux.HandleFunc("POST /v1/calculations/save", h.saveCalculations)
	mux.HandleFunc("GET /v1/calculations/saved", h.listSaved)

	mux.HandleFunc("GET /v1/users", h.listUsers)
	mux.HandleFunc("POST /v1/users", h.createUser)
	mux.HandleFunc("PUT /v1/users/{username}", h.updateUser)
	mux.HandleFunc("DELETE /v1/users/{username}", h.deleteUser)
	mux.HandleFunc("POST /v1/users/{username}/password", h.resetPassword)
}

// Routes returns the API behind bearer authentication. Only the login
// endpoint is reachable without a token.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return auth.NewMiddleware(h.auth, auth.PathSkipper(LoginPath)).Wrap(mux)
}

// authorize returns the caller's claims when they hold any of caps. With
// no caps any authenticated caller passes.
func authorize(w http.ResponseWriter, r *http.Request, caps ...auth.Capability) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if len(caps) == 0 {
		return claims, true
	}
	for _, c := range caps {
		if claims.Can(c) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "role "+string(claims.Role)+" may not "+string(caps[0]))
	return nil, false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints whose body may be empty.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func rowParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	row, err := strconv.Atoi(r.PathValue("row"))
	if err != nil || row < domain.FirstDataRow {
		writeError(w, http.StatusBadRequest, "invalid_request", "row must be an integer >= 2")
		return 0, false
	}
	return row, true
}

// writeServiceError maps service errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Type:     "validation_failed",
			Detail:   verr.Error(),
			Problems: verr.Problems,
		})
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

type validationResponse struct {
	Type     string           `json:"type"`
	Detail   string           `json:"detail"`
	Problems []domain.Problem `json:"problems"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
