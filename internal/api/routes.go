package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/couchcryptid/pm25-field-data/internal/auth"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	token, expires, err := auth.Issue(user, h.auth, domain.Now())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        token,
		ExpiresAt:    expires,
		User:         user,
		Capabilities: auth.Capabilities(user.Role),
	})
}

func (h *Handler) reference(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Reference())
}

func (h *Handler) sites(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, listOf(h.service.Sites(r.Context())))
}

func (h *Handler) submitObservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.CapSubmit)
	if !ok {
		return
	}
	var req domain.Observation
	if !decodeBody(w, r, &req) {
		return
	}
	obs, err := h.service.SubmitObservation(r.Context(), claims.Subject, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obs)
}

func (h *Handler) listObservations(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapEdit, auth.CapReview); !ok {
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	rows, err := h.service.ListObservations(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(rows))
}

func (h *Handler) editObservation(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapEdit); !ok {
		return
	}
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	var req domain.Observation
	if !decodeBody(w, r, &req) {
		return
	}
	obs, err := h.service.EditObservation(r.Context(), row, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (h *Handler) deleteObservation(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.CapEdit)
	if !ok {
		return
	}
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(r.Context(), claims.Subject, row); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDeleted(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapEdit, auth.CapReview); !ok {
		return
	}
	rows, err := h.service.ListDeleted(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(rows))
}

func (h *Handler) restoreObservation(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapEdit); !ok {
		return
	}
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Restore(r.Context(), row); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapMerge); !ok {
		return
	}
	var req FilterRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	f, err := req.Filter()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.service.Merge(r.Context(), f)
	resp := MergeResponse{Summary: result.Summary, Records: result.Records}
	switch {
	case errors.Is(err, domain.ErrNothingToMerge):
		resp.Records = []domain.PairedRecord{}
		resp.Notice = err.Error()
	case err != nil:
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listMerged(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapCalculate); !ok {
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	rows, err := h.service.ListMerged(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(rows))
}

func (h *Handler) decodeWeights(w http.ResponseWriter, r *http.Request) ([]domain.CalculatedRecord, bool) {
	var req WeightsRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return nil, false
	}
	results, err := h.service.Calculate(r.Context(), req.Entries)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return results, true
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapCalculate); !ok {
		return
	}
	results, ok := h.decodeWeights(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pipeline.ExportFilename))
		w.WriteHeader(http.StatusOK)
		if err := pipeline.ExportCSV(w, results); err != nil {
			h.logger.Error("csv export failed", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, listOf(results))
}

func (h *Handler) saveCalculations(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.CapCalculate)
	if !ok {
		return
	}
	results, ok := h.decodeWeights(w, r)
	if !ok {
		return
	}
	saved, err := h.service.SaveCalculations(r.Context(), claims.Subject, results)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listOf(saved))
}

func (h *Handler) listSaved(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapCalculate, auth.CapReview); !ok {
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	rows, err := h.service.ListSaved(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(rows))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapManageUsers); !ok {
		return
	}
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(users))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapManageUsers); !ok {
		return
	}
	var req domain.UserInput
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapManageUsers); !ok {
		return
	}
	var req domain.UserInput
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.service.UpdateUser(r.Context(), r.PathValue("username"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := authorize(w, r, auth.CapManageUsers)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), claims.Subject, r.PathValue("username")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, auth.CapManageUsers); !ok {
		return
	}
	var req PasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), r.PathValue("username"), req.Password); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
