package export

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Handler struct {
	service *Service
}

// NewHTTPHandler serves read endpoints for completed import attempts:
//
//	GET /api/imports/attempts
//	GET /api/imports/attempts/{id}
//	GET /api/imports/attempts/{id}/issues
//	GET /api/imports/attempts/{id}/report.csv
//	GET /api/imports/attempts/{id}/sample.json
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/imports/attempts"), "/")
	if rest == "" {
		h.handleListAttempts(w, r)
		return
	}

	segments := strings.Split(rest, "/")
	attemptID, err := uuid.Parse(segments[0])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid attempt identifier: %v", err), http.StatusBadRequest)
		return
	}

	switch {
	case len(segments) == 1:
		h.handleGetAttempt(w, r, attemptID)
	case len(segments) == 2 && segments[1] == "issues":
		h.handleListIssues(w, r, attemptID)
	case len(segments) == 2 && segments[1] == "report.csv":
		h.handleReport(w, r, attemptID)
	case len(segments) == 2 && segments[1] == "sample.json":
		h.handleSample(w, r, attemptID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r, 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	attempts, err := h.service.ListAttempts(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, fmt.Sprintf("list attempts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request, attemptID uuid.UUID) {
	attempt, err := h.service.GetAttempt(r.Context(), attemptID)
	if err != nil {
		http.Error(w, fmt.Sprintf("attempt not found: %v", err), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) handleListIssues(w http.ResponseWriter, r *http.Request, attemptID uuid.UUID) {
	limit, offset, err := parsePage(r, 200)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	issues, err := h.service.ListIssues(r.Context(), attemptID, limit, offset)
	if err != nil {
		http.Error(w, fmt.Sprintf("list issues: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, attemptID uuid.UUID) {
	if _, err := h.service.GetAttempt(r.Context(), attemptID); err != nil {
		http.Error(w, fmt.Sprintf("attempt not found: %v", err), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"import-issues-%s.csv\"", attemptID))
	if err := h.service.WriteIssueReport(r.Context(), w, attemptID); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

func (h *Handler) handleSample(w http.ResponseWriter, r *http.Request, attemptID uuid.UUID) {
	attempt, err := h.service.GetAttempt(r.Context(), attemptID)
	if err != nil {
		http.Error(w, fmt.Sprintf("attempt not found: %v", err), http.StatusNotFound)
		return
	}
	sample := attempt.SampleRows
	if sample == nil {
		sample = []map[string]string{}
	}
	writeJSON(w, http.StatusOK, sample)
}

func parsePage(r *http.Request, defaultLimit int) (int, int, error) {
	query := r.URL.Query()
	limit := defaultLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
		limit = parsed
	}
	offset := 0
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("offset must be zero or positive")
		}
		offset = parsed
	}
	return limit, offset, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
