package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/canopycrm/importer/internal/auth"
	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/events"
)

// Options tunes request handling limits.
type Options struct {
	MaxPayloadBytes   int64
	FetchTimeout      time.Duration
	ProcessTimeout    time.Duration
	MaxResponseIssues int
}

func (o Options) withDefaults() Options {
	if o.MaxPayloadBytes <= 0 {
		o.MaxPayloadBytes = MaxPayloadBytes
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.ProcessTimeout <= 0 {
		o.ProcessTimeout = 60 * time.Second
	}
	if o.MaxResponseIssues <= 0 {
		o.MaxResponseIssues = 100
	}
	return o
}

// Handler exposes the import pipeline over HTTP:
//
//	GET  /api/imports/{entity}/health
//	POST /api/imports/{entity}/validate
//	POST /api/imports/{entity}/commit
type Handler struct {
	service  *Service
	fetcher  *Fetcher
	verifier auth.Verifier
	emitter  events.Emitter
	opts     Options
}

// NewHTTPHandler wires the pipeline endpoints.
func NewHTTPHandler(service *Service, fetcher *Fetcher, verifier auth.Verifier, emitter events.Emitter, opts Options) http.Handler {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Handler{service: service, fetcher: fetcher, verifier: verifier, emitter: emitter, opts: opts.withDefaults()}
}

type importResponse struct {
	OK            bool   `json:"ok"`
	CorrelationID string `json:"correlationId"`
	Action        string `json:"action"`
	Result
}

type errorResponse struct {
	OK            bool   `json:"ok"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
}

type urlImportPayload struct {
	URL             string `json:"url"`
	GoogleSheetsURL string `json:"googleSheetsUrl"`
	FileName        string `json:"fileName"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/imports/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, correlationID, domain.NewImportError(domain.CodeNotFound, "not found", http.StatusNotFound))
		return
	}

	entity, ok := domain.ParseEntityType(parts[0])
	if !ok {
		writeError(w, correlationID, domain.NewImportError(domain.CodeNotFound,
			fmt.Sprintf("unknown entity type: %s", parts[0]), http.StatusNotFound))
		return
	}

	action := strings.ToLower(parts[1])
	switch action {
	case "health":
		if r.Method != http.MethodGet {
			writeError(w, correlationID, domain.NewImportError(domain.CodeMethodNotAllowed,
				"use GET for the health endpoint", http.StatusMethodNotAllowed))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"message":   fmt.Sprintf("%s import endpoint alive", entity),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	case "validate", "commit":
		if r.Method != http.MethodPost {
			writeError(w, correlationID, domain.NewImportError(domain.CodeMethodNotAllowed,
				"use POST for this endpoint, try /health to test", http.StatusMethodNotAllowed))
			return
		}
		h.handleImport(w, r, entity, action, correlationID)
	default:
		writeError(w, correlationID, domain.NewImportError(domain.CodeNotFound,
			fmt.Sprintf("unknown action: %s", action), http.StatusNotFound))
	}
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request, entity domain.EntityType, action, correlationID string) {
	dryRun := action == "validate"

	var userID *uuid.UUID
	if !dryRun {
		token, ok := auth.BearerToken(r)
		if !ok {
			writeError(w, correlationID, domain.NewImportError(domain.CodeUnauthorized,
				"authentication required for import operations", http.StatusUnauthorized))
			return
		}
		id, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, correlationID, domain.NewImportError(domain.CodeUnauthorized,
				"invalid authentication", http.StatusUnauthorized))
			return
		}
		userID = &id
	}

	payload, sourceKind, locator, fileName, err := h.acquire(r, correlationID)
	if err != nil {
		writeError(w, correlationID, err)
		return
	}

	h.emitter.Emit("IMPORT_START", correlationID, map[string]any{
		"entity_type": entity,
		"action":      action,
		"file_name":   fileName,
		"csv_size":    len(payload),
	})

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.ProcessTimeout)
	defer cancel()

	result, err := h.service.Run(ctx, Request{
		EntityType:    entity,
		SourceKind:    sourceKind,
		SourceLocator: locator,
		FileName:      fileName,
		UserID:        userID,
		DryRun:        dryRun,
		CorrelationID: correlationID,
		Payload:       payload,
	})
	if err != nil {
		writeError(w, correlationID, err)
		return
	}

	if len(result.Issues) > h.opts.MaxResponseIssues {
		result.Issues = result.Issues[:h.opts.MaxResponseIssues]
	}
	if dryRun {
		result.Status = ""
	}

	writeJSON(w, http.StatusOK, importResponse{
		OK:            true,
		CorrelationID: correlationID,
		Action:        action,
		Result:        result,
	})
}

// acquire obtains the CSV payload from either a multipart upload or a
// JSON body carrying a spreadsheet-sharing URL.
func (h *Handler) acquire(r *http.Request, correlationID string) ([]byte, domain.SourceKind, string, string, error) {
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.Contains(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", "", "", domain.NewImportError(domain.CodeFileMissing,
				fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", "", "", domain.NewImportError(domain.CodeFileMissing, "no CSV file uploaded", http.StatusBadRequest)
		}
		defer file.Close()

		if err := AcceptUpload(header.Size, h.opts.MaxPayloadBytes); err != nil {
			return nil, "", "", "", err
		}
		payload, err := io.ReadAll(io.LimitReader(file, h.opts.MaxPayloadBytes+1))
		if err != nil {
			return nil, "", "", "", domain.NewImportError(domain.CodeFileMissing,
				fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		}
		if err := AcceptUpload(int64(len(payload)), h.opts.MaxPayloadBytes); err != nil {
			return nil, "", "", "", err
		}
		// The payload stays byte-exact here: workbook uploads are ZIP
		// archives, and line-ending normalization for CSV happens at
		// parse time.
		return payload, domain.SourceFileUpload, header.Filename, header.Filename, nil

	case strings.Contains(contentType, "application/json"):
		var body urlImportPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, "", "", "", domain.NewImportError(domain.CodeURLMissing,
				fmt.Sprintf("invalid JSON body: %v", err), http.StatusBadRequest)
		}
		rawURL := body.URL
		if rawURL == "" {
			rawURL = body.GoogleSheetsURL
		}
		if rawURL == "" {
			return nil, "", "", "", domain.NewImportError(domain.CodeURLMissing, "no spreadsheet or CSV URL provided", http.StatusBadRequest)
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.opts.FetchTimeout)
		defer cancel()

		payload, effectiveURL, err := h.fetcher.FetchCSV(ctx, rawURL)
		if err != nil {
			return nil, "", "", "", err
		}

		fileName := body.FileName
		if fileName == "" {
			fileName = "remote.csv"
		}
		h.emitter.Emit("SHEETS_FETCHED", correlationID, map[string]any{
			"effective_url": effectiveURL,
			"csv_size":      len(payload),
		})
		return payload, domain.SourceRemoteURL, effectiveURL, fileName, nil

	default:
		return nil, "", "", "", domain.NewImportError(domain.CodeUnsupportedContentType,
			"expected multipart/form-data or application/json", http.StatusUnsupportedMediaType)
	}
}

func writeError(w http.ResponseWriter, correlationID string, err error) {
	var importErr *domain.ImportError
	if !errors.As(err, &importErr) {
		importErr = domain.NewImportError("UNHANDLED", err.Error(), http.StatusInternalServerError)
	}
	writeJSON(w, importErr.Status, errorResponse{
		OK:            false,
		Code:          importErr.Code,
		Message:       importErr.Message,
		CorrelationID: correlationID,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
