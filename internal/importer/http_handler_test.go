package importer

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/canopycrm/importer/internal/auth"
)

func newTestHandler(t *testing.T) (http.Handler, *stubAttemptRepo, *stubRecordStore, string) {
	t.Helper()

	attempts := &stubAttemptRepo{}
	issues := &stubIssueRepo{}
	records := newStubRecordStore()
	service := NewService(attempts, issues, records, nil)

	token := "test-token"
	verifier := auth.NewStaticVerifier(map[string]uuid.UUID{token: uuid.New()})

	handler := NewHTTPHandler(service, NewFetcher(), verifier, nil, Options{})
	return handler, attempts, records, token
}

func multipartBody(t *testing.T, fileName, contents string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(contents)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestHandlerHealth(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/contacts/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok response, got %v", body)
	}
}

func TestHandlerValidateMultipart(t *testing.T) {
	handler, attempts, records, _ := newTestHandler(t)

	data := "Contact Unique ID,First Name,Last Name,Email\nC-1,Jane,Doe,jane@example.com\n"
	body, contentType := multipartBody(t, "contacts.csv", data)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/validate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK         bool                `json:"ok"`
		Action     string              `json:"action"`
		Status     string              `json:"status"`
		TotalRows  int                 `json:"totalRows"`
		ValidRows  int                 `json:"validRows"`
		SampleData []map[string]string `json:"sampleData"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Action != "validate" {
		t.Fatalf("unexpected response envelope: %+v", resp)
	}
	if resp.TotalRows != 1 || resp.ValidRows != 1 {
		t.Fatalf("unexpected counts: %+v", resp)
	}
	// Dry runs report counts only; no terminal status until commit.
	if resp.Status != "" {
		t.Fatalf("validate should not report a status, got %q", resp.Status)
	}
	if len(resp.SampleData) != 1 {
		t.Fatalf("expected sample row, got %d", len(resp.SampleData))
	}

	if len(attempts.created) != 0 {
		t.Fatalf("validate should not create attempts")
	}
	if len(records.inserted["contacts"]) != 0 {
		t.Fatalf("validate should not write records")
	}
}

func TestHandlerCommitRequiresAuth(t *testing.T) {
	handler, _, records, _ := newTestHandler(t)

	data := "Contact Unique ID,First Name,Last Name\nC-1,Jane,Doe\n"
	body, contentType := multipartBody(t, "contacts.csv", data)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/commit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED code, got %s", resp.Code)
	}
	if len(records.inserted["contacts"]) != 0 {
		t.Fatalf("unauthenticated commit must not write records")
	}
}

func TestHandlerCommitWithToken(t *testing.T) {
	handler, attempts, records, token := newTestHandler(t)

	data := "Contact Unique ID,First Name,Last Name\nC-1,Jane,Doe\n"
	body, contentType := multipartBody(t, "contacts.csv", data)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/commit", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK           bool   `json:"ok"`
		Status       string `json:"status"`
		UpsertedRows int    `json:"upsertedRows"`
		AttemptID    string `json:"attemptId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "succeeded" || resp.UpsertedRows != 1 {
		t.Fatalf("unexpected commit result: %+v", resp)
	}
	if resp.AttemptID == "" {
		t.Fatalf("commit should report the attempt id")
	}

	if len(records.inserted["contacts"]) != 1 {
		t.Fatalf("commit should write the record")
	}
	if len(attempts.created) != 1 || attempts.created[0].UserID == nil {
		t.Fatalf("attempt should carry the authenticated user")
	}
}

func TestHandlerMissingFile(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("note", "no file here")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/validate", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "FILE_MISSING" {
		t.Fatalf("expected FILE_MISSING, got %s", resp.Code)
	}
}

func TestHandlerMissingURL(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/validate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "URL_MISSING" {
		t.Fatalf("expected URL_MISSING, got %s", resp.Code)
	}
}

func TestHandlerPayloadTooLarge(t *testing.T) {
	attempts := &stubAttemptRepo{}
	issues := &stubIssueRepo{}
	records := newStubRecordStore()
	service := NewService(attempts, issues, records, nil)
	handler := NewHTTPHandler(service, NewFetcher(), nil, nil, Options{MaxPayloadBytes: 64})

	body, contentType := multipartBody(t, "big.csv", strings.Repeat("a", 200))

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/validate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("expected PAYLOAD_TOO_LARGE, got %s", resp.Code)
	}
}

func TestHandlerUnknownEntity(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/products/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	handler, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/contacts/validate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandlerIssueCap(t *testing.T) {
	attempts := &stubAttemptRepo{}
	issues := &stubIssueRepo{}
	records := newStubRecordStore()
	service := NewService(attempts, issues, records, nil)
	handler := NewHTTPHandler(service, NewFetcher(), nil, nil, Options{MaxResponseIssues: 5})

	var sb strings.Builder
	sb.WriteString("Contact Unique ID,First Name,Last Name,Email\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("C-" + strings.Repeat("x", i+1) + ",Jane,Doe,not-an-email\n")
	}
	body, contentType := multipartBody(t, "contacts.csv", sb.String())

	req := httptest.NewRequest(http.MethodPost, "/api/imports/contacts/validate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Issues        []json.RawMessage `json:"issues"`
		WarningsCount int               `json:"warningsCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Issues) != 5 {
		t.Fatalf("expected issues truncated to 5, got %d", len(resp.Issues))
	}
	// The counters still reflect the full issue list.
	if resp.WarningsCount != 10 {
		t.Fatalf("expected 10 warnings counted, got %d", resp.WarningsCount)
	}
}
