package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/canopycrm/importer/internal/domain"
)

// ErrUnsupportedFormat is returned when an uploaded file is not supported.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// MaxPayloadBytes is the default upload/fetch size ceiling (10 MiB).
const MaxPayloadBytes = 10 << 20

var (
	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	sheetsEditPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)/edit`)
	sheetsGidPattern  = regexp.MustCompile(`gid=([0-9]+)`)

	csvContentTypes = []string{"text/csv", "application/csv", "text/plain"}
)

// NormalizeCSVBuffer strips a leading byte-order mark, converts CRLF/CR
// line endings to LF, and replaces non-breaking spaces with ordinary
// spaces. Applying it twice yields the same result as once.
func NormalizeCSVBuffer(payload []byte) []byte {
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	payload = bytes.ReplaceAll(payload, []byte("\r\n"), []byte("\n"))
	payload = bytes.ReplaceAll(payload, []byte("\r"), []byte("\n"))
	payload = bytes.ReplaceAll(payload, []byte(" "), []byte(" "))
	return payload
}

// TransformSheetsURL converts a Google Sheets "edit" sharing URL into the
// direct CSV export URL, preserving the tab id (gid) when present and
// defaulting to the first tab. Non-matching URLs pass through unchanged.
func TransformSheetsURL(raw string) string {
	loc := sheetsEditPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw
	}
	docID := raw[loc[2]:loc[3]]

	// Only a gid following the /edit segment selects a tab; query
	// parameters earlier in the URL are unrelated.
	gid := "0"
	if gidMatch := sheetsGidPattern.FindStringSubmatch(raw[loc[1]:]); gidMatch != nil {
		gid = gidMatch[1]
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s", docID, gid)
}

// AcceptUpload checks the declared upload size against the ceiling before
// any bytes are parsed.
func AcceptUpload(declaredSize int64, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxPayloadBytes
	}
	if declaredSize > maxBytes {
		return domain.NewImportError(domain.CodePayloadTooLarge,
			fmt.Sprintf("CSV file too large (max %d bytes)", maxBytes), http.StatusRequestEntityTooLarge)
	}
	return nil
}

// Fetcher retrieves remote CSV exports with content negotiation.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewFetcher builds a Fetcher with the default client and size ceiling.
func NewFetcher() *Fetcher {
	return &Fetcher{Client: http.DefaultClient, MaxBytes: MaxPayloadBytes}
}

// FetchCSV transforms the sharing URL, performs the fetch, and returns
// the normalized payload plus the effective URL that was fetched.
func (f *Fetcher) FetchCSV(ctx context.Context, rawURL string) ([]byte, string, error) {
	effectiveURL := TransformSheetsURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, effectiveURL, nil)
	if err != nil {
		return nil, effectiveURL, domain.NewImportError(domain.CodeFetchFailed,
			fmt.Sprintf("invalid URL: %v", err), http.StatusBadRequest)
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ImportBot/1.0)")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, effectiveURL, domain.NewImportError(domain.CodeFetchFailed,
			fmt.Sprintf("failed to fetch CSV: %v", err), http.StatusBadGateway)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return nil, effectiveURL, domain.NewImportError(domain.CodeURLForbidden,
			`sheet is not accessible; make it public or use "Publish to web - CSV"`, http.StatusForbidden)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, effectiveURL, domain.NewImportError(domain.CodeFetchFailed,
			fmt.Sprintf("URL returned %d", resp.StatusCode), resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !acceptableContentType(contentType) {
		return nil, effectiveURL, domain.NewImportError(domain.CodeUnsupportedContentType,
			fmt.Sprintf("expected CSV, got %s", contentType), http.StatusUnsupportedMediaType)
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxPayloadBytes
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, effectiveURL, domain.NewImportError(domain.CodeFetchFailed,
			fmt.Sprintf("failed to read response: %v", err), http.StatusBadGateway)
	}
	if int64(len(payload)) > maxBytes {
		return nil, effectiveURL, domain.NewImportError(domain.CodePayloadTooLarge,
			fmt.Sprintf("CSV file too large (max %d bytes)", maxBytes), http.StatusRequestEntityTooLarge)
	}

	return NormalizeCSVBuffer(payload), effectiveURL, nil
}

func acceptableContentType(contentType string) bool {
	for _, accepted := range csvContentTypes {
		if strings.Contains(contentType, accepted) {
			return true
		}
	}
	return false
}

// DetectDelimiter counts commas versus semicolons in the header line and
// picks the more frequent, defaulting to comma on a tie.
func DetectDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}

// parseRecords turns the uploaded payload into raw rows. CSV payloads go
// through buffer normalization and delimiter auto-detection; .xlsx files
// are read from the first sheet.
func parseRecords(fileName string, payload []byte) ([][]string, error) {
	if strings.ToLower(filepath.Ext(fileName)) == ".xlsx" {
		return parseExcel(payload)
	}
	return parseCSV(payload)
}

func parseCSV(payload []byte) ([][]string, error) {
	payload = NormalizeCSVBuffer(payload)

	headerLine, _, _ := strings.Cut(string(payload), "\n")
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.Comma = DetectDelimiter(headerLine)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewImportError(domain.CodeCSVEmpty,
			fmt.Sprintf("failed to read csv: %v", err), http.StatusBadRequest)
	}
	return records, nil
}

func parseExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open xlsx: %v", ErrUnsupportedFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewImportError(domain.CodeCSVEmpty, "excel file has no sheets", http.StatusBadRequest)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}
