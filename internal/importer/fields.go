package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/schema"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	datePattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// cleanField applies the field-kind rule to a raw cell value. It returns
// the cleaned value, whether the value should be kept on the row, and an
// optional issue. Email, URL, date and boolean failures drop the value;
// a short phone number is flagged but retained.
func cleanField(field schema.Field, raw string, rowNumber int) (any, bool, *domain.ImportIssue) {
	switch field.Kind {
	case schema.KindEmail:
		if !emailPattern.MatchString(raw) {
			return nil, false, fieldIssue(field, rowNumber, domain.SeverityWarning, domain.CodeEmailInvalid,
				fmt.Sprintf("invalid email format: %s", raw))
		}
		return raw, true, nil

	case schema.KindURL:
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return nil, false, fieldIssue(field, rowNumber, domain.SeverityWarning, domain.CodeURLInvalid,
				fmt.Sprintf("invalid URL format: %s, must start with http:// or https://", raw))
		}
		return raw, true, nil

	case schema.KindDate:
		normalized, ok := NormalizeDate(raw)
		if !ok {
			return nil, false, fieldIssue(field, rowNumber, domain.SeverityWarning, domain.CodeDateParse,
				fmt.Sprintf("invalid date: %s, expected MM/DD/YYYY", raw))
		}
		return normalized, true, nil

	case schema.KindPhone:
		cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
		if len(cleaned) < 7 {
			return cleaned, true, fieldIssue(field, rowNumber, domain.SeverityWarning, domain.CodePhoneShort,
				fmt.Sprintf("phone number seems too short: %s", cleaned))
		}
		return cleaned, true, nil

	case schema.KindBool:
		value, ok := ParseBool(raw)
		if !ok {
			return nil, false, fieldIssue(field, rowNumber, domain.SeverityWarning, domain.CodeBooleanInvalid,
				fmt.Sprintf("invalid boolean value: %s, expected true/false, yes/no, y/n, or 1/0", raw))
		}
		return value, true, nil

	case schema.KindState:
		return NormalizeState(raw), true, nil

	default:
		return raw, true, nil
	}
}

func fieldIssue(field schema.Field, rowNumber int, severity domain.Severity, code, message string) *domain.ImportIssue {
	row := rowNumber
	return &domain.ImportIssue{
		RowNumber: &row,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Field:     field.Column,
	}
}

// NormalizeDate parses a strict MM/DD/YYYY value (month 1-12, day 1-31,
// year >= 1900) and reformats it as YYYY-MM-DD.
func NormalizeDate(raw string) (string, bool) {
	match := datePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return "", false
	}
	month, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[2])
	year, _ := strconv.Atoi(match[3])
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// ParseBool accepts the CRM's boolean spellings, case-insensitive.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

// SurrogateID derives a deterministic fallback identifier from the key
// parts: a content hash truncated to 8 hex characters, prefixed.
func SurrogateID(prefix string, parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "-")))
	return prefix + hex.EncodeToString(sum[:])[:8]
}

var statesByName = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

// NormalizeState maps a full US state name to its USPS code; unrecognized
// values pass through unchanged.
func NormalizeState(raw string) string {
	if code, ok := statesByName[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return code
	}
	return raw
}
