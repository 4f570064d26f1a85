package importer

import (
	"strings"
	"testing"

	"github.com/canopycrm/importer/internal/domain"
	"github.com/canopycrm/importer/internal/schema"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"01/15/2024", "2024-01-15", true},
		{"1/5/2024", "2024-01-05", true},
		{"12/31/1999", "1999-12-31", true},
		{"13/01/2024", "", false},
		{"07/32/2024", "", false},
		{"01/15/1899", "", false},
		{"2024-01-15", "", false},
		{"not a date", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeDate(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NormalizeDate(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"true", "TRUE", "yes", "Y", "1"}
	for _, input := range truthy {
		value, ok := ParseBool(input)
		if !ok || !value {
			t.Fatalf("ParseBool(%q) = %v, %v; want true, true", input, value, ok)
		}
	}

	falsy := []string{"false", "No", "n", "0"}
	for _, input := range falsy {
		value, ok := ParseBool(input)
		if !ok || value {
			t.Fatalf("ParseBool(%q) = %v, %v; want false, true", input, value, ok)
		}
	}

	if _, ok := ParseBool("maybe"); ok {
		t.Fatalf("expected ParseBool to reject %q", "maybe")
	}
}

func TestSurrogateIDDeterministic(t *testing.T) {
	first := SurrogateID("CNT-", []string{"jane", "doe", "LIC-42"})
	second := SurrogateID("CNT-", []string{"jane", "doe", "LIC-42"})

	if first != second {
		t.Fatalf("surrogate id not deterministic: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "CNT-") {
		t.Fatalf("expected CNT- prefix, got %s", first)
	}
	if len(first) != len("CNT-")+8 {
		t.Fatalf("expected 8 hash characters, got %s", first)
	}

	other := SurrogateID("CNT-", []string{"john", "doe", "LIC-42"})
	if other == first {
		t.Fatalf("distinct inputs produced the same surrogate id")
	}
}

func TestCleanFieldEmail(t *testing.T) {
	field := schema.Field{Column: "email", Kind: schema.KindEmail}

	value, keep, issue := cleanField(field, "jane@example.com", 2)
	if issue != nil || !keep || value != "jane@example.com" {
		t.Fatalf("valid email rejected: %v %v %v", value, keep, issue)
	}

	_, keep, issue = cleanField(field, "not-an-email", 2)
	if keep {
		t.Fatalf("invalid email should be dropped")
	}
	if issue == nil || issue.Code != domain.CodeEmailInvalid || issue.Severity != domain.SeverityWarning {
		t.Fatalf("expected EMAIL_INVALID warning, got %+v", issue)
	}
	if issue.RowNumber == nil || *issue.RowNumber != 2 {
		t.Fatalf("expected issue row number 2, got %+v", issue.RowNumber)
	}
}

func TestCleanFieldURL(t *testing.T) {
	field := schema.Field{Column: "linkedin_url", Kind: schema.KindURL}

	if _, keep, issue := cleanField(field, "https://linkedin.com/in/jane", 3); issue != nil || !keep {
		t.Fatalf("valid URL rejected: %v %v", keep, issue)
	}

	_, keep, issue := cleanField(field, "linkedin.com/in/jane", 3)
	if keep {
		t.Fatalf("schemeless URL should be dropped")
	}
	if issue == nil || issue.Code != domain.CodeURLInvalid {
		t.Fatalf("expected URL_INVALID warning, got %+v", issue)
	}
}

func TestCleanFieldPhoneShortRetained(t *testing.T) {
	field := schema.Field{Column: "phone_number", Kind: schema.KindPhone}

	value, keep, issue := cleanField(field, "555 12", 4)
	if !keep {
		t.Fatalf("short phone should be retained")
	}
	if value != "555 12" {
		t.Fatalf("unexpected cleaned phone: %v", value)
	}
	if issue == nil || issue.Code != domain.CodePhoneShort || issue.Severity != domain.SeverityWarning {
		t.Fatalf("expected PHONE_SHORT warning, got %+v", issue)
	}

	value, _, issue = cleanField(field, "  (555)  123-4567 ", 4)
	if issue != nil {
		t.Fatalf("unexpected issue for long phone: %+v", issue)
	}
	if value != "(555) 123-4567" {
		t.Fatalf("expected collapsed whitespace, got %q", value)
	}
}

func TestCleanFieldDate(t *testing.T) {
	field := schema.Field{Column: "contact_last_updated", Kind: schema.KindDate}

	value, keep, issue := cleanField(field, "01/15/2024", 5)
	if issue != nil || !keep || value != "2024-01-15" {
		t.Fatalf("expected normalized date, got %v %v %v", value, keep, issue)
	}

	_, keep, issue = cleanField(field, "15/01/2024", 5)
	if keep {
		t.Fatalf("unparseable date should be dropped")
	}
	if issue == nil || issue.Code != domain.CodeDateParse {
		t.Fatalf("expected DATE_PARSE warning, got %+v", issue)
	}
}

func TestCleanFieldBool(t *testing.T) {
	field := schema.Field{Column: "open_for_business", Kind: schema.KindBool}

	value, keep, issue := cleanField(field, "Yes", 6)
	if issue != nil || !keep || value != true {
		t.Fatalf("expected boolean true, got %v %v %v", value, keep, issue)
	}

	_, keep, issue = cleanField(field, "possibly", 6)
	if keep {
		t.Fatalf("invalid boolean should be dropped")
	}
	if issue == nil || issue.Code != domain.CodeBooleanInvalid {
		t.Fatalf("expected BOOLEAN_INVALID warning, got %+v", issue)
	}
}

func TestNormalizeState(t *testing.T) {
	if got := NormalizeState("California"); got != "CA" {
		t.Fatalf("expected CA, got %s", got)
	}
	if got := NormalizeState("  new york "); got != "NY" {
		t.Fatalf("expected NY, got %s", got)
	}
	if got := NormalizeState("CA"); got != "CA" {
		t.Fatalf("expected passthrough for codes, got %s", got)
	}
	if got := NormalizeState("Ontario"); got != "Ontario" {
		t.Fatalf("expected passthrough for unknown values, got %s", got)
	}
}
