package report_test

import (
	"strings"
	"testing"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/report"
)

func TestWriteCSV_Format(t *testing.T) {
	records := []domain.Expense{
		{Title: "Lunch", Amount: 12.5, Category: domain.CategoryFood, Date: day("2024-02-15"), Notes: "team"},
		{Title: "Bus pass", Amount: 20, Category: domain.CategoryTransport, Date: day("2024-02-16")},
	}

	var b strings.Builder
	if err := report.WriteCSV(&b, records); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != `"Date","Title","Category","Amount","Notes"` {
		t.Errorf("header wrong: %s", lines[0])
	}
	if lines[1] != `"2024-02-15","Lunch","Food & Dining","12.5","team"` {
		t.Errorf("row 1 wrong: %s", lines[1])
	}
	if lines[2] != `"2024-02-16","Bus pass","Transportation","20",""` {
		t.Errorf("row 2 wrong: %s", lines[2])
	}
}

func TestWriteCSV_EscapesQuotes(t *testing.T) {
	records := []domain.Expense{
		{Title: `The "best" coffee`, Amount: 4, Category: domain.CategoryFood, Date: day("2024-02-15")},
	}

	var b strings.Builder
	if err := report.WriteCSV(&b, records); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(b.String(), `"The ""best"" coffee"`) {
		t.Errorf("embedded quotes should be doubled, got %s", b.String())
	}
}

func TestWriteCSV_EmptyRecords(t *testing.T) {
	var b strings.Builder
	if err := report.WriteCSV(&b, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := b.String(); got != "\"Date\",\"Title\",\"Category\",\"Amount\",\"Notes\"\n" {
		t.Errorf("empty export should be header only, got %q", got)
	}
}
