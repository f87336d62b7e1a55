package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// csvHeader is the fixed export column order. The SPA's existing exports
// use this exact shape, so it must not change.
var csvHeader = []string{"Date", "Title", "Category", "Amount", "Notes"}

// WriteCSV writes records in the user-facing export format: a header row
// followed by one row per record, every field wrapped in double quotes,
// dates as YYYY-MM-DD and the category rendered as its display label.
//
// encoding/csv quotes only when needed; the export contract wraps every
// field unconditionally, so rows are written by hand.
func WriteCSV(w io.Writer, records []domain.Expense) error {
	if err := writeRow(w, csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format("2006-01-02"),
			r.Title,
			r.Category.Info().Label,
			strconv.FormatFloat(r.Amount, 'f', -1, 64),
			r.Notes,
		}
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
