package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
	"github.com/dmalakhov/resume-ranker/internal/scorer"
)

// Column is one flattened (tier, criterion) pair of the report.
type Column struct {
	Tier criteria.Tier
	Name string
}

// Label returns the column header, e.g. "Must have: 2 yrs Python".
func (c Column) Label() string {
	return fmt.Sprintf("%s: %s", c.Tier.Label(), c.Name)
}

// Flatten derives the column set from a criteria set: tiers in fixed order
// Must, Good, Nice, criteria in insertion order within each tier. Flattening
// the same set twice yields the same columns.
func Flatten(set *criteria.Set) []Column {
	columns := make([]Column, 0, set.Len())
	for _, tier := range criteria.Tiers {
		for _, criterion := range set.Tier(tier) {
			columns = append(columns, Column{Tier: tier, Name: criterion.Name})
		}
	}
	return columns
}

// Table is the assembled scoring report: a header derived once from the
// criteria set and one row per scored candidate, in append order. It is
// immutable after assembly and streamed out rather than persisted.
type Table struct {
	columns []Column
	rows    []tableRow
}

type tableRow struct {
	candidate string
	values    []float64
	total     float64
}

// NewTable builds an empty table with columns derived from the criteria set.
func NewTable(set *criteria.Set) *Table {
	return &Table{columns: Flatten(set)}
}

// Header returns the full column labels including the fixed first and last
// columns.
func (t *Table) Header() []string {
	header := make([]string, 0, len(t.columns)+2)
	header = append(header, "Candidate Name")
	for _, column := range t.columns {
		header = append(header, column.Label())
	}
	header = append(header, "Total Score")
	return header
}

// Append adds one candidate's row. A criterion missing from the score row is
// written as 0 rather than failing: a model omission must not abort the
// batch. The reported total is carried verbatim.
func (t *Table) Append(row *scorer.Row) {
	values := make([]float64, len(t.columns))
	for i, column := range t.columns {
		if score, ok := row.Score(column.Tier, column.Name); ok {
			values[i] = score
		}
	}
	t.rows = append(t.rows, tableRow{
		candidate: row.CandidateName,
		values:    values,
		total:     row.TotalScore,
	})
}

// Len returns the number of candidate rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// WriteCSV streams the table as a CSV document with standard quoting.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, 0, len(t.columns)+2)
	for _, row := range t.rows {
		record = record[:0]
		record = append(record, row.candidate)
		for _, value := range row.values {
			record = append(record, formatScore(value))
		}
		record = append(record, formatScore(row.total))

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row for %q: %w", row.candidate, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatScore renders a score without trailing zeros, so integral scores
// appear as plain integers.
func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
