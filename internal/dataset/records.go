package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// Columns names the table columns that feed a ReviewRecord. An empty field
// is resolved against the candidates in DefaultCandidates.
type Columns struct {
	BusinessName string
	Rating       string
	Text         string
	Description  string
	Category     string
}

// DefaultCandidates lists, per field, the column names tried in order when a
// Columns field is empty. The _y names are what JoinOnPlaceID produces.
var DefaultCandidates = map[string][]string{
	"business_name": {"business_name", "name_y", "name"},
	"rating":        {"rating", "rating_x"},
	"text":          {"text", "review_text"},
	"description":   {"description", "description_y"},
	"category":      {"category", "category_y"},
}

// Resolve fills empty fields from DefaultCandidates and checks that the
// required columns (business name, rating, text) exist in t.
func (c Columns) Resolve(t *Table) (Columns, error) {
	pick := func(current, field string, required bool) (string, error) {
		if current != "" {
			if !t.Has(current) && required {
				return "", fmt.Errorf("%w: %s", ErrMissingColumn, current)
			}
			return current, nil
		}
		for _, cand := range DefaultCandidates[field] {
			if t.Has(cand) {
				return cand, nil
			}
		}
		if required {
			return "", fmt.Errorf("%w: %s", ErrMissingColumn, field)
		}
		return "", nil
	}

	var err error
	if c.BusinessName, err = pick(c.BusinessName, "business_name", true); err != nil {
		return c, err
	}
	if c.Rating, err = pick(c.Rating, "rating", true); err != nil {
		return c, err
	}
	if c.Text, err = pick(c.Text, "text", true); err != nil {
		return c, err
	}
	c.Description, _ = pick(c.Description, "description", false)
	c.Category, _ = pick(c.Category, "category", false)
	return c, nil
}

// ToRecords converts every row of t into a ReviewRecord. No row is dropped;
// Index is the row's position in t.
func ToRecords(t *Table, cols Columns) ([]models.ReviewRecord, error) {
	resolved, err := cols.Resolve(t)
	if err != nil {
		return nil, err
	}
	records := make([]models.ReviewRecord, len(t.Rows))
	for i, row := range t.Rows {
		records[i] = RowToRecord(i, row, resolved)
	}
	return records, nil
}

// RowToRecord adapts one row. Missing description or category become the
// placeholder strings; an unparseable rating becomes nil.
func RowToRecord(index int, row map[string]string, cols Columns) models.ReviewRecord {
	rec := models.ReviewRecord{
		Index:        index,
		BusinessName: row[cols.BusinessName],
		Rating:       ParseRating(row[cols.Rating]),
		Text:         cleanCell(row[cols.Text]),
		Description:  models.NoDescription,
		Category:     models.NoCategory,
	}
	if cols.Description != "" && !isMissing(row[cols.Description]) {
		rec.Description = row[cols.Description]
	}
	if cols.Category != "" && !isMissing(row[cols.Category]) {
		rec.Category = row[cols.Category]
	}
	return rec
}

// ParseRating accepts integral values such as "4" or "4.0" and returns nil for
// anything else, including blanks and fractional ratings.
func ParseRating(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

// isMissing treats empty cells and pandas' textual nulls as missing.
func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "nan", "NaN", "None", "null":
		return true
	}
	return false
}

func cleanCell(s string) string {
	if isMissing(s) {
		return ""
	}
	return s
}
