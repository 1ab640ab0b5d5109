// Package sink writes classification results to files.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/internal/dataset"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// Columns is the union schema shared by success and failure rows. Cells a
// variant does not carry are written empty.
var Columns = []string{"index", "business_name", "rating", "text", "predicted_label", "prediction_reason", "error"}

// SuccessColumns and FailureColumns are the per-variant schemas used by SplitCSV.
var (
	SuccessColumns = []string{"business_name", "text", "predicted_label", "prediction_reason"}
	FailureColumns = []string{"index", "business_name", "rating", "text", "error"}
)

// Writer persists a complete result set.
type Writer interface {
	WriteResults(results []models.ClassificationResult) error
}

// Table converts results into a table with the given header, ordered by input index.
func Table(results []models.ClassificationResult, header []string) *dataset.Table {
	t := dataset.NewTable(header...)
	for _, r := range byIndex(results) {
		t.Append(row(r))
	}
	return t
}

func row(r models.ClassificationResult) map[string]string {
	rating := ""
	if r.Rating != nil {
		rating = strconv.Itoa(*r.Rating)
	}
	return map[string]string{
		"index":             strconv.Itoa(r.Index),
		"business_name":     r.BusinessName,
		"rating":            rating,
		"text":              r.Text,
		"predicted_label":   r.PredictedLabel,
		"prediction_reason": r.PredictionReason,
		"error":             r.Error,
	}
}

func byIndex(results []models.ClassificationResult) []models.ClassificationResult {
	sorted := make([]models.ClassificationResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	return sorted
}

// CSVWriter writes every result as one union-schema CSV.
type CSVWriter struct {
	w io.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

func (c *CSVWriter) WriteResults(results []models.ClassificationResult) error {
	if err := dataset.WriteCSV(c.w, Table(results, Columns)); err != nil {
		return fmt.Errorf("writing results csv: %w", err)
	}
	return nil
}

// SplitCSV writes successes and failures to separate files, each with its own
// schema. The failures file is written even when empty.
type SplitCSV struct {
	SuccessPath string
	FailurePath string
}

func (s SplitCSV) WriteResults(results []models.ClassificationResult) error {
	var ok, failed []models.ClassificationResult
	for _, r := range results {
		if r.Succeeded() {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}
	if err := dataset.WriteCSVFile(s.SuccessPath, Table(ok, SuccessColumns)); err != nil {
		return fmt.Errorf("writing successes: %w", err)
	}
	if err := dataset.WriteCSVFile(s.FailurePath, Table(failed, FailureColumns)); err != nil {
		return fmt.Errorf("writing failures: %w", err)
	}
	return nil
}

// JSONWriter writes results as a single indented JSON array.
type JSONWriter struct {
	w io.Writer
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (j *JSONWriter) WriteResults(results []models.ClassificationResult) error {
	enc := json.NewEncoder(j.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(byIndex(results)); err != nil {
		return fmt.Errorf("writing results json: %w", err)
	}
	return nil
}

// FailuresPath derives "<name>_failures<ext>" from a success output path.
func FailuresPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_failures" + ext
}

// WriteFile writes results to path in the given format. For split-csv an empty
// failuresPath is derived with FailuresPath.
func WriteFile(path, format, failuresPath string, results []models.ClassificationResult) error {
	if format == config.FormatSplitCSV {
		if failuresPath == "" {
			failuresPath = FailuresPath(path)
		}
		return SplitCSV{SuccessPath: path, FailurePath: failuresPath}.WriteResults(results)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output %s: %w", path, err)
	}

	var w Writer
	switch format {
	case config.FormatJSON:
		w = NewJSONWriter(f)
	case config.FormatCSV, "":
		w = NewCSVWriter(f)
	default:
		f.Close()
		return fmt.Errorf("unknown output format %q", format)
	}
	if err := w.WriteResults(results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadResultsCSV reads a labelled output file back as a table.
func ReadResultsCSV(path string) (*dataset.Table, error) {
	t, err := dataset.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	if !t.Has("business_name") {
		return nil, fmt.Errorf("%w: business_name", dataset.ErrMissingColumn)
	}
	return t, nil
}
