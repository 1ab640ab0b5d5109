package sink_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/internal/dataset"
	"github.com/kiranshivaraju/reviewlabel/internal/sink"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

func mixedResults() []models.ClassificationResult {
	ok := models.NewSuccess(models.ReviewRecord{Index: 1, BusinessName: "Cafe", Rating: models.IntPtr(5), Text: "Great"},
		models.LabeledOutput{Label: models.LabelValid, Reason: "first-hand"}, 1)
	bad := models.NewFailure(models.ReviewRecord{Index: 0, BusinessName: "Diner", Text: "Call 555"},
		errors.New("provider unavailable"), 3)
	return []models.ClassificationResult{ok, bad}
}

func TestCSVWriter_UnionSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sink.NewCSVWriter(&buf).WriteResults(mixedResults()))

	tbl, err := dataset.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sink.Columns, tbl.Header)
	require.Equal(t, 2, tbl.Len())

	// Rows come out in input order.
	fail, ok := tbl.Rows[0], tbl.Rows[1]
	assert.Equal(t, "0", fail["index"])
	assert.Equal(t, "Diner", fail["business_name"])
	assert.Equal(t, "", fail["rating"])
	assert.Equal(t, "", fail["predicted_label"])
	assert.Equal(t, "provider unavailable", fail["error"])

	assert.Equal(t, "5", ok["rating"])
	assert.Equal(t, "Valid", ok["predicted_label"])
	assert.Equal(t, "first-hand", ok["prediction_reason"])
	assert.Equal(t, "", ok["error"])
}

func TestCSVWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sink.NewCSVWriter(&buf).WriteResults(nil))
	assert.Equal(t, "index,business_name,rating,text,predicted_label,prediction_reason,error\n", buf.String())
}

func TestSplitCSV(t *testing.T) {
	dir := t.TempDir()
	s := sink.SplitCSV{
		SuccessPath: filepath.Join(dir, "labelled.csv"),
		FailurePath: filepath.Join(dir, "failed.csv"),
	}
	require.NoError(t, s.WriteResults(mixedResults()))

	succ, err := dataset.ReadCSVFile(s.SuccessPath)
	require.NoError(t, err)
	assert.Equal(t, sink.SuccessColumns, succ.Header)
	require.Equal(t, 1, succ.Len())
	assert.Equal(t, "Cafe", succ.Rows[0]["business_name"])

	fail, err := dataset.ReadCSVFile(s.FailurePath)
	require.NoError(t, err)
	assert.Equal(t, sink.FailureColumns, fail.Header)
	require.Equal(t, 1, fail.Len())
	assert.Equal(t, "provider unavailable", fail.Rows[0]["error"])
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sink.NewJSONWriter(&buf).WriteResults(mixedResults()))

	var got []models.ClassificationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, models.ResultStatusFailure, got[0].Status)
	assert.Equal(t, models.LabelValid, got[1].PredictedLabel)
}

func TestFailuresPath(t *testing.T) {
	assert.Equal(t, "out/labelled_failures.csv", sink.FailuresPath("out/labelled.csv"))
	assert.Equal(t, "labelled_failures", sink.FailuresPath("labelled"))
}

func TestWriteFile_Formats(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "r.csv")
	require.NoError(t, sink.WriteFile(csvPath, config.FormatCSV, "", mixedResults()))
	tbl, err := sink.ReadResultsCSV(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	jsonPath := filepath.Join(dir, "r.json")
	require.NoError(t, sink.WriteFile(jsonPath, config.FormatJSON, "", mixedResults()))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	splitPath := filepath.Join(dir, "s.csv")
	require.NoError(t, sink.WriteFile(splitPath, config.FormatSplitCSV, "", mixedResults()))
	_, err = os.Stat(filepath.Join(dir, "s_failures.csv"))
	assert.NoError(t, err)

	err = sink.WriteFile(filepath.Join(dir, "x"), "parquet", "", nil)
	assert.Error(t, err)
}

func TestReadResultsCSV_MissingBusinessName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("text\nhello\n"), 0o644))

	_, err := sink.ReadResultsCSV(path)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}
