package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/newscope/newscope/internal/api/response"
	"github.com/newscope/newscope/internal/evaluate"
)

const maxUploadBytes = 5 << 20

// NewBatchFromFileHandler returns the http.HandlerFunc for
// POST /predict/batch/from-file. It accepts a multipart CSV upload with
// a header row containing at least a "text" column, evaluates every
// row, and writes a result CSV under outputDir.
func NewBatchFromFileHandler(eval Evaluator, outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"multipart field 'file' is required", nil)
			return
		}
		defer file.Close()

		items, err := parseBatchCSV(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
		if len(items) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"file contains no data rows", nil)
			return
		}
		if len(items) > evaluate.MaxItems {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("file must contain at most %d rows", evaluate.MaxItems), nil)
			return
		}
		for i, item := range items {
			if msg := validateText(item.Text); msg != "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					fmt.Sprintf("row %d: %s", i+1, msg), nil)
				return
			}
		}

		report := eval.Run(r.Context(), items, true)

		outName := fmt.Sprintf("batch_results_%s.csv", uuid.NewString())
		if err := writeResultCSV(filepath.Join(outputDir, outName), report); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to write result file", nil)
			return
		}

		response.JSON(w, struct {
			evaluate.Report
			OutputFile string `json:"output_file"`
		}{Report: report, OutputFile: outName})
	}
}

// parseBatchCSV reads rows into items. Recognized header columns are
// "id", "text" and "ground_truth" ("label" is accepted as an alias).
func parseBatchCSV(r io.Reader) ([]evaluate.Item, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing CSV header")
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	textCol, ok := cols["text"]
	if !ok {
		return nil, fmt.Errorf("CSV header must contain a 'text' column")
	}
	idCol, hasID := cols["id"]
	truthCol, hasTruth := cols["ground_truth"]
	if !hasTruth {
		truthCol, hasTruth = cols["label"]
	}

	var items []evaluate.Item
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed CSV at row %d", row)
		}
		if textCol >= len(record) {
			return nil, fmt.Errorf("row %d has no text column", row)
		}

		item := evaluate.Item{Text: record[textCol]}
		if hasID && idCol < len(record) {
			item.ID = record[idCol]
		}
		if item.ID == "" {
			item.ID = strconv.Itoa(row)
		}
		if hasTruth && truthCol < len(record) {
			item.GroundTruth = strings.TrimSpace(record[truthCol])
		}
		items = append(items, item)
	}
	return items, nil
}

func writeResultCSV(path string, report evaluate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "text", "ground_truth", "predicted_topic", "confidence", "is_correct", "error",
	}); err != nil {
		return err
	}

	for _, res := range report.Results {
		correct := ""
		if res.IsCorrect != nil {
			correct = strconv.FormatBool(*res.IsCorrect)
		}
		if err := w.Write([]string{
			res.ID,
			res.Text,
			res.GroundTruth,
			res.PredictedTopic,
			strconv.FormatFloat(res.Confidence, 'f', 4, 64),
			correct,
			res.Error,
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
