package inference

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
)

// inputHeader is the column layout the model is trained on.
var inputHeader = []string{"Game", "Main", "Extras", "Complete"}

// EncodeInput renders titles as the model's input table. Imputed fields are
// sent as 0 so the model only sees observed values.
func EncodeInput(titles []*domain.Title) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(inputHeader); err != nil {
		return nil, err
	}
	for _, t := range titles {
		record := []string{
			fmt.Sprintf("%s (%d)", strings.ReplaceAll(t.Name, ",", "-"), t.ID),
			observedValue(t.Main),
			observedValue(t.Extras),
			observedValue(t.Completionist),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func observedValue(f domain.TTB) string {
	if f.Imputed {
		return "0"
	}
	return strconv.Itoa(f.Value)
}

// ParseResult decodes the model's output: exactly want rows of three numbers
// in input order. Values are rounded half away from zero. A single leading
// header row is skipped when present.
func ParseResult(data []byte, want int) ([]domain.Times, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read result csv: %w", err)
		}
		rows = append(rows, rec)
	}

	if len(rows) == want+1 && len(rows) > 0 && !numericRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) != want {
		return nil, fmt.Errorf("result has %d rows, expected %d", len(rows), want)
	}

	out := make([]domain.Times, len(rows))
	for i, rec := range rows {
		if len(rec) != 3 {
			return nil, fmt.Errorf("row %d has %d fields, expected 3", i+1, len(rec))
		}
		var v [3]int
		for j, field := range rec {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i+1, j+1, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("row %d field %d: value %q is not finite", i+1, j+1, field)
			}
			v[j] = int(math.Round(f))
		}
		out[i] = domain.Times{Main: v[0], Extras: v[1], Completionist: v[2]}
	}
	return out, nil
}

func numericRow(rec []string) bool {
	for _, field := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return false
		}
	}
	return len(rec) > 0
}
