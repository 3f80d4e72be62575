// Package tabular reads CNOPS drug exports and writes mapping results as CSV.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pharmamap/backend/internal/domain"
)

// CNOPS export column headers
const (
	colCode       = "CODE"
	colName       = "NOM"
	colIngredient = "DCI1"
	colDosage     = "DOSAGE1"
	colDosageUnit = "UNITE_DOSAGE1"
	colDoseForm   = "FORME"
)

// resultHeaders is the output column order
var resultHeaders = []string{
	"CNOPS_CODE",
	"ORIGINAL_NAME",
	"DCI1",
	"RXCUI",
	"RXNORM_NAME",
	"CONFIDENCE_SCORE",
	"MAPPING_METHOD",
	"VALIDATION_NOTES",
	"ALTERNATIVES_COUNT",
}

// ReadRecords parses a CNOPS CSV export. The header row is required; column
// order is free. Only CODE and NOM must be present, the other columns
// default to empty.
func ReadRecords(r io.Reader) ([]domain.DrugRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colCode, colName} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %s", required)
		}
	}

	var records []domain.DrugRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(records)+2, err)
		}

		records = append(records, domain.DrugRecord{
			Code:       field(row, index, colCode),
			Name:       field(row, index, colName),
			Ingredient: field(row, index, colIngredient),
			Dosage:     field(row, index, colDosage),
			DosageUnit: field(row, index, colDosageUnit),
			DoseForm:   field(row, index, colDoseForm),
		})
	}

	return records, nil
}

func field(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// WriteResults writes mapping results as CSV with a fixed header row.
// Validation notes are joined with "; " into a single column.
func WriteResults(w io.Writer, results []domain.MappingResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(resultHeaders); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, result := range results {
		row := []string{
			result.SourceCode,
			result.SourceName,
			result.SourceIngredient,
			result.Rxcui,
			result.RxnormName,
			strconv.FormatFloat(result.ConfidenceScore, 'f', 2, 64),
			result.Method,
			strings.Join(result.Notes, "; "),
			strconv.Itoa(len(result.Alternatives)),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing result %s: %w", result.SourceCode, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
