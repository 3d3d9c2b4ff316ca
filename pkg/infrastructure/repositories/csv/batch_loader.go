package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/vsinha/blend/pkg/domain/entities"
)

// BatchHeader is the column layout of a batch pool file
var BatchHeader = []string{
	"id", "batch_number", "fiscal_year", "is_outsource",
	"bloom", "viscosity", "percentage", "ph", "conductivity", "moisture", "h2o2", "so2",
	"color", "clarity", "odour", "is_used", "is_on_hold",
}

// Loader handles loading batch pools from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadBatches loads batches from a CSV file
func (l *Loader) LoadBatches(filename string) ([]*entities.Batch, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open batches file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadBatches(file)
}

// ReadBatches parses batches from r. Empty quality cells mean the attribute
// was not measured.
func (l *Loader) ReadBatches(r io.Reader) ([]*entities.Batch, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read batches CSV: %w", err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("batches CSV must have a header row")
	}

	header := records[0]
	if !validateHeader(header, BatchHeader) {
		return nil, fmt.Errorf("batches CSV header mismatch. Expected: %v, Got: %v", BatchHeader, header)
	}

	batches := make([]*entities.Batch, 0, len(records)-1)
	seen := make(map[entities.BatchID]int)
	for i, record := range records[1:] {
		row := i + 2
		if len(record) != len(BatchHeader) {
			return nil, fmt.Errorf("batches CSV row %d: expected %d columns, got %d", row, len(BatchHeader), len(record))
		}

		batch, err := parseBatch(record)
		if err != nil {
			return nil, fmt.Errorf("batches CSV row %d: %w", row, err)
		}
		if first, dup := seen[batch.ID]; dup {
			return nil, fmt.Errorf("batches CSV row %d: batch id %s already defined on row %d", row, batch.ID, first)
		}
		seen[batch.ID] = row

		batches = append(batches, batch)
	}

	return batches, nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseBatch(record []string) (*entities.Batch, error) {
	batchNumber, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid batch_number: %s", record[1])
	}

	fiscalYear, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid fiscal_year: %s", record[2])
	}

	isOutsource, err := parseBool("is_outsource", record[3])
	if err != nil {
		return nil, err
	}

	var quality entities.QualityAttributes
	numeric := []struct {
		column string
		value  string
		dst    **float64
	}{
		{"bloom", record[4], &quality.Bloom},
		{"viscosity", record[5], &quality.Viscosity},
		{"percentage", record[6], &quality.Percentage},
		{"ph", record[7], &quality.PH},
		{"conductivity", record[8], &quality.Conductivity},
		{"moisture", record[9], &quality.Moisture},
		{"h2o2", record[10], &quality.H2O2},
		{"so2", record[11], &quality.SO2},
	}
	for _, n := range numeric {
		v, err := parseOptionalFloat(n.column, n.value)
		if err != nil {
			return nil, err
		}
		*n.dst = v
	}
	quality.Color = strings.TrimSpace(record[12])
	quality.Clarity = strings.TrimSpace(record[13])
	quality.Odour = strings.TrimSpace(record[14])

	batch, err := entities.NewBatch(entities.BatchID(strings.TrimSpace(record[0])), batchNumber, fiscalYear, isOutsource, quality)
	if err != nil {
		return nil, err
	}

	if batch.IsUsed, err = parseBool("is_used", record[15]); err != nil {
		return nil, err
	}
	if batch.IsOnHold, err = parseBool("is_on_hold", record[16]); err != nil {
		return nil, err
	}

	return batch, nil
}

func parseOptionalFloat(column, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", column, s)
	}
	return &v, nil
}

func parseBool(column, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	default:
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", column, s)
	}
}
