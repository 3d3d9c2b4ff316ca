package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const batchHeader = "id,batch_number,fiscal_year,is_outsource,bloom,viscosity,percentage,ph,conductivity,moisture,h2o2,so2,color,clarity,odour,is_used,is_on_hold\n"

func writePool(t *testing.T, blooms []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(batchHeader)
	for i, bloom := range blooms {
		fmt.Fprintf(&b, "B-%d,%d,2025,false,%g,,,,,,,,,,,false,false\n", i+1, i+1, bloom)
	}
	// An older fiscal year that must not be blended
	b.WriteString("B-99,99,2024,false,250,,,,,,,,,,,false,false\n")

	path := filepath.Join(t.TempDir(), "batches.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("Failed to write pool: %v", err)
	}
	return path
}

func TestOptimizeCommand_TargetRangeJSON(t *testing.T) {
	path := writePool(t, []float64{230, 245, 250, 255, 270})

	var buf bytes.Buffer
	cmd := NewOptimizeCommand(Config{BatchesFile: path, Min: 240, Max: 260, Bags: 30, Format: "json"})
	if err := cmd.Execute(context.Background(), &buf); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var result struct {
		SelectedBatches []struct {
			ID         string `json:"id"`
			FiscalYear int    `json:"fiscalYear"`
		} `json:"selectedBatches"`
		TotalBags int    `json:"totalBags"`
		Warning   string `json:"warning"`
	}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, buf.String())
	}
	if result.TotalBags != 30 {
		t.Errorf("Expected 30 bags, got %d", result.TotalBags)
	}
	if result.Warning != "" {
		t.Errorf("Expected no warning, got %q", result.Warning)
	}
	for _, sb := range result.SelectedBatches {
		if sb.FiscalYear != 2025 {
			t.Errorf("Expected only fiscal year 2025 batches, got %s from %d", sb.ID, sb.FiscalYear)
		}
	}
}

func TestOptimizeCommand_PinnedText(t *testing.T) {
	path := writePool(t, []float64{230, 245, 250})

	var buf bytes.Buffer
	cmd := NewOptimizeCommand(Config{BatchesFile: path, Min: 240, Max: 260, Bags: 20, Pins: "B-1", Format: "text"})
	if err := cmd.Execute(context.Background(), &buf); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(buf.String(), "B-1") {
		t.Errorf("Expected pinned batch B-1 in output, got:\n%s", buf.String())
	}
}

func TestOptimizeCommand_InvalidInputs(t *testing.T) {
	path := writePool(t, []float64{250})

	tests := []struct {
		name   string
		config Config
	}{
		{"missing file", Config{Min: 240, Max: 260, Bags: 10}},
		{"missing bags", Config{BatchesFile: path, Min: 240, Max: 260}},
		{"bad format", Config{BatchesFile: path, Min: 240, Max: 260, Bags: 10, Format: "xml"}},
		{"bad mode", Config{BatchesFile: path, Min: 240, Max: 260, Bags: 10, Mode: "closest"}},
		{"inverted range", Config{BatchesFile: path, Min: 260, Max: 240, Bags: 10}},
		{"bags not multiple", Config{BatchesFile: path, Min: 240, Max: 260, Bags: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewOptimizeCommand(tt.config).Execute(context.Background(), &bytes.Buffer{}); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestOptimizeCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	if err := NewOptimizeCommand(Config{Help: true}).Execute(context.Background(), &buf); err != nil {
		t.Fatalf("Help failed: %v", err)
	}
	if !strings.Contains(buf.String(), "USAGE") {
		t.Errorf("Expected usage text, got %q", buf.String())
	}
}

func TestParsePins(t *testing.T) {
	pins := parsePins(" B-1, ,B-2,")
	if len(pins) != 2 || pins[0] != "B-1" || pins[1] != "B-2" {
		t.Errorf("Expected [B-1 B-2], got %v", pins)
	}
	if len(parsePins("")) != 0 {
		t.Error("Expected no pins for empty input")
	}
}
