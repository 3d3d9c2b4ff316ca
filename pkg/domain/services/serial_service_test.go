package services

import (
	"reflect"
	"testing"
)

func TestSerialSequencer_CompareSerials(t *testing.T) {
	s := NewSerialSequencer()

	tests := []struct {
		name     string
		serial1  string
		serial2  string
		expected int
	}{
		{"equal_serials", "2025-001", "2025-001", 0},
		{"first_less_than_second", "2025-001", "2025-002", -1},
		{"numeric_ordering", "2025-009", "2025-010", -1},
		{"wide_sequence", "2025-1000", "2025-999", 1},
		{"year_dominates", "2024-050", "2025-001", -1},
		{"invalid_format_fallback", "INVALID", "2025-001", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.CompareSerials(tt.serial1, tt.serial2)
			if result != tt.expected {
				t.Errorf("CompareSerials(%s, %s) = %d, want %d",
					tt.serial1, tt.serial2, result, tt.expected)
			}
		})
	}
}

func TestSerialSequencer_Next(t *testing.T) {
	s := NewSerialSequencer()

	tests := []struct {
		name       string
		fiscalYear int
		existing   []string
		expected   string
	}{
		{"first_of_year", 2025, nil, "2025-001"},
		{"after_highest", 2025, []string{"2025-003", "2025-010", "2025-002"}, "2025-011"},
		{"ignores_other_years", 2025, []string{"2024-040"}, "2025-001"},
		{"ignores_garbage", 2025, []string{"legacy", "2025-004"}, "2025-005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Next(tt.fiscalYear, tt.existing); got != tt.expected {
				t.Errorf("Next(%d, %v) = %s, want %s", tt.fiscalYear, tt.existing, got, tt.expected)
			}
		})
	}
}

func TestSerialSequencer_Sort(t *testing.T) {
	s := NewSerialSequencer()
	serials := []string{"2025-010", "2024-099", "2025-002"}
	s.Sort(serials)

	expected := []string{"2024-099", "2025-002", "2025-010"}
	if !reflect.DeepEqual(serials, expected) {
		t.Errorf("Sort() = %v, want %v", serials, expected)
	}
}
