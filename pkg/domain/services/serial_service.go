package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// SerialSequencer assigns and orders blend serial numbers. Serials have the
// form <fiscal year>-<sequence>, for example 2025-007.
type SerialSequencer struct {
	serialPattern *regexp.Regexp
}

// NewSerialSequencer creates a new serial sequencer with the default pattern
func NewSerialSequencer() *SerialSequencer {
	pattern := regexp.MustCompile(`^(\d{4})-(\d+)$`)
	return &SerialSequencer{
		serialPattern: pattern,
	}
}

// Format renders the serial for a fiscal year and sequence number
func (s *SerialSequencer) Format(fiscalYear, seq int) string {
	return fmt.Sprintf("%d-%03d", fiscalYear, seq)
}

// Next returns the serial following the highest existing serial of the fiscal
// year. Serials from other years and unparseable serials are ignored.
func (s *SerialSequencer) Next(fiscalYear int, existing []string) string {
	highest := 0
	for _, serial := range existing {
		year, seq, err := s.parseSerial(serial)
		if err != nil || year != fiscalYear {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return s.Format(fiscalYear, highest+1)
}

// CompareSerials compares two serials by year then sequence
// Returns: -1 if serial1 < serial2, 0 if equal, 1 if serial1 > serial2
func (s *SerialSequencer) CompareSerials(serial1, serial2 string) int {
	if serial1 == serial2 {
		return 0
	}

	year1, seq1, err1 := s.parseSerial(serial1)
	year2, seq2, err2 := s.parseSerial(serial2)

	// Unparseable serials sort lexically
	if err1 != nil || err2 != nil {
		switch {
		case serial1 < serial2:
			return -1
		case serial1 > serial2:
			return 1
		}
		return 0
	}

	switch {
	case year1 != year2:
		if year1 < year2 {
			return -1
		}
		return 1
	case seq1 < seq2:
		return -1
	case seq1 > seq2:
		return 1
	}
	return 0
}

// Sort orders serials ascending in place
func (s *SerialSequencer) Sort(serials []string) {
	sort.SliceStable(serials, func(i, j int) bool {
		return s.CompareSerials(serials[i], serials[j]) < 0
	})
}

// parseSerial extracts the fiscal year and sequence from a serial
func (s *SerialSequencer) parseSerial(serial string) (int, int, error) {
	matches := s.serialPattern.FindStringSubmatch(serial)
	if len(matches) != 3 {
		return 0, 0, fmt.Errorf("invalid serial format: %s", serial)
	}

	year, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in serial %s: %v", serial, err)
	}
	seq, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sequence in serial %s: %v", serial, err)
	}

	return year, seq, nil
}
