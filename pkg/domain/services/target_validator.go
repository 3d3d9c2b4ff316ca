package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/vsinha/blend/pkg/domain/entities"
)

// TargetValidator checks caller input before an optimization or commit runs
type TargetValidator struct{}

// NewTargetValidator creates a new target validator
func NewTargetValidator() *TargetValidator {
	return &TargetValidator{}
}

// ValidationResult contains the results of target validation
type ValidationResult struct {
	Errors []string
}

// Valid reports whether no errors were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid result, otherwise an error wrapping ErrInvalidTarget
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %s", entities.ErrInvalidTarget, strings.Join(r.Errors, "; "))
}

func (r *ValidationResult) addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidateTarget performs the caller-side checks on a target specification
func (v *TargetValidator) ValidateTarget(spec entities.TargetSpecification) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}

	if !isFinite(spec.BloomMin) || !isFinite(spec.BloomMax) {
		result.addf("targetBloomMin and targetBloomMax must be numbers")
	} else if spec.BloomMin >= spec.BloomMax {
		result.addf("targetBloomMin (%g) must be less than targetBloomMax (%g)", spec.BloomMin, spec.BloomMax)
	}

	if spec.MeanBloom != nil {
		mean := *spec.MeanBloom
		if !isFinite(mean) {
			result.addf("targetMeanBloom must be a number")
		} else if mean < spec.BloomMin || mean > spec.BloomMax {
			result.addf("targetMeanBloom (%g) must lie within %g-%g", mean, spec.BloomMin, spec.BloomMax)
		}
	}

	if spec.TargetBags <= 0 {
		result.addf("targetBags must be positive, got %d", spec.TargetBags)
	} else if spec.TargetBags%entities.BagsPerBatch != 0 {
		result.addf("targetBags must be a multiple of %d, got %d", entities.BagsPerBatch, spec.TargetBags)
	}

	if spec.FiscalYear <= 0 {
		result.addf("fiscalYear must be positive, got %d", spec.FiscalYear)
	}

	v.validateAdditionalTargets(spec.AdditionalTargets, result)

	return result
}

// ValidateLotNumber checks a lot number offered for commit
func (v *TargetValidator) ValidateLotNumber(lotNumber string) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}
	if strings.TrimSpace(lotNumber) == "" {
		result.addf("lotNumber is required")
	}
	return result
}

// validateAdditionalTargets checks the attribute filters, including disabled ones
func (v *TargetValidator) validateAdditionalTargets(targets []entities.AttributeTarget, result *ValidationResult) {
	seen := make(map[entities.Attribute]bool)

	for _, target := range targets {
		if !target.Attribute.IsKnown() || target.Attribute == entities.AttrBloom {
			result.addf("unsupported additional target %q", target.Attribute)
			continue
		}
		if seen[target.Attribute] {
			result.addf("additional target %q given more than once", target.Attribute)
			continue
		}
		seen[target.Attribute] = true

		switch target.Kind {
		case entities.NumericRange:
			if target.Attribute.IsCategorical() {
				result.addf("%s is categorical and takes a value, not a range", target.Attribute)
			} else if target.Enabled && target.Min > target.Max {
				result.addf("%s min (%g) exceeds max (%g)", target.Attribute, target.Min, target.Max)
			}
		case entities.CategoricalMatch:
			if !target.Attribute.IsCategorical() {
				result.addf("%s is numeric and takes a range, not a value", target.Attribute)
			} else if target.Enabled && strings.TrimSpace(target.Value) == "" {
				result.addf("%s requires a value", target.Attribute)
			}
		default:
			result.addf("%s has an unknown target kind", target.Attribute)
		}
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
