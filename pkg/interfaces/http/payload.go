package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/entities"
)

type attributeTargetPayload struct {
	Attribute string  `json:"attribute"`
	Enabled   *bool   `json:"enabled,omitempty"`
	Min       float64 `json:"min,omitempty"`
	Max       float64 `json:"max,omitempty"`
	Value     string  `json:"value,omitempty"`
}

// targetPayload carries the target fields shared by optimize and save requests
type targetPayload struct {
	TargetBloomMin      *float64                 `json:"targetBloomMin"`
	TargetBloomMax      *float64                 `json:"targetBloomMax"`
	TargetMeanBloom     *float64                 `json:"targetMeanBloom,omitempty"`
	BloomSelectionMode  string                   `json:"bloomSelectionMode"`
	TargetBags          int                      `json:"targetBags"`
	IncludeOutsource    bool                     `json:"includeOutsourceBatches"`
	OnlyOutsource       bool                     `json:"onlyOutsourceBatches"`
	FiscalYear          int                      `json:"fiscalYear"`
	AdditionalTargets   []attributeTargetPayload `json:"additionalTargets,omitempty"`
	PreSelectedBatchIDs []string                 `json:"preSelectedBatchIds,omitempty"`
}

type batchRef struct {
	ID string `json:"id"`
}

type saveRequest struct {
	targetPayload
	LotNumber       string     `json:"lotNumber"`
	Mesh            string     `json:"mesh"`
	Notes           string     `json:"notes"`
	SelectedBatches []batchRef `json:"selectedBatches"`
}

type holdRequest struct {
	OnHold *bool `json:"onHold"`
}

// toSpec converts the payload; it fails only on fields that cannot be
// represented, the remaining checks belong to the target validator
func (p targetPayload) toSpec() (entities.TargetSpecification, error) {
	if p.TargetBloomMin == nil || p.TargetBloomMax == nil {
		return entities.TargetSpecification{}, fmt.Errorf("targetBloomMin and targetBloomMax are required")
	}
	mode, err := entities.ParseSelectionMode(p.BloomSelectionMode)
	if err != nil {
		return entities.TargetSpecification{}, err
	}

	spec := entities.TargetSpecification{
		BloomMin:         *p.TargetBloomMin,
		BloomMax:         *p.TargetBloomMax,
		MeanBloom:        p.TargetMeanBloom,
		Mode:             mode,
		TargetBags:       p.TargetBags,
		IncludeOutsource: p.IncludeOutsource,
		OnlyOutsource:    p.OnlyOutsource,
		FiscalYear:       p.FiscalYear,
	}
	for _, t := range p.AdditionalTargets {
		attr := entities.Attribute(strings.ToLower(strings.TrimSpace(t.Attribute)))
		target := entities.NewRangeTarget(attr, t.Min, t.Max)
		if attr.IsCategorical() {
			target = entities.NewMatchTarget(attr, t.Value)
		}
		if t.Enabled != nil {
			target.Enabled = *t.Enabled
		}
		spec.AdditionalTargets = append(spec.AdditionalTargets, target)
	}
	for _, id := range p.PreSelectedBatchIDs {
		spec.PreSelectedBatchIDs = append(spec.PreSelectedBatchIDs, entities.BatchID(strings.TrimSpace(id)))
	}
	return spec, nil
}

type selectedBatchResponse struct {
	ID          string   `json:"id"`
	BatchNumber int      `json:"batchNumber"`
	FiscalYear  int      `json:"fiscalYear"`
	Bloom       *float64 `json:"bloom"`
	Viscosity   *float64 `json:"viscosity,omitempty"`
	Bags        int      `json:"bags"`
	IsOutsource bool     `json:"isOutsource"`
	Pinned      bool     `json:"pinned,omitempty"`
}

type optimizationResponse struct {
	SelectedBatches    []selectedBatchResponse `json:"selectedBatches"`
	TotalBags          int                     `json:"totalBags"`
	TotalWeight        float64                 `json:"totalWeight"`
	AverageBloom       *float64                `json:"averageBloom,omitempty"`
	AverageViscosity   *float64                `json:"averageViscosity,omitempty"`
	Message            string                  `json:"message"`
	Warning            string                  `json:"warning,omitempty"`
	OptimizationStatus string                  `json:"optimizationStatus,omitempty"`
}

func newOptimizationResponse(r dto.OptimizationResult) optimizationResponse {
	resp := optimizationResponse{
		SelectedBatches:    make([]selectedBatchResponse, len(r.SelectedBatches)),
		TotalBags:          r.TotalBags,
		TotalWeight:        r.TotalWeight,
		AverageBloom:       r.AverageBloom,
		AverageViscosity:   r.AverageViscosity,
		Message:            r.Message,
		Warning:            r.Warning,
		OptimizationStatus: r.OptimizationStatus,
	}
	for i, sb := range r.SelectedBatches {
		resp.SelectedBatches[i] = selectedBatchResponse{
			ID:          string(sb.Batch.ID),
			BatchNumber: sb.Batch.BatchNumber,
			FiscalYear:  sb.Batch.FiscalYear,
			Bloom:       sb.Batch.Quality.Bloom,
			Viscosity:   sb.Batch.Quality.Viscosity,
			Bags:        sb.Bags,
			IsOutsource: sb.IsOutsource,
			Pinned:      sb.Pinned,
		}
	}
	return resp
}

type blendLineResponse struct {
	BatchID     string   `json:"batchId"`
	BatchNumber int      `json:"batchNumber"`
	Bloom       *float64 `json:"bloom"`
	Viscosity   *float64 `json:"viscosity,omitempty"`
	Bags        int      `json:"bags"`
	IsOutsource bool     `json:"isOutsource"`
}

type blendResponse struct {
	ID              string              `json:"id"`
	LotNumber       string              `json:"lotNumber"`
	SerialNumber    string              `json:"serialNumber"`
	FiscalYear      int                 `json:"fiscalYear"`
	TargetBloomMin  float64             `json:"targetBloomMin"`
	TargetBloomMax  float64             `json:"targetBloomMax"`
	TargetMeanBloom *float64            `json:"targetMeanBloom,omitempty"`
	Mode            string              `json:"bloomSelectionMode"`
	Mesh            string              `json:"mesh,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	TotalBags       int                 `json:"totalBags"`
	Batches         []blendLineResponse `json:"batches"`
}

func newBlendResponse(b *entities.Blend) blendResponse {
	resp := blendResponse{
		ID:              string(b.ID),
		LotNumber:       b.LotNumber,
		SerialNumber:    b.SerialNumber,
		FiscalYear:      b.FiscalYear,
		TargetBloomMin:  b.Target.BloomMin,
		TargetBloomMax:  b.Target.BloomMax,
		TargetMeanBloom: b.Target.MeanBloom,
		Mode:            b.Target.Mode.String(),
		Mesh:            b.Mesh,
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		TotalBags:       b.TotalBags(),
		Batches:         make([]blendLineResponse, len(b.Lines)),
	}
	for i, line := range b.Lines {
		resp.Batches[i] = blendLineResponse{
			BatchID:     string(line.BatchID),
			BatchNumber: line.BatchNumber,
			Bloom:       line.Bloom,
			Viscosity:   line.Viscosity,
			Bags:        line.Bags,
			IsOutsource: line.IsOutsource,
		}
	}
	return resp
}

type batchResponse struct {
	ID           string     `json:"id"`
	BatchNumber  int        `json:"batchNumber"`
	FiscalYear   int        `json:"fiscalYear"`
	IsOutsource  bool       `json:"isOutsource"`
	Bloom        *float64   `json:"bloom"`
	Viscosity    *float64   `json:"viscosity,omitempty"`
	Percentage   *float64   `json:"percentage,omitempty"`
	PH           *float64   `json:"ph,omitempty"`
	Conductivity *float64   `json:"conductivity,omitempty"`
	Moisture     *float64   `json:"moisture,omitempty"`
	H2O2         *float64   `json:"h2o2,omitempty"`
	SO2          *float64   `json:"so2,omitempty"`
	Color        string     `json:"color,omitempty"`
	Clarity      string     `json:"clarity,omitempty"`
	Odour        string     `json:"odour,omitempty"`
	IsUsed       bool       `json:"isUsed"`
	IsOnHold     bool       `json:"isOnHold"`
	UsedInOrder  string     `json:"usedInOrder,omitempty"`
	UsedDate     *time.Time `json:"usedDate,omitempty"`
}

func newBatchResponse(b entities.Batch) batchResponse {
	q := b.Quality
	return batchResponse{
		ID:           string(b.ID),
		BatchNumber:  b.BatchNumber,
		FiscalYear:   b.FiscalYear,
		IsOutsource:  b.IsOutsource,
		Bloom:        q.Bloom,
		Viscosity:    q.Viscosity,
		Percentage:   q.Percentage,
		PH:           q.PH,
		Conductivity: q.Conductivity,
		Moisture:     q.Moisture,
		H2O2:         q.H2O2,
		SO2:          q.SO2,
		Color:        q.Color,
		Clarity:      q.Clarity,
		Odour:        q.Odour,
		IsUsed:       b.IsUsed,
		IsOnHold:     b.IsOnHold,
		UsedInOrder:  b.UsedInOrder,
		UsedDate:     b.UsedDate,
	}
}

type poolResponse struct {
	FiscalYear    int             `json:"fiscalYear"`
	Available     int             `json:"available"`
	Production    int             `json:"production"`
	Outsource     int             `json:"outsource"`
	WithBloom     int             `json:"withBloom"`
	AverageBloom  *float64        `json:"averageBloom,omitempty"`
	MinBloom      *float64        `json:"minBloom,omitempty"`
	MaxBloom      *float64        `json:"maxBloom,omitempty"`
	AvailableBags int             `json:"availableBags"`
	Batches       []batchResponse `json:"batches"`
}
