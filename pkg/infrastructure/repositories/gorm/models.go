package gormrepository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/vsinha/blend/pkg/domain/entities"
)

type BatchModel struct {
	ID           string           `gorm:"primaryKey;type:text"`
	BatchNumber  int              `gorm:"not null;index"`
	FiscalYear   int              `gorm:"not null;index"`
	IsOutsource  bool             `gorm:"not null;default:false"`
	Bloom        *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Viscosity    *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Percentage   *decimal.Decimal `gorm:"type:numeric(10,3)"`
	PH           *decimal.Decimal `gorm:"column:ph;type:numeric(6,2)"`
	Conductivity *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Moisture     *decimal.Decimal `gorm:"type:numeric(6,2)"`
	H2O2         *decimal.Decimal `gorm:"column:h2o2;type:numeric(10,3)"`
	SO2          *decimal.Decimal `gorm:"column:so2;type:numeric(10,3)"`
	Color        string           `gorm:"type:text"`
	Clarity      string           `gorm:"type:text"`
	Odour        string           `gorm:"type:text"`
	IsUsed       bool             `gorm:"not null;default:false;index"`
	IsOnHold     bool             `gorm:"not null;default:false"`
	UsedInOrder  *string          `gorm:"type:text"`
	UsedDate     *time.Time       `gorm:"type:timestamptz"`
	CreatedAt    time.Time        `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time        `gorm:"type:timestamptz;not null"`
}

func (BatchModel) TableName() string {
	return "batches"
}

type BlendModel struct {
	ID           string           `gorm:"primaryKey;type:text"`
	LotNumber    string           `gorm:"type:text;uniqueIndex;not null"`
	SerialNumber string           `gorm:"type:text;uniqueIndex;not null"`
	FiscalYear   int              `gorm:"not null;index"`
	Mode         string           `gorm:"type:text;not null"`
	BloomMin     decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	BloomMax     decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	MeanBloom    *decimal.Decimal `gorm:"type:numeric(10,2)"`
	TargetBags   int              `gorm:"not null"`
	Target       datatypes.JSON   `gorm:"type:jsonb;not null"`
	Mesh         string           `gorm:"type:text"`
	Notes        string           `gorm:"type:text"`
	CreatedAt    time.Time        `gorm:"type:timestamptz;not null"`
	Lines        []BlendLineModel `gorm:"foreignKey:BlendID;constraint:OnDelete:CASCADE"`
}

func (BlendModel) TableName() string {
	return "blends"
}

type BlendLineModel struct {
	BlendID     string           `gorm:"primaryKey;type:text"`
	BatchID     string           `gorm:"primaryKey;type:text;index"`
	Position    int              `gorm:"not null"`
	BatchNumber int              `gorm:"not null"`
	Bloom       *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Viscosity   *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Bags        int              `gorm:"not null"`
	IsOutsource bool             `gorm:"not null;default:false"`
}

func (BlendLineModel) TableName() string {
	return "blend_lines"
}

// Models lists every table owned by this package, in migration order
func Models() []any {
	return []any{&BatchModel{}, &BlendModel{}, &BlendLineModel{}}
}

// targetSnapshot is the jsonb form of the target a blend was built for
type targetSnapshot struct {
	BloomMin            float64                  `json:"targetBloomMin"`
	BloomMax            float64                  `json:"targetBloomMax"`
	MeanBloom           *float64                 `json:"targetMeanBloom,omitempty"`
	Mode                string                   `json:"bloomSelectionMode"`
	TargetBags          int                      `json:"targetBags"`
	IncludeOutsource    bool                     `json:"includeOutsource"`
	OnlyOutsource       bool                     `json:"onlyOutsource"`
	FiscalYear          int                      `json:"fiscalYear"`
	AdditionalTargets   []attributeTargetPayload `json:"additionalTargets,omitempty"`
	PreSelectedBatchIDs []string                 `json:"preSelectedBatchIds,omitempty"`
}

type attributeTargetPayload struct {
	Attribute string  `json:"attribute"`
	Enabled   bool    `json:"enabled"`
	Min       float64 `json:"min,omitempty"`
	Max       float64 `json:"max,omitempty"`
	Value     string  `json:"value,omitempty"`
}

func toBatchModel(b *entities.Batch) BatchModel {
	q := b.Quality
	m := BatchModel{
		ID:           string(b.ID),
		BatchNumber:  b.BatchNumber,
		FiscalYear:   b.FiscalYear,
		IsOutsource:  b.IsOutsource,
		Bloom:        toDecimal(q.Bloom),
		Viscosity:    toDecimal(q.Viscosity),
		Percentage:   toDecimal(q.Percentage),
		PH:           toDecimal(q.PH),
		Conductivity: toDecimal(q.Conductivity),
		Moisture:     toDecimal(q.Moisture),
		H2O2:         toDecimal(q.H2O2),
		SO2:          toDecimal(q.SO2),
		Color:        q.Color,
		Clarity:      q.Clarity,
		Odour:        q.Odour,
		IsUsed:       b.IsUsed,
		IsOnHold:     b.IsOnHold,
		UsedDate:     b.UsedDate,
	}
	if b.UsedInOrder != "" {
		order := b.UsedInOrder
		m.UsedInOrder = &order
	}
	return m
}

func fromBatchModel(m BatchModel) entities.Batch {
	b := entities.Batch{
		ID:          entities.BatchID(m.ID),
		BatchNumber: m.BatchNumber,
		FiscalYear:  m.FiscalYear,
		IsOutsource: m.IsOutsource,
		Quality: entities.QualityAttributes{
			Bloom:        fromDecimal(m.Bloom),
			Viscosity:    fromDecimal(m.Viscosity),
			Percentage:   fromDecimal(m.Percentage),
			PH:           fromDecimal(m.PH),
			Conductivity: fromDecimal(m.Conductivity),
			Moisture:     fromDecimal(m.Moisture),
			H2O2:         fromDecimal(m.H2O2),
			SO2:          fromDecimal(m.SO2),
			Color:        m.Color,
			Clarity:      m.Clarity,
			Odour:        m.Odour,
		},
		IsUsed:   m.IsUsed,
		IsOnHold: m.IsOnHold,
		UsedDate: m.UsedDate,
	}
	if m.UsedInOrder != nil {
		b.UsedInOrder = *m.UsedInOrder
	}
	return b
}

func toBlendModel(b *entities.Blend) (BlendModel, error) {
	target, err := encodeTarget(b.Target)
	if err != nil {
		return BlendModel{}, err
	}

	m := BlendModel{
		ID:           string(b.ID),
		LotNumber:    b.LotNumber,
		SerialNumber: b.SerialNumber,
		FiscalYear:   b.FiscalYear,
		Mode:         b.Target.Mode.String(),
		BloomMin:     decimal.NewFromFloat(b.Target.BloomMin),
		BloomMax:     decimal.NewFromFloat(b.Target.BloomMax),
		MeanBloom:    toDecimal(b.Target.MeanBloom),
		TargetBags:   b.Target.TargetBags,
		Target:       target,
		Mesh:         b.Mesh,
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		Lines:        make([]BlendLineModel, len(b.Lines)),
	}
	for i, line := range b.Lines {
		m.Lines[i] = BlendLineModel{
			BlendID:     string(b.ID),
			BatchID:     string(line.BatchID),
			Position:    i,
			BatchNumber: line.BatchNumber,
			Bloom:       toDecimal(line.Bloom),
			Viscosity:   toDecimal(line.Viscosity),
			Bags:        line.Bags,
			IsOutsource: line.IsOutsource,
		}
	}
	return m, nil
}

func fromBlendModel(m BlendModel) (*entities.Blend, error) {
	target, err := decodeTarget(m.Target)
	if err != nil {
		return nil, err
	}

	b := &entities.Blend{
		ID:           entities.BlendID(m.ID),
		LotNumber:    m.LotNumber,
		SerialNumber: m.SerialNumber,
		FiscalYear:   m.FiscalYear,
		Target:       target,
		Mesh:         m.Mesh,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		Lines:        make([]entities.BlendLine, len(m.Lines)),
	}
	for _, line := range m.Lines {
		if line.Position < 0 || line.Position >= len(b.Lines) {
			return nil, fmt.Errorf("blend %s line %s has position %d out of range", m.ID, line.BatchID, line.Position)
		}
		b.Lines[line.Position] = entities.BlendLine{
			BatchID:     entities.BatchID(line.BatchID),
			BatchNumber: line.BatchNumber,
			Bloom:       fromDecimal(line.Bloom),
			Viscosity:   fromDecimal(line.Viscosity),
			Bags:        line.Bags,
			IsOutsource: line.IsOutsource,
		}
	}
	return b, nil
}

func encodeTarget(spec entities.TargetSpecification) (datatypes.JSON, error) {
	snapshot := targetSnapshot{
		BloomMin:         spec.BloomMin,
		BloomMax:         spec.BloomMax,
		MeanBloom:        spec.MeanBloom,
		Mode:             spec.Mode.String(),
		TargetBags:       spec.TargetBags,
		IncludeOutsource: spec.IncludeOutsource,
		OnlyOutsource:    spec.OnlyOutsource,
		FiscalYear:       spec.FiscalYear,
	}
	for _, t := range spec.AdditionalTargets {
		snapshot.AdditionalTargets = append(snapshot.AdditionalTargets, attributeTargetPayload{
			Attribute: string(t.Attribute),
			Enabled:   t.Enabled,
			Min:       t.Min,
			Max:       t.Max,
			Value:     t.Value,
		})
	}
	for _, id := range spec.PreSelectedBatchIDs {
		snapshot.PreSelectedBatchIDs = append(snapshot.PreSelectedBatchIDs, string(id))
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode blend target: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decodeTarget(raw datatypes.JSON) (entities.TargetSpecification, error) {
	var snapshot targetSnapshot
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return entities.TargetSpecification{}, fmt.Errorf("decode blend target: %w", err)
		}
	}
	mode, err := entities.ParseSelectionMode(snapshot.Mode)
	if err != nil {
		return entities.TargetSpecification{}, err
	}

	spec := entities.TargetSpecification{
		BloomMin:         snapshot.BloomMin,
		BloomMax:         snapshot.BloomMax,
		MeanBloom:        snapshot.MeanBloom,
		Mode:             mode,
		TargetBags:       snapshot.TargetBags,
		IncludeOutsource: snapshot.IncludeOutsource,
		OnlyOutsource:    snapshot.OnlyOutsource,
		FiscalYear:       snapshot.FiscalYear,
	}
	for _, t := range snapshot.AdditionalTargets {
		attr := entities.Attribute(t.Attribute)
		kind := entities.NumericRange
		if attr.IsCategorical() {
			kind = entities.CategoricalMatch
		}
		spec.AdditionalTargets = append(spec.AdditionalTargets, entities.AttributeTarget{
			Attribute: attr,
			Kind:      kind,
			Enabled:   t.Enabled,
			Min:       t.Min,
			Max:       t.Max,
			Value:     t.Value,
		})
	}
	for _, id := range snapshot.PreSelectedBatchIDs {
		spec.PreSelectedBatchIDs = append(spec.PreSelectedBatchIDs, entities.BatchID(id))
	}
	return spec, nil
}

func toDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func fromDecimal(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}
