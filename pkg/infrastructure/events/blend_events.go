package events

import (
	"github.com/vsinha/blend/pkg/domain/entities"
)

const (
	BlendCommittedEvent = "blend.committed"
	BlendDeletedEvent   = "blend.deleted"
	BatchHoldEvent      = "batch.hold_changed"
)

type BlendCommitted struct {
	BlendID      entities.BlendID   `json:"blend_id"`
	LotNumber    string             `json:"lot_number"`
	SerialNumber string             `json:"serial_number"`
	FiscalYear   int                `json:"fiscal_year"`
	BatchIDs     []entities.BatchID `json:"batch_ids"`
}

type BlendDeleted struct {
	BlendID   entities.BlendID   `json:"blend_id"`
	LotNumber string             `json:"lot_number"`
	BatchIDs  []entities.BatchID `json:"released_batch_ids"`
}

type BatchHoldChanged struct {
	BatchID entities.BatchID `json:"batch_id"`
	OnHold  bool             `json:"on_hold"`
}

// NewBlendCommitted builds the event recorded after a successful commit
func NewBlendCommitted(blend *entities.Blend) Event {
	return NewEvent(BlendCommittedEvent, blendStream(blend.ID), BlendCommitted{
		BlendID:      blend.ID,
		LotNumber:    blend.LotNumber,
		SerialNumber: blend.SerialNumber,
		FiscalYear:   blend.FiscalYear,
		BatchIDs:     blend.BatchIDs(),
	})
}

// NewBlendDeleted builds the event recorded after a blend is removed
func NewBlendDeleted(blend *entities.Blend) Event {
	return NewEvent(BlendDeletedEvent, blendStream(blend.ID), BlendDeleted{
		BlendID:   blend.ID,
		LotNumber: blend.LotNumber,
		BatchIDs:  blend.BatchIDs(),
	})
}

func NewBatchHoldChanged(id entities.BatchID, onHold bool) Event {
	return NewEvent(BatchHoldEvent, "batch-"+string(id), BatchHoldChanged{BatchID: id, OnHold: onHold})
}

func blendStream(id entities.BlendID) string {
	return "blend-" + string(id)
}
