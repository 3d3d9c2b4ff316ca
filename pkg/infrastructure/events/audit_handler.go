package events

import (
	"fmt"

	"go.uber.org/zap"
)

// AuditLog writes blend and batch events to the structured log
type AuditLog struct {
	logger *zap.Logger
}

func NewAuditLog(logger *zap.Logger) *AuditLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLog{logger: logger.Named("audit")}
}

// EventTypes lists the events AuditLog subscribes to
func (a *AuditLog) EventTypes() []string {
	return []string{BlendCommittedEvent, BlendDeletedEvent, BatchHoldEvent}
}

func (a *AuditLog) Handle(event Event) error {
	base := []zap.Field{
		zap.String("event", event.Type()),
		zap.String("stream", event.StreamID()),
		zap.Int("version", event.Version()),
	}

	switch data := event.Data().(type) {
	case BlendCommitted:
		a.logger.Info("blend committed", append(base,
			zap.String("lot_number", data.LotNumber),
			zap.String("serial_number", data.SerialNumber),
			zap.Int("fiscal_year", data.FiscalYear),
			zap.Int("batches", len(data.BatchIDs)),
		)...)
	case BlendDeleted:
		a.logger.Info("blend deleted", append(base,
			zap.String("lot_number", data.LotNumber),
			zap.Int("released", len(data.BatchIDs)),
		)...)
	case BatchHoldChanged:
		a.logger.Info("batch hold changed", append(base,
			zap.String("batch_id", string(data.BatchID)),
			zap.Bool("on_hold", data.OnHold),
		)...)
	default:
		return fmt.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}
	return nil
}

func (a *AuditLog) CanHandle(eventType string) bool {
	switch eventType {
	case BlendCommittedEvent, BlendDeletedEvent, BatchHoldEvent:
		return true
	default:
		return false
	}
}
