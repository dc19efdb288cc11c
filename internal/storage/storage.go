package storage

import "ammLedger/internal/model"

// SettlementSink receives settlement outcome records.
type SettlementSink interface {
	PutSettlementBatch(records []model.SettlementRecord) error
}
