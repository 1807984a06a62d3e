package tracker

import (
	"context"
	"fmt"
)

// Migrator folds a staged anonymous payload into the signed-in
// account's cloud record. Run is invoked from the coordinator's event
// loop on the first snapshot delivery after sign-in.
type Migrator struct {
	cloud  CloudStore
	local  RecordStore
	slot   HandoffSlot
	logger Logger
}

func NewMigrator(cloud CloudStore, local RecordStore, slot HandoffSlot, logger Logger) *Migrator {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Migrator{cloud: cloud, local: local, slot: slot, logger: logger}
}

// Run merges payload with the current cloud record (nil when the day
// is absent) and writes the sum: totals add, the payload's state wins,
// and the server assigns the run start. The local record and the slot
// are only cleaned up after the write succeeds, so a failed merge is
// retried on the next delivery. A failed local delete leaves a
// harmless leftover and does not block clearing the slot.
func (m *Migrator) Run(ctx context.Context, userID string, payload MigrationPayload, cloudRec *DayRecord) error {
	merged := DayRecord{
		DateKey:      payload.DateKey,
		FocusedMs:    payload.FocusedMs,
		DistractedMs: payload.DistractedMs,
		State:        payload.State,
	}
	if cloudRec != nil {
		merged.FocusedMs += cloudRec.FocusedMs
		merged.DistractedMs += cloudRec.DistractedMs
	}
	if err := m.cloud.MergePut(ctx, userID, merged); err != nil {
		return fmt.Errorf("writing merged record: %w", err)
	}
	if err := m.local.Delete(ctx, payload.DateKey); err != nil {
		m.logger.Warn("leaving migrated local record behind", "date", payload.DateKey, "error", err)
	}
	if err := m.slot.Clear(); err != nil {
		m.logger.Error("clearing migration slot failed; totals may merge twice", "date", payload.DateKey, "error", err)
	}
	m.logger.Info("migrated local totals into account",
		"user_id", userID,
		"date", payload.DateKey,
		"focused_ms", merged.FocusedMs,
		"distracted_ms", merged.DistractedMs,
		"state", merged.State)
	return nil
}
