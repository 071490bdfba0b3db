package state

import (
	"context"
	"encoding/json"
	"strings"
)

const CycleSnapshotKey = "engine:last_cycle"

// CycleSnapshot summarizes the most recent completed trading cycle for
// operational inspection; it is advisory and never used for recovery.
type CycleSnapshot struct {
	TimeMS           int64   `json:"time_ms"`
	OpenPositions    int     `json:"open_positions"`
	TotalExposureUSD float64 `json:"total_exposure_usd"`
	PairsSkipped     int     `json:"pairs_skipped"`
	LastError        string  `json:"last_error,omitempty"`
}

func LoadCycleSnapshot(ctx context.Context, store Store) (CycleSnapshot, bool, error) {
	if store == nil {
		return CycleSnapshot{}, false, nil
	}
	raw, ok, err := store.Get(ctx, CycleSnapshotKey)
	if err != nil {
		return CycleSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return CycleSnapshot{}, false, nil
	}
	var snap CycleSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return CycleSnapshot{}, false, err
	}
	return snap, true, nil
}

func SaveCycleSnapshot(ctx context.Context, store Store, snap CycleSnapshot) error {
	if store == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return store.Set(ctx, CycleSnapshotKey, string(payload))
}
