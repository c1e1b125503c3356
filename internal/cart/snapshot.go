package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

// SnapshotSchemaVersion is bumped whenever the persisted cart layout changes.
const SnapshotSchemaVersion = 1

// ErrSnapshotUnusable covers corrupt payloads and schema mismatches.
var ErrSnapshotUnusable = errors.New("cart: snapshot unusable")

// Snapshot is the persisted form of a cart.
type Snapshot struct {
	SchemaVersion int        `json:"schemaVersion"`
	Items         []LineItem `json:"items"`
	Tip           TipPolicy  `json:"tip"`
	SavedAt       time.Time  `json:"savedAt"`
}

// EncodeSnapshot serializes state for storage.
func EncodeSnapshot(state State, now time.Time) ([]byte, error) {
	items := state.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Items:         items,
		Tip:           state.Tip,
		SavedAt:       now.UTC(),
	})
}

// DecodeSnapshot parses and validates a stored snapshot.
func DecodeSnapshot(raw []byte) (State, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrSnapshotUnusable, err)
	}
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return State{}, fmt.Errorf("%w: schema version %d, want %d", ErrSnapshotUnusable, snap.SchemaVersion, SnapshotSchemaVersion)
	}
	state := State{Items: snap.Items, Tip: snap.Tip}
	if state.Items == nil {
		state.Items = []LineItem{}
	}
	if err := state.validate(); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrSnapshotUnusable, err)
	}
	return state, nil
}

// RestoreState decodes raw and fails open: an absent or unusable snapshot
// yields an empty cart with the default tip.
func RestoreState(ctx context.Context, logg *logger.Logger, raw []byte, defaultTip TipPolicy) State {
	if len(raw) == 0 {
		return NewState(defaultTip)
	}
	state, err := DecodeSnapshot(raw)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "discarding cart snapshot")
		}
		return NewState(defaultTip)
	}
	return state
}
