package ladder

import (
	"encoding/json"
	"time"

	"ladder_go/internal/domain"
)

// Snapshot is an immutable copy of the ladder after one step.
type Snapshot struct {
	Seq        uint64
	Kind       domain.EventKind
	Ts         time.Time
	Elapsed    time.Duration // virtual time since replay start
	Reanchored bool
	Rows       [][Columns]string
}

type snapshotJSON struct {
	Seq        uint64            `json:"seq"`
	Kind       domain.EventKind  `json:"kind"`
	Ts         time.Time         `json:"ts"`
	ElapsedMs  int64             `json:"elapsed_ms"`
	Reanchored bool              `json:"reanchored"`
	Rows       [][Columns]string `json:"rows"`
}

// MarshalJSON encodes the snapshot for the websocket feed.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Seq:        s.Seq,
		Kind:       s.Kind,
		Ts:         s.Ts,
		ElapsedMs:  s.Elapsed.Milliseconds(),
		Reanchored: s.Reanchored,
		Rows:       s.Rows,
	})
}

// Cell returns the display string at row/col.
func (s Snapshot) Cell(row, col int) string {
	return s.Rows[row][col]
}
