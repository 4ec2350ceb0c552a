package scenario

import (
	"encoding/json"
	"io"

	"github.com/zeusync/diffsim/internal/core/differential"
)

// Log is the result of a run.
type Log struct {
	Name      string                  `json:"name,omitempty"`
	Ticks     uint64                  `json:"ticks"`
	Initial   differential.Snapshot   `json:"initial"`
	Snapshots []differential.Snapshot `json:"snapshots"`
	Final     differential.Snapshot   `json:"final"`
	// Shifts lists the ticks on which the selected gear changed.
	Shifts []uint64 `json:"shifts,omitempty"`
}

// Run steps core through every segment of s. The last tick is always
// recorded regardless of the sample interval.
func Run(core *differential.Core, s *Scenario) (Log, error) {
	if core == nil {
		return Log{}, ErrNilCore
	}
	if err := s.Validate(); err != nil {
		return Log{}, err
	}
	every := max(s.Every, 1)
	total := s.TotalTicks()

	result := Log{
		Name:      s.Name,
		Initial:   core.Snapshot(),
		Snapshots: make([]differential.Snapshot, 0, min(total/every+1, 4096)),
	}

	prevGear := result.Initial.GearIndex
	step := 0
	for _, seg := range s.Segments {
		for i := 0; i < seg.Ticks; i++ {
			snap := core.Step(seg.controls(i))
			step++

			if snap.GearIndex != prevGear {
				result.Shifts = append(result.Shifts, snap.Tick)
				prevGear = snap.GearIndex
			}
			if step%every == 0 || step == total {
				result.Snapshots = append(result.Snapshots, snap)
			}
			result.Final = snap
		}
	}
	result.Ticks = result.Final.Tick - result.Initial.Tick
	return result, nil
}

// WriteJSON writes the log as indented JSON.
func (l Log) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}
