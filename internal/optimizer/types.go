package optimizer

import (
	"fmt"
	"time"
)

// SlotAssignment pins one player to one named roster slot.
type SlotAssignment struct {
	Slot     string `json:"slot"`
	PlayerID string `json:"player_id"`
}

// Lineup is a complete, feasible roster. Immutable once emitted: the
// simulator and the portfolio filter only read it.
type Lineup struct {
	ID              string           `json:"id"`
	GenerationIndex int              `json:"generation_index"`
	Slots           []SlotAssignment `json:"slots"`
	TotalSalary     int              `json:"total_salary"`
	TotalProjection float64          `json:"total_projection"`
	ObjectiveValue  float64          `json:"objective_value"`
}

// PlayerIDs returns the ids in slot order.
func (l Lineup) PlayerIDs() []string {
	ids := make([]string, len(l.Slots))
	for i, s := range l.Slots {
		ids[i] = s.PlayerID
	}
	return ids
}

// Contains reports whether the lineup uses the player.
func (l Lineup) Contains(playerID string) bool {
	for _, s := range l.Slots {
		if s.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Overlap counts players shared with another lineup.
func (l Lineup) Overlap(other Lineup) int {
	seen := make(map[string]bool, len(l.Slots))
	for _, s := range l.Slots {
		seen[s.PlayerID] = true
	}
	shared := 0
	for _, s := range other.Slots {
		if seen[s.PlayerID] {
			shared++
		}
	}
	return shared
}

// BatchResult reports a batch run, including partial outcomes: when a
// solve times out or is cancelled, Delivered < Requested and Reason
// explains why.
type BatchResult struct {
	RunID     string        `json:"run_id"`
	Requested int           `json:"requested"`
	Delivered int           `json:"delivered"`
	Reason    string        `json:"reason,omitempty"`
	Lineups   []Lineup      `json:"lineups"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ConstraintConfigError reports internally inconsistent constraint
// definitions, surfaced at construction before any solve attempt.
type ConstraintConfigError struct {
	Reason string
}

func (e *ConstraintConfigError) Error() string {
	return fmt.Sprintf("invalid constraint configuration: %s", e.Reason)
}

// InfeasibleError reports a well-formed but unsatisfiable constraint
// system. Class names the constraint family that triggered it when
// determinable, so the caller knows what to relax.
type InfeasibleError struct {
	Class  string
	Reason string
}

func (e *InfeasibleError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("infeasible constraint system (%s): %s", e.Class, e.Reason)
	}
	return fmt.Sprintf("infeasible constraint system: %s", e.Reason)
}

// TimeoutError reports a solve that exceeded its per-lineup budget.
type TimeoutError struct {
	Budget time.Duration
	Index  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("solver exceeded %s budget on lineup %d", e.Budget, e.Index)
}
