package optimizer

import (
	"fmt"

	"github.com/stitts-dev/lineup-engine/internal/pool"
)

// StackRule requires between Min and Max players from a named group to
// appear together. BringBackTeam/BringBackMin optionally require
// hedging players from the opposing side when the stack is active.
type StackRule struct {
	Name          string   `json:"name"`
	PlayerIDs     []string `json:"player_ids"`
	Min           int      `json:"min"`
	Max           int      `json:"max"`
	BringBackTeam string   `json:"bring_back_team,omitempty"`
	BringBackMin  int      `json:"bring_back_min,omitempty"`
}

// Constraints is the declarative roster-construction rule set for one
// batch run. Immutable once validated.
type Constraints struct {
	SalaryCap   int `json:"salary_cap"`
	SalaryFloor int `json:"salary_floor,omitempty"`
	MaxPerTeam  int `json:"max_per_team,omitempty"`
	MinGames    int `json:"min_games,omitempty"`
	// MinUnique defaults to 1 at batch construction, so an omitted
	// value never produces duplicate lineups.
	MinUnique int         `json:"min_unique,omitempty"`
	Locked    []string    `json:"locked,omitempty"`
	Banned    []string    `json:"banned,omitempty"`
	Stacks    []StackRule `json:"stacks,omitempty"`
}

// Validate checks internal consistency. Malformed definitions are a
// caller bug and surface as ConstraintConfigError before any solve.
func (c Constraints) Validate(rosterSize int) error {
	if c.SalaryCap <= 0 {
		return &ConstraintConfigError{Reason: fmt.Sprintf("salary cap must be positive, got %d", c.SalaryCap)}
	}
	if c.SalaryFloor < 0 {
		return &ConstraintConfigError{Reason: fmt.Sprintf("salary floor must be non-negative, got %d", c.SalaryFloor)}
	}
	if c.SalaryFloor > c.SalaryCap {
		return &ConstraintConfigError{Reason: fmt.Sprintf("salary floor %d exceeds cap %d", c.SalaryFloor, c.SalaryCap)}
	}
	if c.MaxPerTeam < 0 {
		return &ConstraintConfigError{Reason: "max players per team must be non-negative"}
	}
	if c.MinUnique < 0 || c.MinUnique > rosterSize {
		return &ConstraintConfigError{Reason: fmt.Sprintf("min unique %d outside [0,%d]", c.MinUnique, rosterSize)}
	}

	banned := make(map[string]bool, len(c.Banned))
	for _, id := range c.Banned {
		banned[id] = true
	}
	for _, id := range c.Locked {
		if banned[id] {
			return &ConstraintConfigError{Reason: fmt.Sprintf("player %s is both locked and banned", id)}
		}
	}
	if len(c.Locked) > rosterSize {
		return &ConstraintConfigError{Reason: fmt.Sprintf("%d locked players exceed roster size %d", len(c.Locked), rosterSize)}
	}

	for _, s := range c.Stacks {
		if s.Min < 0 || s.Max < 0 {
			return &ConstraintConfigError{Reason: fmt.Sprintf("stack %q has negative bounds", s.Name)}
		}
		if s.Min > s.Max {
			return &ConstraintConfigError{Reason: fmt.Sprintf("stack %q min %d exceeds max %d", s.Name, s.Min, s.Max)}
		}
		if len(s.PlayerIDs) == 0 {
			return &ConstraintConfigError{Reason: fmt.Sprintf("stack %q has no players", s.Name)}
		}
		if s.Min > len(s.PlayerIDs) {
			return &ConstraintConfigError{Reason: fmt.Sprintf("stack %q requires %d of %d players", s.Min, s.Min, len(s.PlayerIDs))}
		}
		if s.BringBackMin < 0 {
			return &ConstraintConfigError{Reason: fmt.Sprintf("stack %q has negative bring-back", s.Name)}
		}
		if s.BringBackMin > 0 && s.BringBackTeam == "" {
			return &ConstraintConfigError{Reason: fmt.Sprintf("stack %q requires a bring-back team", s.Name)}
		}
	}

	return nil
}

// IsFeasible reports whether a complete lineup satisfies every active
// rule, including uniqueness against prior lineups in the batch.
// Ordinary infeasibility returns false, it never panics or errors.
func (c Constraints) IsFeasible(p *pool.Pool, slots []RosterSlot, lineup Lineup, prior []Lineup) bool {
	if len(lineup.Slots) != len(slots) {
		return false
	}

	banned := make(map[string]bool, len(c.Banned))
	for _, id := range c.Banned {
		banned[id] = true
	}

	salary := 0
	seen := make(map[string]bool, len(lineup.Slots))
	teamCount := make(map[string]int)
	games := make(map[string]bool)

	for i, sa := range lineup.Slots {
		pl, ok := p.ByID(sa.PlayerID)
		if !ok {
			return false
		}
		if banned[pl.ID] || pl.Banned {
			return false
		}
		if seen[pl.ID] {
			return false
		}
		seen[pl.ID] = true

		// Slot order must match the roster specification
		if sa.Slot != slots[i].Name {
			return false
		}
		eligible := false
		for _, pos := range slots[i].Eligible {
			if pl.HasPosition(pos) {
				eligible = true
				break
			}
		}
		if !eligible {
			return false
		}

		salary += pl.Salary
		teamCount[pl.Team]++
		games[pl.GameKey()] = true
	}

	if salary > c.SalaryCap {
		return false
	}
	if c.SalaryFloor > 0 && salary < c.SalaryFloor {
		return false
	}
	if c.MaxPerTeam > 0 {
		for _, n := range teamCount {
			if n > c.MaxPerTeam {
				return false
			}
		}
	}
	if c.MinGames > 0 && len(games) < c.MinGames {
		return false
	}
	for _, id := range c.Locked {
		if !seen[id] {
			return false
		}
	}

	for _, s := range c.Stacks {
		if !c.stackSatisfied(p, s, seen, teamCount) {
			return false
		}
	}

	if c.MinUnique > 0 {
		maxOverlap := len(slots) - c.MinUnique
		for _, prev := range prior {
			if lineup.Overlap(prev) > maxOverlap {
				return false
			}
		}
	}

	return true
}

func (c Constraints) stackSatisfied(p *pool.Pool, rule StackRule, seen map[string]bool, teamCount map[string]int) bool {
	count := 0
	for _, id := range rule.PlayerIDs {
		if seen[id] {
			count++
		}
	}
	if count < rule.Min || count > rule.Max {
		return false
	}
	if count > 0 && rule.BringBackMin > 0 {
		if teamCount[rule.BringBackTeam] < rule.BringBackMin {
			return false
		}
	}
	return true
}
