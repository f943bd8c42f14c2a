package optimizer

import (
	"fmt"
)

// RosterSlot is one position slot in the roster specification. Eligible
// lists the player positions that may fill it; flex slots simply list
// several.
type RosterSlot struct {
	Name     string   `json:"name"`
	Eligible []string `json:"eligible"`
}

// SlotsFor returns the ordered roster slot specification for a
// sport/site combination. The slot list is fixed per site contest type.
func SlotsFor(sport, site string) ([]RosterSlot, error) {
	switch sport {
	case "nfl":
		return nflSlots(site)
	case "nba":
		return nbaSlots(site)
	case "mlb":
		return mlbSlots(site)
	case "nhl":
		return nhlSlots(site)
	case "golf":
		return golfSlots(site)
	}
	return nil, fmt.Errorf("no roster specification for sport %q", sport)
}

func nflSlots(site string) ([]RosterSlot, error) {
	switch site {
	case "draftkings", "fanduel":
		// Classic format is identical across both sites
		return []RosterSlot{
			{Name: "QB", Eligible: []string{"QB"}},
			{Name: "RB1", Eligible: []string{"RB"}},
			{Name: "RB2", Eligible: []string{"RB"}},
			{Name: "WR1", Eligible: []string{"WR"}},
			{Name: "WR2", Eligible: []string{"WR"}},
			{Name: "WR3", Eligible: []string{"WR"}},
			{Name: "TE", Eligible: []string{"TE"}},
			{Name: "FLEX", Eligible: []string{"RB", "WR", "TE"}},
			{Name: "DST", Eligible: []string{"DST"}},
		}, nil
	}
	return nil, fmt.Errorf("no NFL roster specification for site %q", site)
}

func nbaSlots(site string) ([]RosterSlot, error) {
	switch site {
	case "draftkings":
		return []RosterSlot{
			{Name: "PG", Eligible: []string{"PG"}},
			{Name: "SG", Eligible: []string{"SG"}},
			{Name: "SF", Eligible: []string{"SF"}},
			{Name: "PF", Eligible: []string{"PF"}},
			{Name: "C", Eligible: []string{"C"}},
			{Name: "G", Eligible: []string{"PG", "SG"}},
			{Name: "F", Eligible: []string{"SF", "PF"}},
			{Name: "UTIL", Eligible: []string{"PG", "SG", "SF", "PF", "C"}},
		}, nil
	case "fanduel":
		return []RosterSlot{
			{Name: "PG1", Eligible: []string{"PG"}},
			{Name: "PG2", Eligible: []string{"PG"}},
			{Name: "SG1", Eligible: []string{"SG"}},
			{Name: "SG2", Eligible: []string{"SG"}},
			{Name: "SF1", Eligible: []string{"SF"}},
			{Name: "SF2", Eligible: []string{"SF"}},
			{Name: "PF1", Eligible: []string{"PF"}},
			{Name: "PF2", Eligible: []string{"PF"}},
			{Name: "C", Eligible: []string{"C"}},
		}, nil
	}
	return nil, fmt.Errorf("no NBA roster specification for site %q", site)
}

func mlbSlots(site string) ([]RosterSlot, error) {
	switch site {
	case "draftkings":
		return []RosterSlot{
			{Name: "P1", Eligible: []string{"P", "SP", "RP"}},
			{Name: "P2", Eligible: []string{"P", "SP", "RP"}},
			{Name: "C", Eligible: []string{"C"}},
			{Name: "1B", Eligible: []string{"1B"}},
			{Name: "2B", Eligible: []string{"2B"}},
			{Name: "3B", Eligible: []string{"3B"}},
			{Name: "SS", Eligible: []string{"SS"}},
			{Name: "OF1", Eligible: []string{"OF", "LF", "CF", "RF"}},
			{Name: "OF2", Eligible: []string{"OF", "LF", "CF", "RF"}},
			{Name: "OF3", Eligible: []string{"OF", "LF", "CF", "RF"}},
		}, nil
	}
	return nil, fmt.Errorf("no MLB roster specification for site %q", site)
}

func nhlSlots(site string) ([]RosterSlot, error) {
	switch site {
	case "draftkings":
		return []RosterSlot{
			{Name: "C1", Eligible: []string{"C"}},
			{Name: "C2", Eligible: []string{"C"}},
			{Name: "W1", Eligible: []string{"W", "LW", "RW"}},
			{Name: "W2", Eligible: []string{"W", "LW", "RW"}},
			{Name: "W3", Eligible: []string{"W", "LW", "RW"}},
			{Name: "D1", Eligible: []string{"D"}},
			{Name: "D2", Eligible: []string{"D"}},
			{Name: "G", Eligible: []string{"G"}},
			{Name: "UTIL", Eligible: []string{"C", "W", "LW", "RW", "D"}},
		}, nil
	}
	return nil, fmt.Errorf("no NHL roster specification for site %q", site)
}

func golfSlots(site string) ([]RosterSlot, error) {
	slots := make([]RosterSlot, 6)
	for i := range slots {
		slots[i] = RosterSlot{Name: fmt.Sprintf("G%d", i+1), Eligible: []string{"G"}}
	}
	return slots, nil
}
