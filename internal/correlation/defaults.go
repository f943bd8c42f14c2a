package correlation

import (
	"github.com/stitts-dev/lineup-engine/internal/pool"
)

// Heuristic pairwise coefficients by sport. These are calibration
// placeholders in the range supported by public DFS research, not
// fitted values; callers with historical data should supply their own
// entries instead.

var nflTeammate = map[string]map[string]float64{
	"QB":  {"QB": 0.0, "RB": 0.10, "WR": 0.50, "TE": 0.40, "DST": -0.20},
	"RB":  {"QB": 0.10, "RB": -0.30, "WR": -0.10, "TE": -0.05, "DST": 0.15},
	"WR":  {"QB": 0.50, "RB": -0.10, "WR": 0.25, "TE": 0.10, "DST": -0.10},
	"TE":  {"QB": 0.40, "RB": -0.05, "WR": 0.10, "TE": 0.0, "DST": -0.05},
	"DST": {"QB": -0.20, "RB": 0.15, "WR": -0.10, "TE": -0.05, "DST": 0.0},
}

var nbaTeammate = map[string]map[string]float64{
	"PG": {"PG": 0.0, "SG": 0.35, "SF": 0.25, "PF": 0.20, "C": 0.30},
	"SG": {"PG": 0.35, "SG": 0.0, "SF": 0.20, "PF": 0.15, "C": 0.25},
	"SF": {"PG": 0.25, "SG": 0.20, "SF": 0.0, "PF": 0.20, "C": 0.20},
	"PF": {"PG": 0.20, "SG": 0.15, "SF": 0.20, "PF": 0.0, "C": 0.35},
	"C":  {"PG": 0.30, "SG": 0.25, "SF": 0.20, "PF": 0.35, "C": 0.0},
}

var nhlTeammate = map[string]map[string]float64{
	"C": {"C": 0.20, "W": 0.45, "D": 0.25, "G": 0.30},
	"W": {"C": 0.45, "W": 0.40, "D": 0.20, "G": 0.30},
	"D": {"C": 0.25, "W": 0.20, "D": 0.35, "G": 0.35},
	"G": {"C": 0.30, "W": 0.30, "D": 0.35, "G": 0.0},
}

var mlbTeammate = map[string]map[string]float64{
	"P":  {"P": -0.50, "C": 0.20},
	"C":  {"P": 0.20, "1B": 0.10, "2B": 0.10, "3B": 0.10, "SS": 0.10, "OF": 0.10},
	"1B": {"C": 0.10, "2B": 0.25, "3B": 0.20, "SS": 0.20, "OF": 0.30},
	"2B": {"C": 0.10, "1B": 0.25, "3B": 0.25, "SS": 0.30, "OF": 0.25},
	"3B": {"C": 0.10, "1B": 0.20, "2B": 0.25, "SS": 0.25, "OF": 0.25},
	"SS": {"C": 0.10, "1B": 0.20, "2B": 0.30, "3B": 0.25, "OF": 0.25},
	"OF": {"C": 0.10, "1B": 0.30, "2B": 0.25, "3B": 0.25, "SS": 0.25, "OF": 0.35},
}

// DefaultEntries generates heuristic pairwise entries for every player
// pair in the pool that the sport's rules cover: teammate stacks,
// cross-team game environment, and the negative matchup pairs (RB vs
// opposing DST, pitcher vs opposing hitters).
func DefaultEntries(p *pool.Pool, sport string) []Entry {
	players := p.Players()
	entries := make([]Entry, 0, len(players)*2)

	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			a, b := players[i], players[j]
			coeff, reason := pairCoefficient(a, b, sport)
			if coeff == 0 {
				continue
			}
			entries = append(entries, Entry{A: a.ID, B: b.ID, Coeff: coeff, Reason: reason})
		}
	}

	return entries
}

func pairCoefficient(a, b pool.Player, sport string) (float64, string) {
	sameTeam := a.Team == b.Team && a.Team != ""
	sameGame := a.GameKey() == b.GameKey() && a.GameKey() != "@"

	if sameTeam {
		if c := teammateCoefficient(a, b, sport); c != 0 {
			return c, "teammate"
		}
		return 0, ""
	}

	if sameGame {
		if c := opponentCoefficient(a, b, sport); c != 0 {
			return c, "opponent"
		}
	}

	return 0, ""
}

func teammateCoefficient(a, b pool.Player, sport string) float64 {
	var table map[string]map[string]float64
	switch sport {
	case "nfl":
		table = nflTeammate
	case "nba":
		table = nbaTeammate
	case "nhl":
		table = nhlTeammate
	case "mlb":
		table = mlbTeammate
	default:
		return 0.1
	}

	best := 0.0
	// Multi-position players take the strongest pairing either
	// eligibility produces.
	for _, pa := range a.Positions {
		for _, pb := range b.Positions {
			if c, ok := table[pa][pb]; ok && abs(c) > abs(best) {
				best = c
			}
		}
	}
	return best
}

func opponentCoefficient(a, b pool.Player, sport string) float64 {
	switch sport {
	case "nfl":
		// Shootout environments lift both passing games
		if (a.HasPosition("QB") && (b.HasPosition("WR") || b.HasPosition("TE"))) ||
			(b.HasPosition("QB") && (a.HasPosition("WR") || a.HasPosition("TE"))) {
			return 0.25
		}
		if (a.HasPosition("RB") && b.HasPosition("DST")) ||
			(b.HasPosition("RB") && a.HasPosition("DST")) {
			return -0.30
		}
		if a.HasPosition("DST") || b.HasPosition("DST") {
			return -0.15
		}
		return 0.10
	case "nba":
		return 0.15
	case "nhl":
		if a.HasPosition("G") || b.HasPosition("G") {
			return -0.20
		}
		return 0.15
	case "mlb":
		if a.HasPosition("P") || b.HasPosition("P") {
			return -0.25
		}
		return 0.10
	default:
		return 0.05
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
