package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/internal/pool"
	"github.com/stitts-dev/lineup-engine/internal/simulator"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
)

// ExposureTarget bounds a player's share of the kept portfolio.
// Fractions of the final portfolio size, both optional.
type ExposureTarget struct {
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
}

// Targets maps player ids to exposure bounds.
type Targets map[string]ExposureTarget

// Thresholds are portfolio-level quality gates applied per lineup.
// A zero value disables the corresponding gate.
type Thresholds struct {
	MaxTotalOwnership  float64 `json:"max_total_ownership,omitempty"`
	MaxDuplicationRisk float64 `json:"max_duplication_risk,omitempty"`
	MinLeverage        float64 `json:"min_leverage,omitempty"`
	MinWinProbability  float64 `json:"min_win_probability,omitempty"`
	MinROI             float64 `json:"min_roi,omitempty"`
}

// Exclusion names a dropped lineup and why it was dropped.
type Exclusion struct {
	LineupID string `json:"lineup_id"`
	Reason   string `json:"reason"`
}

// Report is the outcome of a portfolio filter pass. Exposure is the
// per-player share of the kept set; UnderExposed lists players whose
// minimum target still holds short after enforcement, which only
// happens when no kept lineup contains the player at all.
type Report struct {
	Kept         []optimizer.Lineup `json:"kept"`
	Excluded     []Exclusion        `json:"excluded"`
	Exposure     map[string]float64 `json:"exposure"`
	UnderExposed []string           `json:"under_exposed,omitempty"`
}

// Filter applies simulation-derived quality gates and exposure caps to
// a lineup batch. Threshold checks run first; exposure caps then drop
// the lowest-objective offending lineups until every player is within
// bounds. The filter never reorders survivors.
func Filter(p *pool.Pool, lineups []optimizer.Lineup, results []simulator.LineupResult, targets Targets, thresholds Thresholds) (*Report, error) {
	log := logger.WithService("portfolio")

	if err := validateTargets(p, targets); err != nil {
		return nil, err
	}

	byID := make(map[string]simulator.LineupResult, len(results))
	for _, r := range results {
		byID[r.LineupID] = r
	}

	report := &Report{
		Kept:     make([]optimizer.Lineup, 0, len(lineups)),
		Excluded: make([]Exclusion, 0),
		Exposure: make(map[string]float64),
	}

	for _, l := range lineups {
		if reason := thresholdViolation(p, l, byID, thresholds); reason != "" {
			report.Excluded = append(report.Excluded, Exclusion{LineupID: l.ID, Reason: reason})
			continue
		}
		report.Kept = append(report.Kept, l)
	}

	enforceMaxExposure(report, targets)
	enforceMinExposure(report, targets)
	computeExposure(report)
	flagUnderExposed(report, targets)

	log.WithFields(logrus.Fields{
		"input":    len(lineups),
		"kept":     len(report.Kept),
		"excluded": len(report.Excluded),
	}).Info("Portfolio filter applied")

	return report, nil
}

func validateTargets(p *pool.Pool, targets Targets) error {
	for id, t := range targets {
		if _, ok := p.ByID(id); !ok {
			return fmt.Errorf("exposure target references unknown player %s", id)
		}
		if t.Min < 0 || t.Min > 1 || t.Max < 0 || t.Max > 1 {
			return fmt.Errorf("exposure bounds for %s outside [0,1]", id)
		}
		if t.Max > 0 && t.Min > t.Max {
			return fmt.Errorf("exposure min %.2f exceeds max %.2f for %s", t.Min, t.Max, id)
		}
	}
	return nil
}

func thresholdViolation(p *pool.Pool, l optimizer.Lineup, results map[string]simulator.LineupResult, th Thresholds) string {
	if th.MaxTotalOwnership > 0 {
		if own := totalOwnership(p, l); own > th.MaxTotalOwnership {
			return fmt.Sprintf("total ownership %.2f exceeds %.2f", own, th.MaxTotalOwnership)
		}
	}
	if th.MaxDuplicationRisk > 0 {
		if risk := DuplicationRisk(p, l); risk > th.MaxDuplicationRisk {
			return fmt.Sprintf("duplication risk %.4f exceeds %.4f", risk, th.MaxDuplicationRisk)
		}
	}
	if th.MinLeverage > 0 {
		if lev := Leverage(p, l); lev < th.MinLeverage {
			return fmt.Sprintf("leverage %.3f below %.3f", lev, th.MinLeverage)
		}
	}
	if th.MinWinProbability > 0 || th.MinROI != 0 {
		r, ok := results[l.ID]
		if !ok {
			return "no simulation result for lineup"
		}
		if th.MinWinProbability > 0 && r.WinProbability < th.MinWinProbability {
			return fmt.Sprintf("win probability %.4f below %.4f", r.WinProbability, th.MinWinProbability)
		}
		if th.MinROI != 0 && r.ROI < th.MinROI {
			return fmt.Sprintf("roi %.3f below %.3f", r.ROI, th.MinROI)
		}
	}
	return ""
}

func totalOwnership(p *pool.Pool, l optimizer.Lineup) float64 {
	total := 0.0
	for _, id := range l.PlayerIDs() {
		if pl, ok := p.ByID(id); ok {
			total += pl.Ownership
		}
	}
	return total
}

// DuplicationRisk estimates how likely an identical lineup exists in a
// large field: the geometric mean of roster ownerships, so a chalky
// lineup scores near the field's average ownership and a contrarian
// one near zero.
func DuplicationRisk(p *pool.Pool, l optimizer.Lineup) float64 {
	logSum := 0.0
	n := 0
	for _, id := range l.PlayerIDs() {
		pl, ok := p.ByID(id)
		if !ok {
			continue
		}
		own := pl.Ownership
		if own < 1e-6 {
			own = 1e-6
		}
		logSum += math.Log(own)
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Exp(logSum / float64(n))
}

// Leverage is the mean per-player leverage factor of the roster: a
// player at 5% ownership scores 1.0, lower ownership scores higher,
// capped at 2.0. Values above 1 mean the lineup is collectively
// under-owned relative to the field.
func Leverage(p *pool.Pool, l optimizer.Lineup) float64 {
	sum := 0.0
	n := 0
	for _, id := range l.PlayerIDs() {
		pl, ok := p.ByID(id)
		if !ok {
			continue
		}
		own := pl.Ownership
		if own < 0.001 {
			own = 0.001
		}
		lev := 1.0 / math.Sqrt(own*100.0/5.0)
		if lev > 2.0 {
			lev = 2.0
		}
		sum += lev
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// enforceMaxExposure drops the lowest-objective lineups containing
// over-exposed players until every cap holds. Greedy and
// deterministic: ties break on generation index.
func enforceMaxExposure(report *Report, targets Targets) {
	for {
		if len(report.Kept) == 0 {
			return
		}
		over, overID := worstOverage(report.Kept, targets)
		if over <= 0 {
			return
		}

		drop := -1
		for i, l := range report.Kept {
			if !l.Contains(overID) {
				continue
			}
			if drop == -1 || less(l, report.Kept[drop]) {
				drop = i
			}
		}
		if drop == -1 {
			return
		}
		l := report.Kept[drop]
		report.Kept = append(report.Kept[:drop], report.Kept[drop+1:]...)
		report.Excluded = append(report.Excluded, Exclusion{
			LineupID: l.ID,
			Reason:   fmt.Sprintf("exposure cap on player %s", overID),
		})
	}
}

// enforceMinExposure raises under-the-floor exposures by dropping the
// lowest-objective lineups that lack the short player. Floors on
// players absent from every kept lineup are left to flagUnderExposed:
// dropping cannot raise an exposure of zero.
func enforceMinExposure(report *Report, targets Targets) {
	for {
		if len(report.Kept) == 0 {
			return
		}
		short, shortID := worstShortfall(report.Kept, targets)
		if short <= 0 {
			return
		}

		drop := -1
		for i, l := range report.Kept {
			if l.Contains(shortID) {
				continue
			}
			if drop == -1 || less(l, report.Kept[drop]) {
				drop = i
			}
		}
		if drop == -1 {
			// every kept lineup already contains the player
			return
		}
		l := report.Kept[drop]
		report.Kept = append(report.Kept[:drop], report.Kept[drop+1:]...)
		report.Excluded = append(report.Excluded, Exclusion{
			LineupID: l.ID,
			Reason:   fmt.Sprintf("exposure floor on player %s", shortID),
		})
	}
}

// worstShortfall finds the player furthest below their exposure floor
// among those the drop pass can actually help.
func worstShortfall(kept []optimizer.Lineup, targets Targets) (float64, string) {
	counts := make(map[string]int)
	for _, l := range kept {
		for _, id := range l.PlayerIDs() {
			counts[id]++
		}
	}
	total := float64(len(kept))

	worst := 0.0
	worstID := ""
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := targets[id]
		if t.Min <= 0 || counts[id] == 0 {
			continue
		}
		short := t.Min - float64(counts[id])/total
		if short > worst {
			worst = short
			worstID = id
		}
	}
	return worst, worstID
}

func less(a, b optimizer.Lineup) bool {
	if a.ObjectiveValue != b.ObjectiveValue {
		return a.ObjectiveValue < b.ObjectiveValue
	}
	return a.GenerationIndex > b.GenerationIndex
}

// worstOverage finds the player furthest above their exposure cap.
func worstOverage(kept []optimizer.Lineup, targets Targets) (float64, string) {
	counts := make(map[string]int)
	for _, l := range kept {
		for _, id := range l.PlayerIDs() {
			counts[id]++
		}
	}
	total := float64(len(kept))

	worst := 0.0
	worstID := ""
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := targets[id]
		if t.Max <= 0 {
			continue
		}
		over := float64(counts[id])/total - t.Max
		if over > worst {
			worst = over
			worstID = id
		}
	}
	return worst, worstID
}

func computeExposure(report *Report) {
	if len(report.Kept) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, l := range report.Kept {
		for _, id := range l.PlayerIDs() {
			counts[id]++
		}
	}
	for id, n := range counts {
		report.Exposure[id] = float64(n) / float64(len(report.Kept))
	}
}

func flagUnderExposed(report *Report, targets Targets) {
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := targets[id]
		if t.Min > 0 && report.Exposure[id] < t.Min {
			report.UnderExposed = append(report.UnderExposed, id)
		}
	}
}
