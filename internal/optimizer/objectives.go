package optimizer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/stitts-dev/lineup-engine/internal/pool"
)

// Objective selects the per-player score the solver maximizes.
type Objective string

const (
	// ObjectiveProjection maximizes raw projected points.
	ObjectiveProjection Objective = "projection"
	// ObjectiveEV blends projection with an ownership-leverage
	// discount so low-owned players with similar projections rank
	// higher. Used for large-field tournament builds.
	ObjectiveEV Objective = "ev"
	// ObjectiveCeiling maximizes the 90th-percentile outcome.
	ObjectiveCeiling Objective = "ceiling"
)

// ObjectiveConfig controls scoring during the solve.
type ObjectiveConfig struct {
	Objective       Objective `json:"objective"`
	OwnershipWeight float64   `json:"ownership_weight,omitempty"`
	Jitter          float64   `json:"jitter,omitempty"`
	JitterSeed      int64     `json:"jitter_seed,omitempty"`
}

func (oc ObjectiveConfig) validate() error {
	switch oc.Objective {
	case ObjectiveProjection, ObjectiveEV, ObjectiveCeiling:
	case "":
		return &ConstraintConfigError{Reason: "objective is required"}
	default:
		return &ConstraintConfigError{Reason: fmt.Sprintf("unknown objective %q", oc.Objective)}
	}
	if oc.OwnershipWeight < 0 || oc.OwnershipWeight > 1 {
		return &ConstraintConfigError{Reason: fmt.Sprintf("ownership weight %.2f outside [0,1]", oc.OwnershipWeight)}
	}
	if oc.Jitter < 0 {
		return &ConstraintConfigError{Reason: "jitter must be non-negative"}
	}
	return nil
}

// scorer precomputes per-player objective values so the solver's inner
// loop is a slice lookup. Jitter is applied once here, not per node,
// so a given seed always produces the same batch.
type scorer struct {
	values []float64
}

func newScorer(p *pool.Pool, oc ObjectiveConfig) *scorer {
	players := p.Players()
	values := make([]float64, len(players))

	var rng *rand.Rand
	if oc.Jitter > 0 {
		rng = rand.New(rand.NewSource(oc.JitterSeed))
	}

	for i, pl := range players {
		var v float64
		switch oc.Objective {
		case ObjectiveCeiling:
			v = pl.Ceiling
			if v == 0 {
				v = pl.Projection
			}
		case ObjectiveEV:
			v = leverageValue(pl, oc.OwnershipWeight)
		default:
			v = pl.Projection
		}
		if rng != nil {
			v += rng.NormFloat64() * oc.Jitter * pl.StdDev
		}
		values[i] = math.Max(v, 0)
	}

	return &scorer{values: values}
}

// leverageValue discounts projection by projected field ownership.
// A player at 10% ownership with weight 1.0 scores ~71% of raw
// projection; at weight 0 ownership is ignored entirely.
func leverageValue(pl pool.Player, weight float64) float64 {
	if weight == 0 {
		return pl.Projection
	}
	own := pl.Ownership
	if own < 0.001 {
		own = 0.001
	}
	leverage := 1.0 / math.Sqrt(own*100.0/5.0)
	if leverage > 2.0 {
		leverage = 2.0
	}
	return pl.Projection * ((1 - weight) + weight*leverage)
}

func (s *scorer) value(idx int) float64 {
	return s.values[idx]
}
