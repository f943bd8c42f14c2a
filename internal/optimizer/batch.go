package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/pool"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
)

// Config controls a batch generation run.
type Config struct {
	NumLineups   int             `json:"num_lineups"`
	SolveTimeout time.Duration   `json:"solve_timeout"`
	Objective    ObjectiveConfig `json:"objective"`
}

// Batch generation stop reasons reported on partial results.
const (
	ReasonComplete  = "complete"
	ReasonExhausted = "exhausted"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// Optimizer generates diverse, maximum-objective lineups from a
// validated pool under a constraint set. Construct one per batch.
type Optimizer struct {
	pool  *pool.Pool
	slots []RosterSlot
	cons  Constraints
	cfg   Config
	log   *logrus.Entry
}

// New validates configuration and constraints up front so every error
// reachable from bad input surfaces before the first solve. A
// well-formed but unsatisfiable system is still reported here when the
// pre-solve checks can prove it.
func New(p *pool.Pool, slots []RosterSlot, cons Constraints, cfg Config) (*Optimizer, error) {
	if p == nil || p.Size() == 0 {
		return nil, &ConstraintConfigError{Reason: "player pool is empty"}
	}
	if len(slots) == 0 {
		return nil, &ConstraintConfigError{Reason: "roster specification is empty"}
	}
	if cfg.NumLineups <= 0 {
		return nil, &ConstraintConfigError{Reason: fmt.Sprintf("num lineups must be positive, got %d", cfg.NumLineups)}
	}
	if cfg.SolveTimeout <= 0 {
		return nil, &ConstraintConfigError{Reason: "solve timeout must be positive"}
	}
	if err := cfg.Objective.validate(); err != nil {
		return nil, err
	}
	if err := cons.Validate(len(slots)); err != nil {
		return nil, err
	}
	if cons.MinUnique == 0 {
		cons.MinUnique = 1
	}

	return &Optimizer{
		pool:  p,
		slots: slots,
		cons:  cons,
		cfg:   cfg,
		log:   logger.WithService("optimizer"),
	}, nil
}

// Generate produces up to NumLineups lineups in descending objective
// order, each differing from every earlier one by at least MinUnique
// players. The batch degrades gracefully: timeout, exhaustion after
// the first lineup, and context cancellation all return the lineups
// produced so far with a Reason instead of failing the whole run.
func (o *Optimizer) Generate(ctx context.Context) (*BatchResult, error) {
	runID := uuid.New().String()
	started := time.Now()

	log := o.log.WithFields(logrus.Fields{
		"run_id":      runID,
		"num_lineups": o.cfg.NumLineups,
		"objective":   o.cfg.Objective.Objective,
		"pool_size":   o.pool.Size(),
	})
	log.Info("Starting lineup generation")

	score := newScorer(o.pool, o.cfg.Objective)
	slv, err := newSolver(o.pool, o.slots, o.cons, score)
	if err != nil {
		log.WithError(err).Warn("Pre-solve validation failed")
		return nil, err
	}

	result := &BatchResult{
		RunID:     runID,
		Requested: o.cfg.NumLineups,
		Lineups:   make([]Lineup, 0, o.cfg.NumLineups),
		Reason:    ReasonComplete,
	}

	for k := 0; k < o.cfg.NumLineups; k++ {
		select {
		case <-ctx.Done():
			result.Reason = ReasonCancelled
			result.Delivered = len(result.Lineups)
			result.Elapsed = time.Since(started)
			log.WithField("delivered", result.Delivered).Warn("Generation cancelled")
			return result, nil
		default:
		}

		deadline := time.Now().Add(o.cfg.SolveTimeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}

		chosen, err := slv.solve(result.Lineups, deadline, k, o.cfg.SolveTimeout)
		if err != nil {
			var infeasible *InfeasibleError
			var timeout *TimeoutError
			switch {
			case errors.As(err, &infeasible):
				if k == 0 {
					return nil, err
				}
				result.Reason = ReasonExhausted
			case errors.As(err, &timeout):
				if k == 0 {
					return nil, err
				}
				result.Reason = ReasonTimeout
			default:
				return nil, err
			}
			break
		}

		lineup := o.buildLineup(chosen, k, score)
		result.Lineups = append(result.Lineups, lineup)

		log.WithFields(logrus.Fields{
			"index":     k,
			"objective": lineup.ObjectiveValue,
			"salary":    lineup.TotalSalary,
		}).Debug("Lineup generated")
	}

	result.Delivered = len(result.Lineups)
	result.Elapsed = time.Since(started)
	log.WithFields(logrus.Fields{
		"delivered": result.Delivered,
		"reason":    result.Reason,
		"elapsed":   result.Elapsed,
	}).Info("Lineup generation finished")

	return result, nil
}

func (o *Optimizer) buildLineup(chosen []int, index int, score *scorer) Lineup {
	players := o.pool.Players()
	l := Lineup{
		ID:              uuid.New().String(),
		GenerationIndex: index,
		Slots:           make([]SlotAssignment, len(chosen)),
	}
	for i, c := range chosen {
		pl := players[c]
		l.Slots[i] = SlotAssignment{Slot: o.slots[i].Name, PlayerID: pl.ID}
		l.TotalSalary += pl.Salary
		l.TotalProjection += pl.Projection
		l.ObjectiveValue += score.value(c)
	}
	return l
}
