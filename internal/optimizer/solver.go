package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/stitts-dev/lineup-engine/internal/pool"
)

// solver holds the precomputed search structures for one batch. It is
// rebuilt per batch, not per lineup: uniqueness cuts against prior
// lineups are passed into each solve.
type solver struct {
	pool   *pool.Pool
	slots  []RosterSlot
	cons   Constraints
	score  *scorer
	banned []bool

	// candidates[s] lists pool indexes eligible for slot s, sorted by
	// objective value descending so the first feasible completion is a
	// strong incumbent.
	candidates [][]int

	// suffixBest[s] is the sum of the best candidate value for slots
	// s..end; an admissible upper bound on any completion from slot s.
	suffixBest []float64

	// suffixMinSalary[s] is the cheapest possible completion cost from
	// slot s onward, used for salary-cap pruning.
	suffixMinSalary []int

	lockedIdx map[int]bool
	numLocked int
}

const deadlineCheckMask = 0x3FF

func newSolver(p *pool.Pool, slots []RosterSlot, cons Constraints, score *scorer) (*solver, error) {
	s := &solver{
		pool:      p,
		slots:     slots,
		cons:      cons,
		score:     score,
		banned:    make([]bool, p.Size()),
		lockedIdx: make(map[int]bool),
	}

	for _, id := range cons.Banned {
		if idx, ok := p.Index(id); ok {
			s.banned[idx] = true
		}
	}
	for i, pl := range p.Players() {
		if pl.Banned {
			s.banned[i] = true
		}
	}

	lockedSalary := 0
	for _, id := range cons.Locked {
		idx, ok := p.Index(id)
		if !ok {
			return nil, &ConstraintConfigError{Reason: fmt.Sprintf("locked player %s not in pool", id)}
		}
		s.lockedIdx[idx] = true
		lockedSalary += p.Players()[idx].Salary
	}
	for _, pl := range p.Players() {
		if pl.Locked {
			if idx, ok := p.Index(pl.ID); ok && !s.lockedIdx[idx] {
				s.lockedIdx[idx] = true
				lockedSalary += pl.Salary
			}
		}
	}
	s.numLocked = len(s.lockedIdx)
	if s.numLocked > len(slots) {
		return nil, &InfeasibleError{Class: "lock", Reason: fmt.Sprintf("%d locked players for %d roster slots", s.numLocked, len(slots))}
	}
	if lockedSalary > cons.SalaryCap {
		return nil, &InfeasibleError{Class: "salary", Reason: fmt.Sprintf("locked players cost %d against cap %d", lockedSalary, cons.SalaryCap)}
	}

	players := p.Players()
	s.candidates = make([][]int, len(slots))
	for si, slot := range slots {
		var cand []int
		for i, pl := range players {
			if s.banned[i] {
				continue
			}
			for _, pos := range slot.Eligible {
				if pl.HasPosition(pos) {
					cand = append(cand, i)
					break
				}
			}
		}
		if len(cand) == 0 {
			return nil, &InfeasibleError{Class: "position", Reason: fmt.Sprintf("no eligible players for slot %s", slot.Name)}
		}
		sort.Slice(cand, func(a, b int) bool {
			va, vb := score.value(cand[a]), score.value(cand[b])
			if va != vb {
				return va > vb
			}
			if players[cand[a]].Salary != players[cand[b]].Salary {
				return players[cand[a]].Salary < players[cand[b]].Salary
			}
			return players[cand[a]].ID < players[cand[b]].ID
		})
		s.candidates[si] = cand
	}

	// Locked players must fit somewhere
	for idx := range s.lockedIdx {
		fits := false
		for si := range slots {
			for _, c := range s.candidates[si] {
				if c == idx {
					fits = true
					break
				}
			}
			if fits {
				break
			}
		}
		if !fits {
			return nil, &InfeasibleError{Class: "lock", Reason: fmt.Sprintf("locked player %s fits no roster slot", players[idx].ID)}
		}
	}

	s.suffixBest = make([]float64, len(slots)+1)
	s.suffixMinSalary = make([]int, len(slots)+1)
	for si := len(slots) - 1; si >= 0; si-- {
		best := 0.0
		minSal := players[s.candidates[si][0]].Salary
		for _, c := range s.candidates[si] {
			if v := score.value(c); v > best {
				best = v
			}
			if players[c].Salary < minSal {
				minSal = players[c].Salary
			}
		}
		s.suffixBest[si] = s.suffixBest[si+1] + best
		s.suffixMinSalary[si] = s.suffixMinSalary[si+1] + minSal
	}
	if s.suffixMinSalary[0] > cons.SalaryCap {
		return nil, &InfeasibleError{Class: "salary", Reason: fmt.Sprintf("cheapest roster costs %d against cap %d", s.suffixMinSalary[0], cons.SalaryCap)}
	}

	return s, nil
}

// searchState is the mutable DFS frame shared down the recursion.
type searchState struct {
	chosen    []int
	used      []bool
	salary    int
	value     float64
	teamCount map[string]int
	gameCount map[string]int
	locked    int

	// overlaps[k] counts players shared with prior lineup k so the
	// uniqueness cut can prune without rescanning.
	overlaps   []int
	maxOverlap int
	prior      [][]int

	incumbent      []int
	incumbentValue float64
	haveIncumbent  bool

	deadline time.Time
	nodes    int
	timedOut bool
}

// solve finds the maximum-objective feasible lineup distinct from the
// prior ones. Returns the incumbent on deadline expiry when one
// exists, a TimeoutError otherwise, and an exhausted InfeasibleError
// when the cut search space is empty.
func (s *solver) solve(prior []Lineup, deadline time.Time, lineupIndex int, budget time.Duration) ([]int, error) {
	st := &searchState{
		chosen:     make([]int, len(s.slots)),
		used:       make([]bool, s.pool.Size()),
		teamCount:  make(map[string]int),
		gameCount:  make(map[string]int),
		overlaps:   make([]int, len(prior)),
		maxOverlap: len(s.slots), // no cut when MinUnique is zero
		deadline:   deadline,
	}
	if s.cons.MinUnique > 0 {
		st.maxOverlap = len(s.slots) - s.cons.MinUnique
		st.prior = make([][]int, len(prior))
		for k, l := range prior {
			idxs := make([]int, 0, len(l.Slots))
			for _, sa := range l.Slots {
				if i, ok := s.pool.Index(sa.PlayerID); ok {
					idxs = append(idxs, i)
				}
			}
			st.prior[k] = idxs
		}
	}

	s.dfs(st, 0)

	if !st.haveIncumbent {
		if st.timedOut {
			return nil, &TimeoutError{Budget: budget, Index: lineupIndex}
		}
		reason := "no feasible lineup remains"
		if len(prior) > 0 {
			reason = fmt.Sprintf("no feasible lineup remains after %d uniqueness cuts", len(prior))
		}
		return nil, &InfeasibleError{Class: "uniqueness", Reason: reason}
	}
	return st.incumbent, nil
}

func (s *solver) dfs(st *searchState, si int) {
	st.nodes++
	if st.nodes&deadlineCheckMask == 0 && time.Now().After(st.deadline) {
		st.timedOut = true
		return
	}
	if st.timedOut {
		return
	}

	if si == len(s.slots) {
		if s.leafFeasible(st) && (!st.haveIncumbent || st.value > st.incumbentValue) {
			st.incumbent = append(st.incumbent[:0], st.chosen...)
			st.incumbentValue = st.value
			st.haveIncumbent = true
		}
		return
	}

	// Bound: even the best completion cannot beat the incumbent
	if st.haveIncumbent && st.value+s.suffixBest[si] <= st.incumbentValue {
		return
	}

	remaining := len(s.slots) - si
	lockedLeft := s.numLocked - st.locked
	if lockedLeft > remaining {
		return
	}
	mustLock := lockedLeft == remaining

	players := s.pool.Players()
	for _, c := range s.candidates[si] {
		if st.used[c] {
			continue
		}
		isLocked := s.lockedIdx[c]
		if mustLock && !isLocked {
			continue
		}
		pl := players[c]
		if st.salary+pl.Salary+s.suffixMinSalary[si+1] > s.cons.SalaryCap {
			continue
		}
		if s.cons.MaxPerTeam > 0 && st.teamCount[pl.Team] >= s.cons.MaxPerTeam {
			continue
		}
		if st.prior != nil && s.violatesCut(st, c) {
			continue
		}

		st.used[c] = true
		st.chosen[si] = c
		st.salary += pl.Salary
		st.value += s.score.value(c)
		st.teamCount[pl.Team]++
		st.gameCount[pl.GameKey()]++
		if isLocked {
			st.locked++
		}
		if st.prior != nil {
			s.applyCut(st, c, 1)
		}

		s.dfs(st, si+1)

		if st.prior != nil {
			s.applyCut(st, c, -1)
		}
		if isLocked {
			st.locked--
		}
		st.gameCount[pl.GameKey()]--
		if st.gameCount[pl.GameKey()] == 0 {
			delete(st.gameCount, pl.GameKey())
		}
		st.teamCount[pl.Team]--
		st.value -= s.score.value(c)
		st.salary -= pl.Salary
		st.used[c] = false

		if st.timedOut {
			return
		}
	}
}

func (s *solver) violatesCut(st *searchState, c int) bool {
	for k, idxs := range st.prior {
		if st.overlaps[k] < st.maxOverlap {
			continue
		}
		for _, i := range idxs {
			if i == c {
				return true
			}
		}
	}
	return false
}

func (s *solver) applyCut(st *searchState, c int, delta int) {
	for k, idxs := range st.prior {
		for _, i := range idxs {
			if i == c {
				st.overlaps[k] += delta
				break
			}
		}
	}
}

// leafFeasible checks the constraints that only bind on a complete
// roster: salary floor, distinct-game minimum, lock coverage, stacks.
func (s *solver) leafFeasible(st *searchState) bool {
	if s.cons.SalaryFloor > 0 && st.salary < s.cons.SalaryFloor {
		return false
	}
	if s.cons.MinGames > 0 && len(st.gameCount) < s.cons.MinGames {
		return false
	}
	if st.locked < s.numLocked {
		return false
	}

	if len(s.cons.Stacks) > 0 {
		seen := make(map[string]bool, len(st.chosen))
		players := s.pool.Players()
		for _, c := range st.chosen {
			seen[players[c].ID] = true
		}
		for _, rule := range s.cons.Stacks {
			if !s.cons.stackSatisfied(s.pool, rule, seen, st.teamCount) {
				return false
			}
		}
	}
	return true
}
