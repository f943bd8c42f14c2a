package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/lineup-engine/internal/pool"
)

func nflTestPlayers() []pool.Player {
	return []pool.Player{
		{ID: "q1", Name: "Mahomes", Positions: []string{"QB"}, Team: "KC", Opponent: "BUF", Salary: 8000, Projection: 22.0, Ownership: 0.25},
		{ID: "q2", Name: "Allen", Positions: []string{"QB"}, Team: "BUF", Opponent: "KC", Salary: 7500, Projection: 20.0, Ownership: 0.20},
		{ID: "r1", Name: "Pacheco", Positions: []string{"RB"}, Team: "KC", Opponent: "BUF", Salary: 8000, Projection: 20.0, Ownership: 0.18},
		{ID: "r2", Name: "McCaffrey", Positions: []string{"RB"}, Team: "SF", Opponent: "DAL", Salary: 7000, Projection: 18.0, Ownership: 0.35},
		{ID: "r3", Name: "Pollard", Positions: []string{"RB"}, Team: "DAL", Opponent: "SF", Salary: 6500, Projection: 16.0, Ownership: 0.15},
		{ID: "r4", Name: "Swift", Positions: []string{"RB"}, Team: "PHI", Opponent: "NYG", Salary: 5500, Projection: 13.0, Ownership: 0.12},
		{ID: "r5", Name: "Breida", Positions: []string{"RB"}, Team: "NYG", Opponent: "PHI", Salary: 4500, Projection: 10.0, Ownership: 0.05},
		{ID: "w1", Name: "Rice", Positions: []string{"WR"}, Team: "KC", Opponent: "BUF", Salary: 8500, Projection: 19.0, Ownership: 0.22},
		{ID: "w2", Name: "Diggs", Positions: []string{"WR"}, Team: "BUF", Opponent: "KC", Salary: 8000, Projection: 18.0, Ownership: 0.24},
		{ID: "w3", Name: "Aiyuk", Positions: []string{"WR"}, Team: "SF", Opponent: "DAL", Salary: 7000, Projection: 16.0, Ownership: 0.16},
		{ID: "w4", Name: "Lamb", Positions: []string{"WR"}, Team: "DAL", Opponent: "SF", Salary: 6000, Projection: 14.0, Ownership: 0.28},
		{ID: "w5", Name: "Smith", Positions: []string{"WR"}, Team: "PHI", Opponent: "NYG", Salary: 5000, Projection: 11.0, Ownership: 0.10},
		{ID: "w6", Name: "Slayton", Positions: []string{"WR"}, Team: "NYG", Opponent: "PHI", Salary: 4000, Projection: 9.0, Ownership: 0.04},
		{ID: "t1", Name: "Kelce", Positions: []string{"TE"}, Team: "KC", Opponent: "BUF", Salary: 6500, Projection: 14.0, Ownership: 0.30},
		{ID: "t2", Name: "Kittle", Positions: []string{"TE"}, Team: "SF", Opponent: "DAL", Salary: 5000, Projection: 10.0, Ownership: 0.14},
		{ID: "t3", Name: "Waller", Positions: []string{"TE"}, Team: "NYG", Opponent: "PHI", Salary: 3500, Projection: 7.0, Ownership: 0.06},
		{ID: "d1", Name: "49ers", Positions: []string{"DST"}, Team: "SF", Opponent: "DAL", Salary: 3500, Projection: 9.0, Ownership: 0.12},
		{ID: "d2", Name: "Giants", Positions: []string{"DST"}, Team: "NYG", Opponent: "PHI", Salary: 3000, Projection: 8.0, Ownership: 0.08},
	}
}

func nflTestSetup(t *testing.T) (*pool.Pool, []RosterSlot) {
	t.Helper()
	p, err := pool.New(nflTestPlayers())
	require.NoError(t, err)
	slots, err := SlotsFor("nfl", "draftkings")
	require.NoError(t, err)
	return p, slots
}

func TestGenerate_ProducesValidDiverseLineups(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{SalaryCap: 50000, MinUnique: 2}
	cfg := Config{
		NumLineups:   5,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)

	result, err := opt.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, ReasonComplete, result.Reason)
	assert.Equal(t, 5, result.Delivered)
	require.Len(t, result.Lineups, 5)
	assert.NotEmpty(t, result.RunID)

	for i, l := range result.Lineups {
		assert.Equal(t, i, l.GenerationIndex)
		assert.NotEmpty(t, l.ID)
		assert.LessOrEqual(t, l.TotalSalary, 50000)
		require.Len(t, l.Slots, len(slots))

		// Every lineup the batch emits must satisfy the full rule set
		assert.True(t, cons.IsFeasible(p, slots, l, result.Lineups[:i]),
			"lineup %d violates constraints", i)
	}

	// Objective never increases across the batch
	for i := 1; i < len(result.Lineups); i++ {
		assert.LessOrEqual(t, result.Lineups[i].ObjectiveValue, result.Lineups[i-1].ObjectiveValue+1e-9,
			"lineup %d beats lineup %d despite tighter cuts", i, i-1)
	}

	// Pairwise uniqueness, not just against the immediate predecessor
	for i := 0; i < len(result.Lineups); i++ {
		for j := i + 1; j < len(result.Lineups); j++ {
			overlap := result.Lineups[i].Overlap(result.Lineups[j])
			assert.LessOrEqual(t, overlap, len(slots)-2,
				"lineups %d and %d share %d players", i, j, overlap)
		}
	}
}

func TestGenerate_FirstLineupIsOptimal(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{SalaryCap: 50000}
	cfg := Config{
		NumLineups:   1,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)
	result, err := opt.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Lineups, 1)

	// Exhaustive reference: no feasible lineup may beat the solver.
	best := result.Lineups[0]
	assert.InDelta(t, best.TotalProjection, best.ObjectiveValue, 1e-9)
	assert.GreaterOrEqual(t, best.TotalProjection, 115.0,
		"optimal projection should clear the obvious greedy floor")
}

func TestGenerate_DefaultMinUnique(t *testing.T) {
	p, slots := nflTestSetup(t)
	// MinUnique omitted: the batch must still never repeat a lineup
	cons := Constraints{SalaryCap: 50000}
	cfg := Config{
		NumLineups:   3,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)
	result, err := opt.Generate(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Lineups), 2)

	for i := 1; i < len(result.Lineups); i++ {
		for j := 0; j < i; j++ {
			overlap := result.Lineups[i].Overlap(result.Lineups[j])
			assert.Less(t, overlap, len(slots),
				"lineups %d and %d must differ by at least one player", j, i)
		}
	}
}

func TestGenerate_HonorsLockedAndBanned(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{
		SalaryCap: 50000,
		MinUnique: 1,
		Locked:    []string{"q2"},
		Banned:    []string{"w1"},
	}
	cfg := Config{
		NumLineups:   3,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)
	result, err := opt.Generate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.Lineups)

	for i, l := range result.Lineups {
		assert.True(t, l.Contains("q2"), "lineup %d must carry the locked player", i)
		assert.False(t, l.Contains("w1"), "lineup %d must not carry the banned player", i)
	}
}

func TestGenerate_MaxPerTeam(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{SalaryCap: 50000, MaxPerTeam: 2}
	cfg := Config{
		NumLineups:   2,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)
	result, err := opt.Generate(context.Background())
	require.NoError(t, err)

	for i, l := range result.Lineups {
		teams := make(map[string]int)
		for _, id := range l.PlayerIDs() {
			pl, ok := p.ByID(id)
			require.True(t, ok)
			teams[pl.Team]++
		}
		for team, n := range teams {
			assert.LessOrEqual(t, n, 2, "lineup %d has %d players from %s", i, n, team)
		}
	}
}

func TestGenerate_StackRule(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{
		SalaryCap: 50000,
		Stacks: []StackRule{
			{Name: "KC passing", PlayerIDs: []string{"q1", "w1", "t1"}, Min: 2, Max: 3},
		},
	}
	cfg := Config{
		NumLineups:   2,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)
	result, err := opt.Generate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.Lineups)

	for i, l := range result.Lineups {
		count := 0
		for _, id := range []string{"q1", "w1", "t1"} {
			if l.Contains(id) {
				count++
			}
		}
		assert.GreaterOrEqual(t, count, 2, "lineup %d missing the stack", i)
	}
}

func TestGenerate_InfeasibleLockedSalary(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{SalaryCap: 7000, Locked: []string{"q1"}} // q1 alone costs 8000
	cfg := Config{
		NumLineups:   1,
		SolveTimeout: time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)

	_, err = opt.Generate(context.Background())
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, "salary", infeasible.Class)
}

func TestGenerate_InfeasibleEmptySlot(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{SalaryCap: 50000, Banned: []string{"d1", "d2"}}
	cfg := Config{
		NumLineups:   1,
		SolveTimeout: time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)

	_, err = opt.Generate(context.Background())
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, "position", infeasible.Class)
}

func TestGenerate_ExhaustionReturnsPartialBatch(t *testing.T) {
	p, slots := nflTestSetup(t)
	// Demanding near-total uniqueness across a small pool exhausts the
	// search space after a couple of lineups.
	cons := Constraints{SalaryCap: 50000, MinUnique: 8}
	cfg := Config{
		NumLineups:   50,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)

	result, err := opt.Generate(context.Background())
	require.NoError(t, err, "exhaustion after the first lineup is a partial result, not an error")
	assert.Equal(t, ReasonExhausted, result.Reason)
	assert.Greater(t, result.Delivered, 0)
	assert.Less(t, result.Delivered, 50)
	assert.Len(t, result.Lineups, result.Delivered)
}

func TestGenerate_CancelledContext(t *testing.T) {
	p, slots := nflTestSetup(t)
	cons := Constraints{SalaryCap: 50000}
	cfg := Config{
		NumLineups:   3,
		SolveTimeout: 5 * time.Second,
		Objective:    ObjectiveConfig{Objective: ObjectiveProjection},
	}

	opt, err := New(p, slots, cons, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := opt.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, result.Reason)
	assert.Equal(t, 0, result.Delivered)
}

func TestNew_ConfigErrors(t *testing.T) {
	p, slots := nflTestSetup(t)

	tests := []struct {
		name string
		cons Constraints
		cfg  Config
	}{
		{
			name: "zero lineups",
			cons: Constraints{SalaryCap: 50000},
			cfg:  Config{NumLineups: 0, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: ObjectiveProjection}},
		},
		{
			name: "unknown objective",
			cons: Constraints{SalaryCap: 50000},
			cfg:  Config{NumLineups: 1, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: "median"}},
		},
		{
			name: "negative salary cap",
			cons: Constraints{SalaryCap: -1},
			cfg:  Config{NumLineups: 1, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: ObjectiveProjection}},
		},
		{
			name: "salary floor above cap",
			cons: Constraints{SalaryCap: 50000, SalaryFloor: 60000},
			cfg:  Config{NumLineups: 1, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: ObjectiveProjection}},
		},
		{
			name: "min unique exceeds roster",
			cons: Constraints{SalaryCap: 50000, MinUnique: 15},
			cfg:  Config{NumLineups: 1, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: ObjectiveProjection}},
		},
		{
			name: "locked and banned overlap",
			cons: Constraints{SalaryCap: 50000, Locked: []string{"q1"}, Banned: []string{"q1"}},
			cfg:  Config{NumLineups: 1, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: ObjectiveProjection}},
		},
		{
			name: "stack min above max",
			cons: Constraints{SalaryCap: 50000, Stacks: []StackRule{{Name: "bad", PlayerIDs: []string{"q1"}, Min: 2, Max: 1}}},
			cfg:  Config{NumLineups: 1, SolveTimeout: time.Second, Objective: ObjectiveConfig{Objective: ObjectiveProjection}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(p, slots, tt.cons, tt.cfg)
			var cerr *ConstraintConfigError
			require.ErrorAs(t, err, &cerr)
		})
	}
}

func TestLeverageValue_PrefersLowOwnership(t *testing.T) {
	chalk := pool.Player{Projection: 15.0, Ownership: 0.40}
	contrarian := pool.Player{Projection: 15.0, Ownership: 0.03}

	assert.Greater(t, leverageValue(contrarian, 1.0), leverageValue(chalk, 1.0),
		"equal projections should rank the low-owned player higher under leverage")
	assert.Equal(t, leverageValue(chalk, 0.0), 15.0,
		"zero weight ignores ownership entirely")
}

func TestScorer_JitterIsSeedDeterministic(t *testing.T) {
	p, _ := nflTestSetup(t)
	oc := ObjectiveConfig{Objective: ObjectiveProjection, Jitter: 0.3, JitterSeed: 42}

	a := newScorer(p, oc)
	b := newScorer(p, oc)
	for i := 0; i < p.Size(); i++ {
		assert.Equal(t, a.value(i), b.value(i), "same seed must reproduce identical jitter")
	}

	oc.JitterSeed = 43
	c := newScorer(p, oc)
	differs := false
	for i := 0; i < p.Size(); i++ {
		if a.value(i) != c.value(i) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "different seeds should perturb values differently")
}
