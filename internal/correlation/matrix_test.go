package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/stitts-dev/lineup-engine/internal/pool"
)

func testPool(t *testing.T, n int) *pool.Pool {
	t.Helper()
	players := make([]pool.Player, n)
	for i := range players {
		players[i] = pool.Player{
			ID:         string(rune('a' + i)),
			Name:       "Player " + string(rune('A'+i)),
			Positions:  []string{"WR"},
			Team:       "KC",
			Opponent:   "BUF",
			Salary:     5000,
			Projection: 12.0,
			Ownership:  0.10,
		}
	}
	p, err := pool.New(players)
	require.NoError(t, err)
	return p
}

func TestBuild_DefaultsToIdentity(t *testing.T) {
	p := testPool(t, 4)
	m, err := Build(p, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, m.Size())
	assert.False(t, m.Adjusted)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				assert.Equal(t, 1.0, m.At(i, j))
			} else {
				assert.Equal(t, 0.0, m.At(i, j))
			}
		}
	}
}

func TestBuild_AppliesEntriesSymmetrically(t *testing.T) {
	p := testPool(t, 3)
	m, err := Build(p, []Entry{
		{A: "a", B: "b", Coeff: 0.5},
		{A: "b", B: "c", Coeff: -0.2},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.At(0, 1), 1e-9)
	assert.InDelta(t, 0.5, m.At(1, 0), 1e-9)
	assert.InDelta(t, -0.2, m.At(1, 2), 1e-9)
	assert.False(t, m.Adjusted)
}

func TestBuild_RejectsInvalidInput(t *testing.T) {
	p := testPool(t, 3)

	tests := []struct {
		name    string
		entries []Entry
	}{
		{"coefficient above one", []Entry{{A: "a", B: "b", Coeff: 1.2}}},
		{"coefficient below minus one", []Entry{{A: "a", B: "b", Coeff: -1.01}}},
		{"unknown player", []Entry{{A: "a", B: "zz", Coeff: 0.3}}},
		{"self correlation not one", []Entry{{A: "a", B: "a", Coeff: 0.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(p, tt.entries)
			var cerr *InvalidCorrelationError
			require.ErrorAs(t, err, &cerr)
		})
	}
}

func TestBuild_RepairsNonPSDMatrix(t *testing.T) {
	// Three mutually strong negative correlations cannot coexist: the
	// assembled matrix has a negative eigenvalue and must be clipped.
	p := testPool(t, 3)
	m, err := Build(p, []Entry{
		{A: "a", B: "b", Coeff: -0.9},
		{A: "a", B: "c", Coeff: -0.9},
		{A: "b", B: "c", Coeff: -0.9},
	})
	require.NoError(t, err)

	assert.True(t, m.Adjusted, "inconsistent input should trigger a repair")
	assert.Less(t, m.MinEigenvalue, 0.0)

	// Repaired matrix keeps a unit diagonal and factorizes
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, m.At(i, i), 1e-6)
	}
	var chol mat.Cholesky
	assert.True(t, chol.Factorize(m.Sym()), "repaired matrix must be PSD")

	// The repair should preserve the mutual-negative structure
	assert.Less(t, m.At(0, 1), 0.0)
	assert.Less(t, m.At(0, 2), 0.0)
	assert.Less(t, m.At(1, 2), 0.0)
}

func TestCholeskyFactor(t *testing.T) {
	p := testPool(t, 3)
	m, err := Build(p, []Entry{{A: "a", B: "b", Coeff: 0.6}})
	require.NoError(t, err)

	stdDevs := []float64{3.0, 4.0, 5.0}
	l, err := m.CholeskyFactor(stdDevs)
	require.NoError(t, err)

	// L L^T must reproduce the covariance entries
	var cov mat.Dense
	cov.Mul(l, l.T())
	assert.InDelta(t, 9.0, cov.At(0, 0), 1e-9)
	assert.InDelta(t, 0.6*3.0*4.0, cov.At(0, 1), 1e-9)
	assert.InDelta(t, 25.0, cov.At(2, 2), 1e-9)
}

func TestCholeskyFactor_LengthMismatch(t *testing.T) {
	p := testPool(t, 3)
	m, err := Build(p, nil)
	require.NoError(t, err)

	_, err = m.CholeskyFactor([]float64{1.0})
	assert.Error(t, err)
}

func TestDefaultEntries_NFLStackRules(t *testing.T) {
	players := []pool.Player{
		{ID: "qb", Positions: []string{"QB"}, Team: "KC", Opponent: "BUF", Salary: 8000, Projection: 22, Ownership: 0.2},
		{ID: "wr", Positions: []string{"WR"}, Team: "KC", Opponent: "BUF", Salary: 7000, Projection: 16, Ownership: 0.2},
		{ID: "oppwr", Positions: []string{"WR"}, Team: "BUF", Opponent: "KC", Salary: 7500, Projection: 17, Ownership: 0.2},
		{ID: "rb", Positions: []string{"RB"}, Team: "KC", Opponent: "BUF", Salary: 6500, Projection: 15, Ownership: 0.2},
		{ID: "oppdst", Positions: []string{"DST"}, Team: "BUF", Opponent: "KC", Salary: 3000, Projection: 7, Ownership: 0.1},
	}
	p, err := pool.New(players)
	require.NoError(t, err)

	byPair := make(map[string]float64)
	for _, e := range DefaultEntries(p, "nfl") {
		byPair[e.A+"/"+e.B] = e.Coeff
		byPair[e.B+"/"+e.A] = e.Coeff
	}

	assert.InDelta(t, 0.50, byPair["qb/wr"], 1e-9, "QB and his WR stack positively")
	assert.Greater(t, byPair["qb/oppwr"], 0.0, "game environment couples opposing pass catchers")
	assert.Less(t, byPair["rb/oppdst"], 0.0, "RB success suppresses the opposing DST")

	// Full default matrix must still be PSD-correctable
	m, err := Build(p, DefaultEntries(p, "nfl"))
	require.NoError(t, err)
	var chol mat.Cholesky
	assert.True(t, chol.Factorize(m.Sym()))
}
