package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlayers() []Player {
	return []Player{
		{ID: "p1", Name: "Mahomes", Positions: []string{"QB"}, Team: "KC", Opponent: "BUF", Salary: 8200, Projection: 22.5, Floor: 14.0, Ceiling: 34.0, Ownership: 0.25},
		{ID: "p2", Name: "Kelce", Positions: []string{"TE"}, Team: "KC", Opponent: "BUF", Salary: 7400, Projection: 17.0, Ownership: 0.30},
		{ID: "p3", Name: "Diggs", Positions: []string{"WR"}, Team: "BUF", Opponent: "KC", Salary: 7800, Projection: 18.5, Ownership: 0.22},
	}
}

func TestNew_ValidPool(t *testing.T) {
	p, err := New(validPlayers())
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())

	pl, ok := p.ByID("p1")
	require.True(t, ok)
	assert.Equal(t, "Mahomes", pl.Name)
}

func TestNew_DerivesStdDev(t *testing.T) {
	p, err := New(validPlayers())
	require.NoError(t, err)

	// Floor/ceiling band present: quarter of the band width
	mahomes, _ := p.ByID("p1")
	assert.InDelta(t, (34.0-14.0)/4.0, mahomes.StdDev, 1e-9)

	// No band: 25% coefficient of variation
	kelce, _ := p.ByID("p2")
	assert.InDelta(t, 17.0*0.25, kelce.StdDev, 1e-9)
}

func TestNew_PreservesExplicitStdDev(t *testing.T) {
	players := validPlayers()
	players[0].StdDev = 9.5

	p, err := New(players)
	require.NoError(t, err)
	pl, _ := p.ByID("p1")
	assert.Equal(t, 9.5, pl.StdDev)
}

func TestNew_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Player) []Player
		field  string
	}{
		{
			name:   "empty pool",
			mutate: func(ps []Player) []Player { return nil },
		},
		{
			name: "duplicate id",
			mutate: func(ps []Player) []Player {
				ps[1].ID = ps[0].ID
				return ps
			},
			field: "id",
		},
		{
			name: "non-positive salary",
			mutate: func(ps []Player) []Player {
				ps[0].Salary = 0
				return ps
			},
			field: "salary",
		},
		{
			name: "no positions",
			mutate: func(ps []Player) []Player {
				ps[0].Positions = nil
				return ps
			},
			field: "positions",
		},
		{
			name: "ownership above one",
			mutate: func(ps []Player) []Player {
				ps[0].Ownership = 1.5
				return ps
			},
			field: "ownership",
		},
		{
			name: "projection outside band",
			mutate: func(ps []Player) []Player {
				ps[0].Projection = 40.0
				return ps
			},
			field: "projection",
		},
		{
			name: "locked and banned",
			mutate: func(ps []Player) []Player {
				ps[0].Locked = true
				ps[0].Banned = true
				return ps
			},
			field: "locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.mutate(validPlayers()))
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			if tt.field != "" {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestEligibleForSlot(t *testing.T) {
	players := validPlayers()
	players = append(players, Player{
		ID: "p4", Name: "McKinnon", Positions: []string{"RB"}, Team: "KC", Opponent: "BUF",
		Salary: 4800, Projection: 9.0, Banned: true,
	})
	p, err := New(players)
	require.NoError(t, err)

	flex := p.EligibleForSlot([]string{"RB", "WR", "TE"})
	ids := make([]string, 0, len(flex))
	for _, pl := range flex {
		ids = append(ids, pl.ID)
	}
	assert.ElementsMatch(t, []string{"p2", "p3"}, ids, "banned players never fill a slot")
}

func TestGameIndexes(t *testing.T) {
	p, err := New(validPlayers())
	require.NoError(t, err)

	assert.Equal(t, []string{"BUF@KC"}, p.Games())
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, p.GamePlayers("BUF@KC"))
	assert.ElementsMatch(t, []string{"p1", "p2"}, p.TeamPlayers("KC"))
	assert.Equal(t, []string{"BUF", "KC"}, p.Teams())
}
