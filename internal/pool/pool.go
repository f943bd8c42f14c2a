package pool

import (
	"fmt"
	"sort"
)

// Player is one eligible entry in the slate. Positions may list several
// roster positions (multi-eligibility); Salary is in site dollars.
type Player struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Positions  []string `json:"positions"`
	Team       string   `json:"team"`
	Opponent   string   `json:"opponent"`
	Salary     int      `json:"salary"`
	Projection float64  `json:"projection"`
	Floor      float64  `json:"floor"`
	Ceiling    float64  `json:"ceiling"`
	StdDev     float64  `json:"std_dev"`
	Ownership  float64  `json:"ownership"` // projected, 0..1
	Locked     bool     `json:"locked"`
	Banned     bool     `json:"banned"`
}

// HasPosition reports whether the player is eligible at pos.
func (p Player) HasPosition(pos string) bool {
	for _, have := range p.Positions {
		if have == pos {
			return true
		}
	}
	return false
}

// GameKey returns an order-independent identifier for the player's game.
func (p Player) GameKey() string {
	if p.Team < p.Opponent {
		return fmt.Sprintf("%s@%s", p.Team, p.Opponent)
	}
	return fmt.Sprintf("%s@%s", p.Opponent, p.Team)
}

// ValidationError reports malformed input data in the player pool.
type ValidationError struct {
	PlayerID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.PlayerID == "" {
		return fmt.Sprintf("invalid player pool: %s", e.Reason)
	}
	return fmt.Sprintf("invalid player %s: %s %s", e.PlayerID, e.Field, e.Reason)
}

// Pool is the validated, read-only player universe for one run.
type Pool struct {
	players []Player
	byID    map[string]int
	byTeam  map[string][]string
	byGame  map[string][]string
}

// New validates the slate and builds the pool indexes. Players with a
// zero StdDev get one derived from their floor/ceiling band when
// provided, otherwise from a 25% coefficient of variation.
func New(players []Player) (*Pool, error) {
	if len(players) == 0 {
		return nil, &ValidationError{Reason: "empty player list"}
	}

	p := &Pool{
		players: make([]Player, len(players)),
		byID:    make(map[string]int, len(players)),
		byTeam:  make(map[string][]string),
		byGame:  make(map[string][]string),
	}
	copy(p.players, players)

	for i := range p.players {
		pl := &p.players[i]

		if pl.ID == "" {
			return nil, &ValidationError{PlayerID: pl.Name, Field: "id", Reason: "is empty"}
		}
		if _, dup := p.byID[pl.ID]; dup {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "id", Reason: "is duplicated"}
		}
		if pl.Salary <= 0 {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "salary", Reason: "must be positive"}
		}
		if len(pl.Positions) == 0 {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "positions", Reason: "must be non-empty"}
		}
		if pl.Ownership < 0 || pl.Ownership > 1 {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "ownership", Reason: "must be in [0,1]"}
		}
		if pl.StdDev < 0 {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "std_dev", Reason: "must be non-negative"}
		}
		hasBand := pl.Floor != 0 || pl.Ceiling != 0
		if hasBand && !(pl.Floor <= pl.Projection && pl.Projection <= pl.Ceiling) {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "projection", Reason: "must lie within [floor, ceiling]"}
		}
		if pl.Locked && pl.Banned {
			return nil, &ValidationError{PlayerID: pl.ID, Field: "locked", Reason: "conflicts with banned"}
		}

		if pl.StdDev == 0 {
			if hasBand && pl.Ceiling > pl.Floor {
				// 95% band approximation, same convention the projections feed uses
				pl.StdDev = (pl.Ceiling - pl.Floor) / 4.0
			} else {
				pl.StdDev = pl.Projection * 0.25
			}
		}

		p.byID[pl.ID] = i
		p.byTeam[pl.Team] = append(p.byTeam[pl.Team], pl.ID)
		p.byGame[pl.GameKey()] = append(p.byGame[pl.GameKey()], pl.ID)
	}

	return p, nil
}

// Players returns the pool in input order. Callers must not mutate.
func (p *Pool) Players() []Player {
	return p.players
}

// Size returns the number of players in the pool, banned included.
func (p *Pool) Size() int {
	return len(p.players)
}

// ByID looks up a player by identifier.
func (p *Pool) ByID(id string) (Player, bool) {
	i, ok := p.byID[id]
	if !ok {
		return Player{}, false
	}
	return p.players[i], true
}

// Index returns the dense index of a player, used by the correlation
// matrix and the simulator to address covariance rows.
func (p *Pool) Index(id string) (int, bool) {
	i, ok := p.byID[id]
	return i, ok
}

// EligibleForSlot returns players whose position set intersects the
// slot's eligible positions, excluding banned players.
func (p *Pool) EligibleForSlot(eligible []string) []Player {
	out := make([]Player, 0)
	for _, pl := range p.players {
		if pl.Banned {
			continue
		}
		for _, pos := range eligible {
			if pl.HasPosition(pos) {
				out = append(out, pl)
				break
			}
		}
	}
	return out
}

// Teams returns the sorted set of teams present in the pool.
func (p *Pool) Teams() []string {
	teams := make([]string, 0, len(p.byTeam))
	for t := range p.byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

// TeamPlayers returns the ids of all players on a team.
func (p *Pool) TeamPlayers(team string) []string {
	return p.byTeam[team]
}

// GamePlayers returns the ids of all players in a game.
func (p *Pool) GamePlayers(gameKey string) []string {
	return p.byGame[gameKey]
}

// Games returns the sorted set of game keys present in the pool.
func (p *Pool) Games() []string {
	games := make([]string, 0, len(p.byGame))
	for g := range p.byGame {
		games = append(games, g)
	}
	sort.Strings(games)
	return games
}
