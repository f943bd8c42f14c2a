package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/lineup-engine/internal/correlation"
	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/internal/pool"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
)

const histogramBins = 256

// LineupResult summarizes the simulated outcome distribution for one
// lineup. Percentiles are estimated from a fixed-bin histogram, so
// they carry a quantization error of one bin width.
type LineupResult struct {
	LineupID       string  `json:"lineup_id"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	P5             float64 `json:"p5"`
	P25            float64 `json:"p25"`
	P50            float64 `json:"p50"`
	P75            float64 `json:"p75"`
	P95            float64 `json:"p95"`
	ProbOverTarget float64 `json:"prob_over_target,omitempty"`
	WinProbability float64 `json:"win_probability,omitempty"`
	ROI            float64 `json:"roi,omitempty"`
}

// RunResult is the outcome of one simulation run. When the run is
// cancelled mid-flight, TrialsRun reflects only the completed chunks
// and Cancelled is set.
type RunResult struct {
	RunID        string         `json:"run_id"`
	TrialsRun    int            `json:"trials_run"`
	Seed         int64          `json:"seed"`
	Distribution Distribution   `json:"distribution"`
	Cancelled    bool           `json:"cancelled,omitempty"`
	Lineups      []LineupResult `json:"lineups"`
	Elapsed      time.Duration  `json:"elapsed"`
}

// Simulator runs correlated Monte Carlo outcome simulations over a
// fixed pool and correlation structure.
type Simulator struct {
	pool    *pool.Pool
	corr    *correlation.Matrix
	chol    *mat.TriDense
	cfg     Config
	sampler *sampler
	log     *logrus.Entry

	fieldMu    float64
	fieldSigma float64
}

// New prepares a simulator: validates configuration, factorizes the
// covariance once, and checks the run fits the memory budget.
// maxTrials of zero disables the trial ceiling.
func New(p *pool.Pool, corr *correlation.Matrix, cfg Config, maxTrials int) (*Simulator, error) {
	if err := cfg.validate(maxTrials); err != nil {
		return nil, err
	}
	if corr.Size() != p.Size() {
		return nil, &ConfigError{Reason: "correlation matrix does not match pool size"}
	}

	stdDevs := make([]float64, p.Size())
	for i, pl := range p.Players() {
		stdDevs[i] = pl.StdDev
	}
	chol, err := corr.CholeskyFactor(stdDevs)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		pool:    p,
		corr:    corr,
		chol:    chol,
		cfg:     cfg,
		sampler: newSampler(p, chol, cfg.Distribution),
		log:     logger.WithService("simulator"),
	}
	return s, nil
}

// EstimateMemory returns the working-set bytes a run over numLineups
// lineups would need with the current worker and chunk settings.
func (s *Simulator) EstimateMemory(numLineups int) int64 {
	n := int64(s.pool.Size())
	perWorkerScratch := 3 * n * 8 // z, correlated draw, scores
	perChunkPartial := int64(numLineups) * (histogramBins + 8) * 8
	numChunks := int64((s.cfg.Trials + s.cfg.ChunkSize - 1) / s.cfg.ChunkSize)
	cholBytes := n * n * 8
	return int64(s.cfg.Workers)*perWorkerScratch + numChunks*perChunkPartial + cholBytes
}

// chunkPartial holds one chunk's streaming aggregates. Partials are
// merged in chunk-index order so results are bit-for-bit identical no
// matter how many workers ran.
type chunkPartial struct {
	trials     int
	sum        []float64
	sumSq      []float64
	min        []float64
	max        []float64
	hist       [][]int64
	overTarget []int64
	wins       []int64
}

// Run simulates every lineup over cfg.Trials correlated trials.
// Identical seed, trial count, and distribution produce identical
// results regardless of worker count.
func (s *Simulator) Run(ctx context.Context, lineups []optimizer.Lineup) (*RunResult, error) {
	if len(lineups) == 0 {
		return nil, &ConfigError{Reason: "no lineups to simulate"}
	}

	runID := uuid.New().String()
	started := time.Now()
	log := s.log.WithFields(logrus.Fields{
		"run_id":       runID,
		"trials":       s.cfg.Trials,
		"seed":         s.cfg.Seed,
		"distribution": s.cfg.Distribution,
		"lineups":      len(lineups),
		"workers":      s.cfg.Workers,
	})
	log.Info("Starting simulation run")

	if s.cfg.MemoryBudgetBytes > 0 {
		if needed := s.EstimateMemory(len(lineups)); needed > s.cfg.MemoryBudgetBytes {
			return nil, &ResourceBudgetError{NeededBytes: needed, BudgetBytes: s.cfg.MemoryBudgetBytes}
		}
	}

	// Resolve lineup membership to dense pool indexes once.
	members := make([][]int, len(lineups))
	for li, l := range lineups {
		idxs := make([]int, 0, len(l.Slots))
		for _, sa := range l.Slots {
			i, ok := s.pool.Index(sa.PlayerID)
			if !ok {
				return nil, &ConfigError{Reason: "lineup references player outside the pool: " + sa.PlayerID}
			}
			idxs = append(idxs, i)
		}
		members[li] = idxs
	}

	bounds := s.histogramBounds(members)
	s.fitFieldModel(len(members[0]))

	numChunks := (s.cfg.Trials + s.cfg.ChunkSize - 1) / s.cfg.ChunkSize
	partials := make([]*chunkPartial, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	dispatched := 0
	for c := 0; c < numChunks; c++ {
		if gctx.Err() != nil {
			break
		}
		c := c
		dispatched++
		g.Go(func() error {
			trials := s.cfg.ChunkSize
			if rem := s.cfg.Trials - c*s.cfg.ChunkSize; rem < trials {
				trials = rem
			}
			partials[c] = s.runChunk(c, trials, members, bounds)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cancelled := ctx.Err() != nil

	// Merge in chunk order for determinism; on cancellation only the
	// contiguous completed prefix counts.
	merged := newChunkPartial(len(lineups), 0)
	for c := 0; c < dispatched; c++ {
		if partials[c] == nil {
			break
		}
		merged.absorb(partials[c])
	}

	if merged.trials == 0 {
		if cancelled {
			return nil, ctx.Err()
		}
		return nil, &ConfigError{Reason: "no trials completed"}
	}

	result := &RunResult{
		RunID:        runID,
		TrialsRun:    merged.trials,
		Seed:         s.cfg.Seed,
		Distribution: s.cfg.Distribution,
		Cancelled:    cancelled,
		Lineups:      s.summarize(lineups, merged, bounds),
		Elapsed:      time.Since(started),
	}

	log.WithFields(logrus.Fields{
		"trials_run": result.TrialsRun,
		"cancelled":  cancelled,
		"elapsed":    result.Elapsed,
	}).Info("Simulation run finished")

	return result, nil
}

func newChunkPartial(numLineups, trials int) *chunkPartial {
	cp := &chunkPartial{
		trials:     trials,
		sum:        make([]float64, numLineups),
		sumSq:      make([]float64, numLineups),
		min:        make([]float64, numLineups),
		max:        make([]float64, numLineups),
		hist:       make([][]int64, numLineups),
		overTarget: make([]int64, numLineups),
		wins:       make([]int64, numLineups),
	}
	for i := range cp.min {
		cp.min[i] = math.Inf(1)
		cp.max[i] = math.Inf(-1)
		cp.hist[i] = make([]int64, histogramBins)
	}
	return cp
}

func (cp *chunkPartial) absorb(other *chunkPartial) {
	cp.trials += other.trials
	for i := range cp.sum {
		cp.sum[i] += other.sum[i]
		cp.sumSq[i] += other.sumSq[i]
		if other.min[i] < cp.min[i] {
			cp.min[i] = other.min[i]
		}
		if other.max[i] > cp.max[i] {
			cp.max[i] = other.max[i]
		}
		for b := range cp.hist[i] {
			cp.hist[i][b] += other.hist[i][b]
		}
		cp.overTarget[i] += other.overTarget[i]
		cp.wins[i] += other.wins[i]
	}
}

// runChunk executes one chunk with its own deterministically seeded
// RNG, entirely independent of other chunks.
func (s *Simulator) runChunk(chunkIdx, trials int, members [][]int, bounds []histBounds) *chunkPartial {
	rng := rand.New(rand.NewSource(s.cfg.Seed + int64(chunkIdx)))
	cp := newChunkPartial(len(members), trials)

	n := s.pool.Size()
	z := make([]float64, n)
	corr := make([]float64, n)
	scores := make([]float64, n)

	var fieldDist gumbel
	simulateField := s.cfg.FieldSize > 1 && s.fieldSigma > 0
	if simulateField {
		fieldDist = s.fieldMaxDistribution()
	}

	for t := 0; t < trials; t++ {
		s.sampler.draw(rng, z, corr, scores)

		fieldMax := math.Inf(-1)
		if simulateField {
			fieldMax = fieldDist.sample(rng)
		}

		for li, idxs := range members {
			total := 0.0
			for _, i := range idxs {
				total += scores[i]
			}
			cp.sum[li] += total
			cp.sumSq[li] += total * total
			if total < cp.min[li] {
				cp.min[li] = total
			}
			if total > cp.max[li] {
				cp.max[li] = total
			}
			cp.hist[li][bounds[li].bin(total)]++
			if s.cfg.TargetScore > 0 && total > s.cfg.TargetScore {
				cp.overTarget[li]++
			}
			if simulateField && total > fieldMax {
				cp.wins[li]++
			}
		}
	}
	return cp
}

func (s *Simulator) summarize(lineups []optimizer.Lineup, m *chunkPartial, bounds []histBounds) []LineupResult {
	out := make([]LineupResult, len(lineups))
	trials := float64(m.trials)
	for li, l := range lineups {
		mean := m.sum[li] / trials
		variance := 0.0
		if m.trials > 1 {
			variance = (m.sumSq[li] - m.sum[li]*m.sum[li]/trials) / (trials - 1)
			if variance < 0 {
				variance = 0
			}
		}
		r := LineupResult{
			LineupID: l.ID,
			Mean:     mean,
			StdDev:   math.Sqrt(variance),
			Min:      m.min[li],
			Max:      m.max[li],
			P5:       bounds[li].percentile(m.hist[li], m.trials, 0.05),
			P25:      bounds[li].percentile(m.hist[li], m.trials, 0.25),
			P50:      bounds[li].percentile(m.hist[li], m.trials, 0.50),
			P75:      bounds[li].percentile(m.hist[li], m.trials, 0.75),
			P95:      bounds[li].percentile(m.hist[li], m.trials, 0.95),
		}
		if s.cfg.TargetScore > 0 {
			r.ProbOverTarget = float64(m.overTarget[li]) / trials
		}
		if s.cfg.FieldSize > 1 {
			r.WinProbability = float64(m.wins[li]) / trials
			if s.cfg.EntryFee > 0 && s.cfg.PrizePool > 0 {
				r.ROI = (r.WinProbability*s.cfg.PrizePool - s.cfg.EntryFee) / s.cfg.EntryFee
			}
		}
		out[li] = r
	}
	return out
}

// histBounds maps scores into fixed histogram bins spanning the
// analytic mean plus or minus five standard deviations.
type histBounds struct {
	lo, width float64
}

func (h histBounds) bin(v float64) int {
	if h.width <= 0 {
		return 0
	}
	b := int((v - h.lo) / h.width)
	if b < 0 {
		return 0
	}
	if b >= histogramBins {
		return histogramBins - 1
	}
	return b
}

func (h histBounds) percentile(hist []int64, trials int, q float64) float64 {
	target := int64(math.Ceil(q * float64(trials)))
	if target < 1 {
		target = 1
	}
	var cum int64
	for b, c := range hist {
		cum += c
		if cum >= target {
			// bin midpoint
			return h.lo + (float64(b)+0.5)*h.width
		}
	}
	return h.lo + float64(histogramBins)*h.width
}

// histogramBounds derives per-lineup bin ranges from the analytic
// lineup mean and variance under the correlated covariance.
func (s *Simulator) histogramBounds(members [][]int) []histBounds {
	players := s.pool.Players()
	out := make([]histBounds, len(members))
	for li, idxs := range members {
		mean := 0.0
		variance := 0.0
		for _, i := range idxs {
			mean += players[i].Projection
			for _, j := range idxs {
				variance += players[i].StdDev * players[j].StdDev * s.corr.At(i, j)
			}
		}
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)
		if sd == 0 {
			sd = math.Max(mean*0.25, 1)
		}
		lo := math.Max(mean-5*sd, 0)
		hi := mean + 5*sd
		out[li] = histBounds{lo: lo, width: (hi - lo) / histogramBins}
	}
	return out
}

// fitFieldModel estimates the score distribution of a typical field
// lineup from ownership-weighted projections. The field maximum over
// FieldSize entries is then approximated with a Gumbel extreme value
// distribution.
func (s *Simulator) fitFieldModel(rosterSize int) {
	players := s.pool.Players()
	var wSum, wProj, wVar float64
	for _, pl := range players {
		if pl.Ownership <= 0 {
			continue
		}
		wSum += pl.Ownership
		wProj += pl.Ownership * pl.Projection
		wVar += pl.Ownership * pl.StdDev * pl.StdDev
	}
	if wSum == 0 {
		s.fieldSigma = 0
		return
	}
	r := float64(rosterSize)
	s.fieldMu = wProj / wSum * r
	s.fieldSigma = math.Sqrt(wVar/wSum*r) * 1.15 // field lineups vary more than an average one
}

// gumbel is the extreme value approximation for the field maximum.
// Sampled by inverse transform so draws come from the chunk RNG.
type gumbel struct {
	mu, beta float64
}

func (g gumbel) sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return g.mu - g.beta*math.Log(-math.Log(u))
}

// fieldMaxDistribution fits the Gumbel approximation for the max of
// FieldSize normal field scores.
func (s *Simulator) fieldMaxDistribution() gumbel {
	n := float64(s.cfg.FieldSize)
	std := distuv.Normal{Mu: 0, Sigma: 1}
	// classic extreme value asymptotics for the normal maximum
	bn := std.Quantile(1.0 - 1.0/n)
	if bn <= 0 {
		bn = 1
	}
	return gumbel{
		mu:   s.fieldMu + s.fieldSigma*bn,
		beta: s.fieldSigma / bn,
	}
}
