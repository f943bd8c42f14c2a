package simulator

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/stitts-dev/lineup-engine/internal/pool"
)

// sampler draws one correlated score vector per trial. It owns no
// random state: callers pass a per-chunk rand.Rand so identical seeds
// reproduce identical draws regardless of scheduling.
type sampler struct {
	n      int
	mean   []float64
	stdDev []float64
	chol   *mat.TriDense
	dist   Distribution

	// moment-matched lognormal parameters, valid where lognormalOK
	muLog       []float64
	sigmaLog    []float64
	lognormalOK []bool
}

func newSampler(p *pool.Pool, chol *mat.TriDense, dist Distribution) *sampler {
	players := p.Players()
	s := &sampler{
		n:      len(players),
		mean:   make([]float64, len(players)),
		stdDev: make([]float64, len(players)),
		chol:   chol,
		dist:   dist,
	}
	for i, pl := range players {
		s.mean[i] = pl.Projection
		s.stdDev[i] = pl.StdDev
	}

	if dist == DistributionLognormal {
		s.muLog = make([]float64, s.n)
		s.sigmaLog = make([]float64, s.n)
		s.lognormalOK = make([]bool, s.n)
		for i := 0; i < s.n; i++ {
			m, sd := s.mean[i], s.stdDev[i]
			if m <= 0 || sd <= 0 {
				continue
			}
			v := math.Log(1.0 + (sd*sd)/(m*m))
			s.sigmaLog[i] = math.Sqrt(v)
			s.muLog[i] = math.Log(m) - v/2.0
			s.lognormalOK[i] = true
		}
	}
	return s
}

// draw fills scores with one correlated sample. z and corr are
// caller-owned scratch of length n, reused across trials.
func (s *sampler) draw(rng *rand.Rand, z, corr, scores []float64) {
	for i := 0; i < s.n; i++ {
		z[i] = rng.NormFloat64()
	}

	// corr = L·z, a zero-mean draw with the target covariance
	for i := 0; i < s.n; i++ {
		sum := 0.0
		for j := 0; j <= i; j++ {
			sum += s.chol.At(i, j) * z[j]
		}
		corr[i] = sum
	}

	switch s.dist {
	case DistributionLognormal:
		for i := 0; i < s.n; i++ {
			if s.lognormalOK[i] {
				// standardize back to N(0,1) with the correlation
				// structure intact, then map through the lognormal
				u := corr[i] / s.stdDev[i]
				scores[i] = math.Exp(s.muLog[i] + s.sigmaLog[i]*u)
			} else {
				scores[i] = math.Max(s.mean[i]+corr[i], 0)
			}
		}
	default:
		for i := 0; i < s.n; i++ {
			scores[i] = math.Max(s.mean[i]+corr[i], 0)
		}
	}
}
