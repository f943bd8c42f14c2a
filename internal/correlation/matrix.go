package correlation

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/stitts-dev/lineup-engine/internal/pool"
	"github.com/stitts-dev/lineup-engine/pkg/logger"
)

// Entry is one pairwise correlation input between two players.
type Entry struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Coeff  float64 `json:"coeff"`
	Reason string  `json:"reason,omitempty"`
}

// InvalidCorrelationError reports malformed or uncorrectable
// correlation input.
type InvalidCorrelationError struct {
	Reason string
}

func (e *InvalidCorrelationError) Error() string {
	return fmt.Sprintf("invalid correlation input: %s", e.Reason)
}

// Matrix is the full pairwise player correlation matrix: symmetric,
// unit diagonal, positive semi-definite. Rows/columns are addressed by
// pool index. Read-only after Build, safe to share across workers.
type Matrix struct {
	n    int
	data *mat.SymDense

	// Adjusted is set when the raw pairwise entries were not jointly
	// consistent and eigenvalue clipping was applied.
	Adjusted      bool
	MinEigenvalue float64
}

// Size returns the matrix dimension (number of pool players).
func (m *Matrix) Size() int {
	return m.n
}

// At returns the correlation between pool indexes i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Sym exposes the underlying symmetric matrix for covariance assembly.
func (m *Matrix) Sym() *mat.SymDense {
	return m.data
}

// Build assembles the full matrix from pairwise entries, filling
// unspecified pairs with 0 and the diagonal with 1. Heuristic pairwise
// rules are not guaranteed jointly consistent, so the assembled matrix
// is repaired to the nearest PSD matrix by eigenvalue clipping: negative
// eigenvalues are clipped to zero, the matrix is reassembled and
// rescaled back to a unit diagonal. The repair is verified by a
// Cholesky factorization before the matrix is returned.
func Build(p *pool.Pool, entries []Entry) (*Matrix, error) {
	n := p.Size()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1.0)
	}

	for _, e := range entries {
		if e.Coeff < -1 || e.Coeff > 1 {
			return nil, &InvalidCorrelationError{
				Reason: fmt.Sprintf("coefficient %.3f for pair (%s,%s) outside [-1,1]", e.Coeff, e.A, e.B),
			}
		}
		i, ok := p.Index(e.A)
		if !ok {
			return nil, &InvalidCorrelationError{Reason: fmt.Sprintf("unknown player %s", e.A)}
		}
		j, ok := p.Index(e.B)
		if !ok {
			return nil, &InvalidCorrelationError{Reason: fmt.Sprintf("unknown player %s", e.B)}
		}
		if i == j {
			if e.Coeff != 1.0 {
				return nil, &InvalidCorrelationError{
					Reason: fmt.Sprintf("self-correlation for %s must be 1", e.A),
				}
			}
			continue
		}
		sym.SetSym(i, j, e.Coeff)
	}

	m := &Matrix{n: n, data: sym}

	if err := m.repairPSD(); err != nil {
		return nil, err
	}

	return m, nil
}

// repairPSD applies eigenvalue clipping when the assembled matrix is
// not positive semi-definite.
func (m *Matrix) repairPSD() error {
	var eig mat.EigenSym
	if ok := eig.Factorize(m.data, true); !ok {
		return &InvalidCorrelationError{Reason: "eigendecomposition failed"}
	}

	vals := eig.Values(nil)
	minEig := vals[0]
	for _, v := range vals {
		if v < minEig {
			minEig = v
		}
	}
	m.MinEigenvalue = minEig

	// A small negative tolerance absorbs floating-point noise without
	// triggering a full repair.
	const tol = -1e-10
	if minEig >= tol {
		return m.verifyCholesky()
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"min_eigenvalue": minEig,
		"dimension":      m.n,
	}).Warn("Correlation matrix not PSD, applying eigenvalue clipping")

	clipped := false
	for i, v := range vals {
		if v < 0 {
			vals[i] = 0
			clipped = true
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Reassemble V * diag(clipped) * V^T
	scaled := mat.NewDense(m.n, m.n, nil)
	for j := 0; j < m.n; j++ {
		for i := 0; i < m.n; i++ {
			scaled.Set(i, j, vecs.At(i, j)*vals[j])
		}
	}
	var rebuilt mat.Dense
	rebuilt.Mul(scaled, vecs.T())

	// Rescale so the diagonal is exactly 1 again
	d := make([]float64, m.n)
	for i := 0; i < m.n; i++ {
		di := rebuilt.At(i, i)
		if di <= 0 {
			return &InvalidCorrelationError{Reason: "uncorrectable matrix: zero diagonal after clipping"}
		}
		d[i] = 1.0 / math.Sqrt(di)
	}
	repaired := mat.NewSymDense(m.n, nil)
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			v := rebuilt.At(i, j) * d[i] * d[j]
			if i == j {
				v = 1.0
			} else if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			repaired.SetSym(i, j, v)
		}
	}

	m.data = repaired
	m.Adjusted = clipped

	return m.verifyCholesky()
}

// verifyCholesky confirms the matrix factors; the simulator depends on
// this succeeding.
func (m *Matrix) verifyCholesky() error {
	var chol mat.Cholesky
	if chol.Factorize(m.data) {
		return nil
	}

	// Clipping can land exactly on the PSD boundary; nudge the diagonal
	// by a tiny ridge so the factorization is strictly positive definite.
	ridged := mat.NewSymDense(m.n, nil)
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			v := m.data.At(i, j)
			if i == j {
				v += 1e-9
			}
			ridged.SetSym(i, j, v)
		}
	}
	if !chol.Factorize(ridged) {
		return &InvalidCorrelationError{Reason: "matrix not positive semi-definite after repair"}
	}
	m.data = ridged
	return nil
}

// CholeskyFactor returns the lower-triangular factor L with
// L L^T = correlation matrix scaled by the given per-player standard
// deviations (i.e. the covariance matrix factor the sampler uses).
func (m *Matrix) CholeskyFactor(stdDevs []float64) (*mat.TriDense, error) {
	if len(stdDevs) != m.n {
		return nil, fmt.Errorf("stddev vector length %d does not match matrix size %d", len(stdDevs), m.n)
	}

	cov := mat.NewSymDense(m.n, nil)
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			cov.SetSym(i, j, m.data.At(i, j)*stdDevs[i]*stdDevs[j])
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		// Degenerate stddevs (zeros) can make the covariance singular;
		// a small ridge keeps the factorization usable.
		for i := 0; i < m.n; i++ {
			cov.SetSym(i, i, cov.At(i, i)+1e-9)
		}
		if !chol.Factorize(cov) {
			return nil, fmt.Errorf("covariance matrix is not positive definite")
		}
	}

	var l mat.TriDense
	chol.LTo(&l)
	return &l, nil
}
