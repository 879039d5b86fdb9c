// Package refsim is a brute-force dense statevector simulator used only
// by tests, to cross-check circuit.QCircuit's tensor-network contraction
// against an independent computation path on small qubit counts. It
// embeds each gate's matrix into the full 2^n x 2^n space and applies it
// by direct matrix-vector multiplication, a local-operator-times-identity
// Kronecker-product construction replayed gate by gate rather than
// summed once over a lattice.
package refsim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ttnsim/ttnsim/gate"
)

// State is a dense statevector over n qubits. Basis index idx has qubit
// 0 as its most significant bit: idx's bit (n-1-site) is site's value.
type State struct {
	n   int
	vec *mat.CDense
}

// New builds the product state with amplitudes[i] = (a0, a1) for qubit
// i, via the usual iterative doubling construction.
func New(amplitudes [][2]complex128) *State {
	n := len(amplitudes)
	cur := []complex128{1}
	for _, a := range amplitudes {
		next := make([]complex128, len(cur)*2)
		for j, v := range cur {
			next[2*j] = v * a[0]
			next[2*j+1] = v * a[1]
		}
		cur = next
	}
	return &State{n: n, vec: mat.NewCDense(len(cur), 1, cur)}
}

// NumQubits returns the number of qubits the state spans.
func (s *State) NumQubits() int { return s.n }

// Amplitude returns the amplitude of basis state idx.
func (s *State) Amplitude(idx int) complex128 {
	return s.vec.At(idx, 0)
}

// Norm returns the statevector's L2 norm.
func (s *State) Norm() float64 {
	dim := 1 << s.n
	var sum float64
	for idx := 0; idx < dim; idx++ {
		v := s.vec.At(idx, 0)
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

// ProbabilityOf returns the marginal probability that site reads value
// (0 or 1).
func (s *State) ProbabilityOf(site, value int) float64 {
	dim := 1 << s.n
	bit := s.n - 1 - site
	var p float64
	for idx := 0; idx < dim; idx++ {
		if (idx>>bit)&1 == value {
			v := s.vec.At(idx, 0)
			p += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return p
}

// ApplyOneSite left-multiplies the statevector by g's matrix, embedded
// at g.Site with identity on every other qubit.
func (s *State) ApplyOneSite(g gate.OneSite) {
	full := s.embedOneSite(g.Matrix(), g.Site)
	s.vec = matVecMul(full, s.vec)
}

// ApplyTwoSite left-multiplies the statevector by g's matrix, embedded
// jointly at g.Site1, g.Site2 with identity on every other qubit.
func (s *State) ApplyTwoSite(g gate.TwoSite) {
	full := s.embedTwoSite(g.Matrix(), g.Site1, g.Site2)
	s.vec = matVecMul(full, s.vec)
}

// embedOneSite builds the dim x dim matrix that acts as m on site and as
// identity everywhere else, by direct basis enumeration: row and col can
// only differ in the bit belonging to site.
func (s *State) embedOneSite(m [][]complex128, site int) *mat.CDense {
	dim := 1 << s.n
	bit := s.n - 1 - site
	full := mat.NewCDense(dim, dim, nil)
	for row := 0; row < dim; row++ {
		for col := 0; col < dim; col++ {
			if row&^(1<<bit) != col&^(1<<bit) {
				continue
			}
			ri := (row >> bit) & 1
			ci := (col >> bit) & 1
			if v := m[ri][ci]; v != 0 {
				full.Set(row, col, v)
			}
		}
	}
	return full
}

// embedTwoSite is embedOneSite generalized to a pair of sites, with m
// indexed as m[2*r1+r2][2*c1+c2] to match gate.TwoSite.Matrix's basis
// convention.
func (s *State) embedTwoSite(m [][]complex128, site1, site2 int) *mat.CDense {
	dim := 1 << s.n
	bit1 := s.n - 1 - site1
	bit2 := s.n - 1 - site2
	mask := (1 << bit1) | (1 << bit2)
	full := mat.NewCDense(dim, dim, nil)
	for row := 0; row < dim; row++ {
		for col := 0; col < dim; col++ {
			if row&^mask != col&^mask {
				continue
			}
			r1, r2 := (row>>bit1)&1, (row>>bit2)&1
			c1, c2 := (col>>bit1)&1, (col>>bit2)&1
			if v := m[2*r1+r2][2*c1+c2]; v != 0 {
				full.Set(row, col, v)
			}
		}
	}
	return full
}

func matVecMul(full, vec *mat.CDense) *mat.CDense {
	n, _ := full.Dims()
	out := mat.NewCDense(n, 1, nil)
	for i := 0; i < n; i++ {
		var sum complex128
		for j := 0; j < n; j++ {
			sum += full.At(i, j) * vec.At(j, 0)
		}
		out.Set(i, 0, sum)
	}
	return out
}
