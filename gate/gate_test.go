package gate

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/ttnsim/ttnsim/tensor"
)

// asMatrix reads a materialized one-site gate tensor back into a 2x2
// matrix for easy comparison in tests.
func asMatrix(op *tensor.Tensor, row, col tensor.Index) [][]complex128 {
	out := make([][]complex128, 2)
	for i := 0; i < 2; i++ {
		out[i] = make([]complex128, 2)
		for j := 0; j < 2; j++ {
			out[i][j] = op.At(tensor.IV(row, i), tensor.IV(col, j))
		}
	}
	return out
}

func matMul2(a, b [][]complex128) [][]complex128 {
	out := make([][]complex128, 2)
	for i := 0; i < 2; i++ {
		out[i] = make([]complex128, 2)
		for j := 0; j < 2; j++ {
			out[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j]
		}
	}
	return out
}

func isIdentity2(m [][]complex128, eps float64) bool {
	want := [][]complex128{{1, 0}, {0, 1}}
	for i := range want {
		for j := range want[i] {
			if cmplx.Abs(m[i][j]-want[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

func TestOneSiteGatesAreSelfInverse(t *testing.T) {
	t.Parallel()
	tests := []Kind{X, H, Y, Z, Id}
	for _, kind := range tests {
		s := tensor.NewIndex(2, "s")
		g := OneSite{Kind: kind, Site: 0}
		m := asMatrix(g.Op(s), s, s.Prime())
		squared := matMul2(m, m)
		if !isIdentity2(squared, 1e-9) {
			t.Fatalf("kind %v: G*G is not identity: %v", kind, squared)
		}
	}
}

func TestHadamardMatrixSignConvention(t *testing.T) {
	t.Parallel()
	s := tensor.NewIndex(2, "s")
	g := OneSite{Kind: H, Site: 0}
	m := asMatrix(g.Op(s), s, s.Prime())

	// H|1> = (|0> - |1>)/sqrt2, i.e. column 1 is (1,-1)/sqrt2.
	want := complex(1/math.Sqrt2, 0)
	if cmplx.Abs(m[0][1]-want) > 1e-9 {
		t.Fatalf("H[0][1]: got %v, want %v", m[0][1], want)
	}
	if cmplx.Abs(m[1][1]+want) > 1e-9 {
		t.Fatalf("H[1][1]: got %v, want %v", m[1][1], -want)
	}
}

func TestProjectorsSumToIdentity(t *testing.T) {
	t.Parallel()
	s := tensor.NewIndex(2, "s")
	p0 := OneSite{Kind: Proj0, Site: 0}.Op(s)
	p1 := OneSite{Kind: Proj1, Site: 0}.Op(s)
	m0 := asMatrix(p0, s, s.Prime())
	m1 := asMatrix(p1, s, s.Prime())
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum := m0[i][j] + m1[i][j]
			want := complex128(0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(sum-want) > 1e-9 {
				t.Fatalf("Proj0+Proj1[%d][%d]: got %v, want %v", i, j, sum, want)
			}
		}
	}
}

func TestPGateIsDiagonalPhase(t *testing.T) {
	t.Parallel()
	s := tensor.NewIndex(2, "s")
	g := OneSite{Kind: P, Site: 0, Theta: math.Pi / 2}
	m := asMatrix(g.Op(s), s, s.Prime())
	if cmplx.Abs(m[0][0]-1) > 1e-9 {
		t.Fatalf("P[0][0]: got %v, want 1", m[0][0])
	}
	if cmplx.Abs(m[1][1]-1i) > 1e-9 {
		t.Fatalf("P(pi/2)[1][1]: got %v, want i", m[1][1])
	}
	if cmplx.Abs(m[0][1]) > 1e-9 || cmplx.Abs(m[1][0]) > 1e-9 {
		t.Fatalf("P gate must be diagonal: %v", m)
	}
}

func TestCNOTFlipsTargetOnControlOne(t *testing.T) {
	t.Parallel()
	s1 := tensor.NewIndex(2, "s1")
	s2 := tensor.NewIndex(2, "s2")
	g := TwoSite{Kind: CNOT, Site1: 0, Site2: 1}
	op := g.Op(s1, s2)

	// <control=1,target=1| CNOT |control=1,target=0> should be 1 (target
	// flipped), and <control=0,target=0| CNOT |control=0,target=0> should be 1
	// (target left alone).
	v := op.At(tensor.IV(s1, 1), tensor.IV(s1.Prime(), 1), tensor.IV(s2, 1), tensor.IV(s2.Prime(), 0))
	if cmplx.Abs(v-1) > 1e-9 {
		t.Fatalf("CNOT|1,0> should flip to |1,1>, amplitude got %v, want 1", v)
	}
	v2 := op.At(tensor.IV(s1, 0), tensor.IV(s1.Prime(), 0), tensor.IV(s2, 0), tensor.IV(s2.Prime(), 0))
	if cmplx.Abs(v2-1) > 1e-9 {
		t.Fatalf("CNOT|0,0> should stay |0,0>, amplitude got %v, want 1", v2)
	}
}

func TestMatrixMatchesOp(t *testing.T) {
	t.Parallel()
	s := tensor.NewIndex(2, "s")
	g := OneSite{Kind: H, Site: 0}
	fromOp := asMatrix(g.Op(s), s, s.Prime())
	fromMatrix := g.Matrix()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(fromOp[i][j]-fromMatrix[i][j]) > 1e-9 {
				t.Fatalf("Matrix()[%d][%d]: got %v, want %v (from Op)", i, j, fromMatrix[i][j], fromOp[i][j])
			}
		}
	}

	s1 := tensor.NewIndex(2, "s1")
	s2 := tensor.NewIndex(2, "s2")
	g2 := TwoSite{Kind: CNOT, Site1: 0, Site2: 1}
	op := g2.Op(s1, s2)
	m2 := g2.Matrix()
	for i1 := 0; i1 < 2; i1++ {
		for i2 := 0; i2 < 2; i2++ {
			for j1 := 0; j1 < 2; j1++ {
				for j2 := 0; j2 < 2; j2++ {
					v := op.At(tensor.IV(s1, i1), tensor.IV(s1.Prime(), j1), tensor.IV(s2, i2), tensor.IV(s2.Prime(), j2))
					want := m2[2*i1+i2][2*j1+j2]
					if cmplx.Abs(v-want) > 1e-9 {
						t.Fatalf("Matrix()[%d][%d]: got %v, want %v (from Op)", 2*i1+i2, 2*j1+j2, want, v)
					}
				}
			}
		}
	}
}

func TestSwapExchangesBasisStates(t *testing.T) {
	t.Parallel()
	s1 := tensor.NewIndex(2, "s1")
	s2 := tensor.NewIndex(2, "s2")
	g := TwoSite{Kind: Swap, Site1: 0, Site2: 1}
	op := g.Op(s1, s2)

	v := op.At(tensor.IV(s1, 1), tensor.IV(s1.Prime(), 0), tensor.IV(s2, 0), tensor.IV(s2.Prime(), 1))
	if cmplx.Abs(v-1) > 1e-9 {
		t.Fatalf("Swap|0,1> should become |1,0>, amplitude got %v, want 1", v)
	}
}
