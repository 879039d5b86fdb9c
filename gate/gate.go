// Package gate implements the fixed catalogue of one- and two-site quantum
// gates as labelled tensors. Each Kind materializes to a tensor whose free
// indices are the site index and its primed copy (one-site) or both sites
// and their primed copies (two-site), following the usual Kronecker-product
// construction for controlled gates.
package gate

import (
	"math"
	"math/cmplx"

	"github.com/ttnsim/ttnsim/tensor"
)

// Kind identifies a gate's matrix. Parametrized gates (P, U3, CP, CU3)
// carry their angles on the OneSite/TwoSite value itself.
type Kind int

const (
	Id Kind = iota
	X
	Y
	Z
	H
	Proj0
	Proj1
	Proj0To1
	Proj1To0
	P
	U3
	CNOT
	CY
	CZ
	CP
	CU3
	Swap
)

// OneSite is a gate acting on a single site.
type OneSite struct {
	Kind   Kind
	Site   int
	Theta  float64
	Phi    float64
	Lambda float64
}

// TwoSite is a gate acting jointly on two sites; by convention Site1 is the
// control for the controlled-gate kinds.
type TwoSite struct {
	Kind   Kind
	Site1  int
	Site2  int
	Theta  float64
	Phi    float64
	Lambda float64
}

var (
	matID = [][]complex128{
		{1, 0},
		{0, 1},
	}
	matX = [][]complex128{
		{0, 1},
		{1, 0},
	}
	matY = [][]complex128{
		{0, -1i},
		{1i, 0},
	}
	matZ = [][]complex128{
		{1, 0},
		{0, -1},
	}
	// H = (1/sqrt2)(Proj0 + Proj0To1 + Proj1To0 - Proj1), the sign
	// convention for which H|1> = (|0> - |1>)/sqrt2.
	matH = [][]complex128{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	}
	matProj0 = [][]complex128{
		{1, 0},
		{0, 0},
	}
	matProj1 = [][]complex128{
		{0, 0},
		{0, 1},
	}
	matProj0To1 = [][]complex128{
		{0, 0},
		{1, 0},
	}
	matProj1To0 = [][]complex128{
		{0, 1},
		{0, 0},
	}
)

func matP(theta float64) [][]complex128 {
	return [][]complex128{
		{1, 0},
		{0, cmplx.Exp(complex(0, theta))},
	}
}

// matU3 builds the SU(2) element with
// alpha = e^{-i(phi+lambda)/2} cos(theta/2), beta = -e^{-i(phi-lambda)/2}
// sin(theta/2), row1 = (alpha, beta), row2 = (-conj(beta), conj(alpha)).
func matU3(theta, phi, lambda float64) [][]complex128 {
	alpha := cmplx.Exp(complex(0, -(phi+lambda)/2)) * complex(math.Cos(theta/2), 0)
	beta := -cmplx.Exp(complex(0, -(phi-lambda)/2)) * complex(math.Sin(theta/2), 0)
	return [][]complex128{
		{alpha, beta},
		{-cmplx.Conj(beta), cmplx.Conj(alpha)},
	}
}

func oneSiteMatrix(g OneSite) [][]complex128 {
	switch g.Kind {
	case Id:
		return matID
	case X:
		return matX
	case Y:
		return matY
	case Z:
		return matZ
	case H:
		return matH
	case Proj0:
		return matProj0
	case Proj1:
		return matProj1
	case Proj0To1:
		return matProj0To1
	case Proj1To0:
		return matProj1To0
	case P:
		return matP(g.Theta)
	case U3:
		return matU3(g.Theta, g.Phi, g.Lambda)
	default:
		panic("gate: not a one-site kind")
	}
}

func twoSiteMatrix(g TwoSite) [][]complex128 {
	switch g.Kind {
	case CNOT:
		return controlled(matX)
	case CY:
		return controlled(matY)
	case CZ:
		return controlled(matZ)
	case CP:
		return controlled(matP(g.Theta))
	case CU3:
		return controlled(matU3(g.Theta, g.Phi, g.Lambda))
	case Swap:
		return matSwap
	default:
		panic("gate: not a two-site kind")
	}
}

// controlled builds Proj0 (x) Id + Proj1 (x) target, the standard
// controlled-gate construction.
func controlled(target [][]complex128) [][]complex128 {
	return addMat(kron(matProj0, matID), kron(matProj1, target))
}

var matSwap = [][]complex128{
	{1, 0, 0, 0},
	{0, 0, 1, 0},
	{0, 1, 0, 0},
	{0, 0, 0, 1},
}

func kron(a, b [][]complex128) [][]complex128 {
	ar, ac := len(a), len(a[0])
	br, bc := len(b), len(b[0])
	out := make([][]complex128, ar*br)
	for i := range out {
		out[i] = make([]complex128, ac*bc)
	}
	for i1 := 0; i1 < ar; i1++ {
		for j1 := 0; j1 < ac; j1++ {
			for i2 := 0; i2 < br; i2++ {
				for j2 := 0; j2 < bc; j2++ {
					out[i1*br+i2][j1*bc+j2] = a[i1][j1] * b[i2][j2]
				}
			}
		}
	}
	return out
}

func addMat(a, b [][]complex128) [][]complex128 {
	out := make([][]complex128, len(a))
	for i := range a {
		out[i] = make([]complex128, len(a[i]))
		for j := range a[i] {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

// Op materializes g as a tensor with free indices s (output) and s' (the
// primed, input copy).
func (g OneSite) Op(s tensor.Index) *tensor.Tensor {
	return matrixToTensor2(oneSiteMatrix(g), s, s.Prime())
}

// Op materializes g as a tensor with free indices s1, s1', s2, s2'. By
// convention s1 is the control for controlled-gate kinds.
func (g TwoSite) Op(s1, s2 tensor.Index) *tensor.Tensor {
	return matrixToTensor4(twoSiteMatrix(g), s1, s1.Prime(), s2, s2.Prime())
}

// Matrix returns g's 2x2 matrix, row-major, output index first.
func (g OneSite) Matrix() [][]complex128 {
	return oneSiteMatrix(g)
}

// Matrix returns g's 4x4 matrix in the basis |s1,s2>, row-major, output
// index first.
func (g TwoSite) Matrix() [][]complex128 {
	return twoSiteMatrix(g)
}

func matrixToTensor2(m [][]complex128, row, col tensor.Index) *tensor.Tensor {
	t := tensor.New(row, col)
	for i := 0; i < row.Dim; i++ {
		for j := 0; j < col.Dim; j++ {
			if m[i][j] != 0 {
				t.Set(m[i][j], tensor.IV(row, i), tensor.IV(col, j))
			}
		}
	}
	return t
}

func matrixToTensor4(m [][]complex128, row1, col1, row2, col2 tensor.Index) *tensor.Tensor {
	t := tensor.New(row1, col1, row2, col2)
	for i1 := 0; i1 < row1.Dim; i1++ {
		for i2 := 0; i2 < row2.Dim; i2++ {
			for j1 := 0; j1 < col1.Dim; j1++ {
				for j2 := 0; j2 < col2.Dim; j2++ {
					v := m[2*i1+i2][2*j1+j2]
					if v != 0 {
						t.Set(v, tensor.IV(row1, i1), tensor.IV(col1, j1), tensor.IV(row2, i2), tensor.IV(col2, j2))
					}
				}
			}
		}
	}
	return t
}
