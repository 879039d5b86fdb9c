package tensor

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/pkg/errors"

	rawtensor "github.com/fumin/tensor"
)

// smallestKeptSingularValue is the absolute floor below which a singular
// value is treated as numerical zero regardless of cutoff/max_dim.
const smallestKeptSingularValue = 1e-13

// SVD factors t as U*S*V, where U carries rowIndices plus a freshly
// allocated bond index, V carries the complementary indices plus the
// primed copy of that same bond, and S is the diagonal rank-2 tensor over
// both copies. Singular values below cutoff (relative to the largest) are
// discarded, and at most maxDim are kept; cutoff <= 0 or maxDim <= 0
// disables the corresponding limit. Returns the kept singular values in
// descending order as spectrum.
func (t *Tensor) SVD(rowIndices []Index, cutoff float64, maxDim int) (U, S, V *Tensor, spectrum []float64, err error) {
	var rowInds, colInds []Index
	rowSet := make(map[int64]bool)
	for _, r := range rowIndices {
		rowSet[r.id] = true
	}
	for _, ind := range t.inds {
		if rowSet[ind.id] {
			rowInds = append(rowInds, ind)
		} else {
			colInds = append(colInds, ind)
		}
	}
	if len(rowInds) != len(rowIndices) {
		return nil, nil, nil, nil, errors.Errorf("tensor: SVD row index not present on tensor")
	}

	perm := make([]int, 0, len(t.inds))
	for _, ind := range rowInds {
		axis, _ := t.HasIndex(ind)
		perm = append(perm, axis)
	}
	for _, ind := range colInds {
		axis, _ := t.HasIndex(ind)
		perm = append(perm, axis)
	}

	rowDim := dimsProduct(rowInds)
	colDim := dimsProduct(colInds)

	permuted := t.data.Transpose(perm...)
	mat := permuted.Reshape(rowDim, colDim)

	A := make([][]complex128, rowDim)
	for i := 0; i < rowDim; i++ {
		A[i] = make([]complex128, colDim)
		for j := 0; j < colDim; j++ {
			A[i][j] = complex128(mat.At(i, j))
		}
	}

	Umat, svals, Vmat := svdMatrix(A)

	kept := len(svals)
	if kept > 0 {
		top := svals[0]
		cut := 0
		for cut < kept {
			sv := svals[cut]
			if sv < smallestKeptSingularValue {
				break
			}
			if cutoff > 0 && top > 0 && sv < cutoff*top {
				break
			}
			if maxDim > 0 && cut >= maxDim {
				break
			}
			cut++
		}
		kept = cut
	}
	if kept == 0 {
		kept = 1 // never emit a dimension-0 bond
	}

	link := NewIndex(kept, "Link")

	uShape := append(dimsOf(rowInds), kept)
	uData := rawtensor.Zeros(rowDim, kept)
	for i := 0; i < rowDim; i++ {
		for j := 0; j < kept; j++ {
			uData.SetAt([]int{i, j}, complex64(Umat[i][j]))
		}
	}
	uData = uData.Reshape(uShape...)

	// svdMatrix's Vmat is the V of A = U*diag(S)*V^H, i.e. V itself; the
	// contraction U.Mul(S).Mul(V) performed at reconstruction time (and by
	// centerAssembly/decomposePsi) does not conjugate, so the tensor must
	// store V^H's entries here for that contraction to reproduce A.
	vShape := append(dimsOf(colInds), kept)
	vData := rawtensor.Zeros(colDim, kept)
	for i := 0; i < colDim; i++ {
		for j := 0; j < kept; j++ {
			vData.SetAt([]int{i, j}, complex64(cmplx.Conj(Vmat[i][j])))
		}
	}
	vData = vData.Reshape(vShape...)

	sData := rawtensor.Zeros(kept, kept)
	for i := 0; i < kept; i++ {
		var sv float64
		if i < len(svals) {
			sv = svals[i]
		}
		sData.SetAt([]int{i, i}, complex64(complex(sv, 0)))
	}

	spectrum = make([]float64, kept)
	for i := 0; i < kept; i++ {
		if i < len(svals) {
			spectrum[i] = svals[i]
		}
	}

	U = &Tensor{inds: append(append([]Index{}, rowInds...), link), data: uData}
	S = &Tensor{inds: []Index{link, link.Prime()}, data: sData}
	V = &Tensor{inds: append(append([]Index{}, colInds...), link.Prime()), data: vData}
	return U, S, V, spectrum, nil
}

func dimsOf(inds []Index) []int {
	out := make([]int, len(inds))
	for i, ind := range inds {
		out[i] = ind.Dim
	}
	return out
}

func dimsProduct(inds []Index) int {
	p := 1
	for _, ind := range inds {
		p *= ind.Dim
	}
	return p
}

// svdMatrix computes the thin singular value decomposition of A (m x n,
// row-major) via one-sided complex Jacobi rotations: A = U * diag(S) *
// V^H, with S returned in descending order and k = min(m,n) columns in U
// and V.
func svdMatrix(A [][]complex128) (U [][]complex128, S []float64, V [][]complex128) {
	m := len(A)
	n := 0
	if m > 0 {
		n = len(A[0])
	}
	if m >= n {
		return jacobiSVDThin(A, m, n)
	}
	At := make([][]complex128, n)
	for i := 0; i < n; i++ {
		At[i] = make([]complex128, m)
		for j := 0; j < m; j++ {
			At[i][j] = cmplx.Conj(A[j][i])
		}
	}
	Ut, s, Vt := jacobiSVDThin(At, n, m)
	return Vt, s, Ut
}

// jacobiSVDThin computes the SVD of an m x n matrix (m >= n) by repeatedly
// orthogonalizing pairs of columns with complex Givens-style rotations
// until the off-diagonal Gram-matrix mass is negligible, following the
// one-sided Jacobi method for complex matrices.
func jacobiSVDThin(A [][]complex128, m, n int) ([][]complex128, []float64, [][]complex128) {
	if n == 0 {
		return [][]complex128{}, []float64{}, [][]complex128{}
	}

	cols := make([][]complex128, n)
	for j := 0; j < n; j++ {
		cols[j] = make([]complex128, m)
		for i := 0; i < m; i++ {
			cols[j][i] = A[i][j]
		}
	}
	vcols := make([][]complex128, n)
	for j := 0; j < n; j++ {
		vcols[j] = make([]complex128, n)
		vcols[j][j] = 1
	}

	const maxSweeps = 60
	const tol = 1e-14
	for sweep := 0; sweep < maxSweeps; sweep++ {
		var offDiag float64
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				alpha, beta, gamma := colStats(cols[p], cols[q])
				gammaAbs := cmplx.Abs(gamma)
				offDiag += gammaAbs * gammaAbs
				if gammaAbs < tol*math.Sqrt((alpha+1)*(beta+1)) {
					continue
				}
				e := gamma / complex(gammaAbs, 0)
				zeta := (beta - alpha) / (2 * gammaAbs)
				tt := jacobiTan(zeta)
				c := 1 / math.Sqrt(1+tt*tt)
				s := tt * c
				rotateColumns(cols[p], cols[q], c, s, e)
				rotateColumns(vcols[p], vcols[q], c, s, e)
			}
		}
		if offDiag < tol*tol {
			break
		}
	}

	type col struct {
		sigma float64
		idx   int
	}
	order := make([]col, n)
	for j := 0; j < n; j++ {
		var sum float64
		for i := 0; i < m; i++ {
			sum += real(cols[j][i])*real(cols[j][i]) + imag(cols[j][i])*imag(cols[j][i])
		}
		order[j] = col{sigma: math.Sqrt(sum), idx: j}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].sigma > order[j].sigma })

	S := make([]float64, n)
	U := make([][]complex128, m)
	for i := range U {
		U[i] = make([]complex128, n)
	}
	V := make([][]complex128, n)
	for i := range V {
		V[i] = make([]complex128, n)
	}
	for rank, c := range order {
		S[rank] = c.sigma
		if c.sigma > smallestKeptSingularValue {
			inv := complex(1/c.sigma, 0)
			for i := 0; i < m; i++ {
				U[i][rank] = cols[c.idx][i] * inv
			}
		}
		for i := 0; i < n; i++ {
			V[i][rank] = vcols[c.idx][i]
		}
	}
	return U, S, V
}

// colStats returns alpha = <a,a>, beta = <b,b> (both real), and
// gamma = <a,b> for two equal-length complex column vectors.
func colStats(a, b []complex128) (alpha, beta float64, gamma complex128) {
	for i := range a {
		alpha += real(a[i])*real(a[i]) + imag(a[i])*imag(a[i])
		beta += real(b[i])*real(b[i]) + imag(b[i])*imag(b[i])
		gamma += cmplx.Conj(a[i]) * b[i]
	}
	return
}

// jacobiTan returns the tangent of the real Jacobi rotation angle that
// diagonalizes a symmetric 2x2 block with off-diagonal zeta^-1 scaling,
// using the numerically stable formulation (no cancellation for small
// zeta).
func jacobiTan(zeta float64) float64 {
	if zeta == 0 {
		return 1
	}
	sign := 1.0
	if zeta < 0 {
		sign = -1
	}
	return sign / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
}

// rotateColumns applies the complex Jacobi rotation [[c, -s*conj(e)], [s*e,
// c]] to the pair of equal-length vectors (a, b) in place.
func rotateColumns(a, b []complex128, c, s float64, e complex128) {
	cc := complex(c, 0)
	sc := complex(s, 0)
	se := sc * e
	sce := sc * cmplx.Conj(e)
	for i := range a {
		ai, bi := a[i], b[i]
		a[i] = cc*ai - sce*bi
		b[i] = se*ai + cc*bi
	}
}
