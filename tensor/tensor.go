// Package tensor implements labelled tensors: dense arrays whose axes carry
// named Indices instead of bare positions, contracted by matching indices
// rather than by axis number. Raw storage and positional contraction are
// delegated to github.com/fumin/tensor; this package is the naming and
// bookkeeping layer the wavefunction is built on.
package tensor

import (
	"math"
	"sync/atomic"

	"github.com/pkg/errors"

	rawtensor "github.com/fumin/tensor"
)

var nextID int64

// Index is a named tensor axis. Two Indices are equal iff their ids and
// prime levels both match; a primed copy of an Index shares its id but is
// distinct for contraction purposes until explicitly unprimed.
type Index struct {
	id    int64
	Dim   int
	Tag   string
	prime int
}

// NewIndex allocates a fresh Index of the given dimension and descriptive
// tag. Every call returns an Index distinct from all previously allocated
// ones, including those with the same tag.
func NewIndex(dim int, tag string) Index {
	return Index{id: atomic.AddInt64(&nextID, 1), Dim: dim, Tag: tag}
}

// Equal reports whether two Indices refer to the same axis at the same
// prime level.
func (idx Index) Equal(other Index) bool {
	return idx.id == other.id && idx.prime == other.prime
}

// Prime returns a copy of idx one prime level higher.
func (idx Index) Prime() Index {
	idx.prime++
	return idx
}

// PrimeLevel returns idx's prime level.
func (idx Index) PrimeLevel() int { return idx.prime }

// Unprimed returns a copy of idx at prime level 0.
func (idx Index) Unprimed() Index {
	idx.prime = 0
	return idx
}

// IndexVal pairs an Index with a concrete basis value, used for element
// access: t.At(IV(s, 0), IV(l, 1)).
type IndexVal struct {
	Index Index
	Val   int
}

// IV constructs an IndexVal.
func IV(idx Index, val int) IndexVal {
	return IndexVal{Index: idx, Val: val}
}

// Tensor is a rank-k array whose axes are labelled by Index. The
// underlying storage is a github.com/fumin/tensor Dense, whose axis order
// always matches inds.
type Tensor struct {
	inds []Index
	data *rawtensor.Dense
}

// New allocates a zero Tensor over the given indices, in the given axis
// order.
func New(inds ...Index) *Tensor {
	shape := shapeOf(inds)
	return &Tensor{inds: append([]Index{}, inds...), data: rawtensor.Zeros(shape...)}
}

func shapeOf(inds []Index) []int {
	shape := make([]int, len(inds))
	for i, idx := range inds {
		shape[i] = idx.Dim
	}
	if len(shape) == 0 {
		return []int{1}
	}
	return shape
}

// Inds returns the Tensor's axis labels, in storage order.
func (t *Tensor) Inds() []Index {
	return append([]Index{}, t.inds...)
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.inds) }

// HasIndex reports whether idx (matched by id and prime level) labels one
// of t's axes, and if so at which position.
func (t *Tensor) HasIndex(idx Index) (int, bool) {
	for axis, ind := range t.inds {
		if ind.Equal(idx) {
			return axis, true
		}
	}
	return 0, false
}

// At returns the element selected by assigning every axis a value via ivs.
// Every axis of t must be assigned exactly once.
func (t *Tensor) At(ivs ...IndexVal) complex128 {
	idx, err := t.resolve(ivs)
	if err != nil {
		panic(errors.Wrap(err, "").Error())
	}
	return complex128(t.data.At(idx...))
}

// Set assigns value to the element selected by ivs. Every axis of t must
// be assigned exactly once.
func (t *Tensor) Set(value complex128, ivs ...IndexVal) {
	idx, err := t.resolve(ivs)
	if err != nil {
		panic(errors.Wrap(err, "").Error())
	}
	t.data.SetAt(idx, complex64(value))
}

func (t *Tensor) resolve(ivs []IndexVal) ([]int, error) {
	if len(t.inds) == 0 {
		// Scalar tensors are backed by a dim-1 placeholder axis.
		return []int{0}, nil
	}
	idx := make([]int, len(t.inds))
	filled := make([]bool, len(t.inds))
	for _, iv := range ivs {
		axis, ok := t.HasIndex(iv.Index)
		if !ok {
			return nil, errors.Errorf("tensor: index %q not present on this tensor", iv.Index.Tag)
		}
		idx[axis] = iv.Val
		filled[axis] = true
	}
	for axis, ok := range filled {
		if !ok {
			return nil, errors.Errorf("tensor: axis %q left unassigned", t.inds[axis].Tag)
		}
	}
	return idx, nil
}

// Scalar returns the sole element of a rank-0 tensor, as produced by
// fully contracting two tensors via Mul. It panics on any tensor that
// still has axes, including a rank-1 tensor of dimension 1.
func (t *Tensor) Scalar() complex128 {
	if len(t.inds) != 0 {
		panic("tensor: Scalar called on non-scalar tensor")
	}
	return complex128(t.data.At(0))
}

// NewScalar returns a rank-0 tensor holding v, the multiplicative identity
// for Mul chains such as the one overlap accumulates into.
func NewScalar(v complex128) *Tensor {
	t := New()
	t.Set(v)
	return t
}

// Mul contracts every index shared between t and other (matched by id and
// prime level), returning a new Tensor whose axes are t's unshared axes
// followed by other's unshared axes, in their respective original order.
// With no shared indices this is an outer product.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	if len(t.inds) == 0 {
		return other.Scaled(t.Scalar())
	}
	if len(other.inds) == 0 {
		return t.Scaled(other.Scalar())
	}

	usedA := make([]bool, len(t.inds))
	usedB := make([]bool, len(other.inds))
	var axes [][2]int
	for ai, ia := range t.inds {
		for bi, ib := range other.inds {
			if usedB[bi] {
				continue
			}
			if ia.Equal(ib) {
				axes = append(axes, [2]int{ai, bi})
				usedA[ai] = true
				usedB[bi] = true
				break
			}
		}
	}

	var outInds []Index
	for ai, ia := range t.inds {
		if !usedA[ai] {
			outInds = append(outInds, ia)
		}
	}
	for bi, ib := range other.inds {
		if !usedB[bi] {
			outInds = append(outInds, ib)
		}
	}

	dst := rawtensor.Zeros(shapeOf(outInds)...)
	rawtensor.Product(dst, t.data, other.data, axes)
	return &Tensor{inds: outInds, data: dst}
}

// Prime returns a copy of t (sharing its underlying data) in which every
// axis matching one of targets (by id and current prime level) is primed
// one level higher. With no targets, every axis is primed.
func (t *Tensor) Prime(targets ...Index) *Tensor {
	newInds := append([]Index{}, t.inds...)
	if len(targets) == 0 {
		for i := range newInds {
			newInds[i] = newInds[i].Prime()
		}
		return &Tensor{inds: newInds, data: t.data}
	}
	for i, ind := range t.inds {
		for _, target := range targets {
			if ind.Equal(target) {
				newInds[i] = ind.Prime()
				break
			}
		}
	}
	return &Tensor{inds: newInds, data: t.data}
}

// Dag returns the elementwise complex conjugate of t; its indices are
// unchanged.
func (t *Tensor) Dag() *Tensor {
	return &Tensor{inds: append([]Index{}, t.inds...), data: t.data.Conj()}
}

// Norm returns the Frobenius norm of t's elements.
func (t *Tensor) Norm() float64 {
	var sum float64
	for _, v := range t.data.All() {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

// Scaled returns a copy of t with every element multiplied by c.
func (t *Tensor) Scaled(c complex128) *Tensor {
	dst := rawtensor.Zeros(t.data.Shape()...)
	for idx, v := range t.data.All() {
		dst.SetAt(idx, complex64(complex128(v)*c))
	}
	return &Tensor{inds: append([]Index{}, t.inds...), data: dst}
}

// Normalized returns t scaled so that Norm() == 1. Panics if t is exactly
// zero.
func (t *Tensor) Normalized() *Tensor {
	n := t.Norm()
	if n == 0 {
		panic("tensor: cannot normalize a zero tensor")
	}
	return t.Scaled(complex(1/n, 0))
}
