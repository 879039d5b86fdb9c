package tensor

import (
	"math"
	"testing"
)

func TestIndexEqualAndPrime(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "s")
	b := NewIndex(2, "s")
	if a.Equal(b) {
		t.Fatalf("distinct indices must not be equal")
	}
	if !a.Equal(a) {
		t.Fatalf("an index must equal itself")
	}
	ap := a.Prime()
	if a.Equal(ap) {
		t.Fatalf("a primed index must not equal its unprimed self")
	}
	if !ap.Unprimed().Equal(a) {
		t.Fatalf("unpriming a primed index must recover the original")
	}
}

func TestAtAndSet(t *testing.T) {
	t.Parallel()
	s := NewIndex(2, "s")
	l := NewIndex(3, "l")
	ten := New(s, l)

	ten.Set(complex(1, 2), IV(s, 0), IV(l, 2))
	got := ten.At(IV(s, 0), IV(l, 2))
	if got != complex(1, 2) {
		t.Fatalf("At after Set: got %v, want %v", got, complex(1, 2))
	}
	if got := ten.At(IV(s, 1), IV(l, 0)); got != 0 {
		t.Fatalf("unset element: got %v, want 0", got)
	}
}

func TestMulContractsSharedIndices(t *testing.T) {
	t.Parallel()
	// A rank-2 identity contracted against a rank-1 vector on the shared
	// index should return the vector unchanged (up to relabeling).
	s := NewIndex(2, "s")
	sp := s.Prime()

	id := New(s, sp)
	id.Set(1, IV(s, 0), IV(sp, 0))
	id.Set(1, IV(s, 1), IV(sp, 1))

	v := New(sp)
	v.Set(complex(3, 0), IV(sp, 0))
	v.Set(complex(4, 0), IV(sp, 1))

	out := id.Mul(v)
	if out.Rank() != 1 {
		t.Fatalf("Mul rank: got %d, want 1", out.Rank())
	}
	if got := out.At(IV(s, 0)); got != complex(3, 0) {
		t.Fatalf("Mul(id,v)[s=0]: got %v, want 3", got)
	}
	if got := out.At(IV(s, 1)); got != complex(4, 0) {
		t.Fatalf("Mul(id,v)[s=1]: got %v, want 4", got)
	}
}

func TestMulOuterProductWhenNoSharedIndices(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(2, "b")
	ta := New(a)
	ta.Set(1, IV(a, 0))
	ta.Set(2, IV(a, 1))
	tb := New(b)
	tb.Set(10, IV(b, 0))
	tb.Set(20, IV(b, 1))

	out := ta.Mul(tb)
	if out.Rank() != 2 {
		t.Fatalf("outer product rank: got %d, want 2", out.Rank())
	}
	if got := out.At(IV(a, 1), IV(b, 0)); got != 20 {
		t.Fatalf("outer[1,0]: got %v, want 20", got)
	}
}

func TestMulFullContractionIsScalar(t *testing.T) {
	t.Parallel()
	s := NewIndex(2, "s")
	a := New(s)
	a.Set(complex(2, 0), IV(s, 0))
	a.Set(complex(3, 0), IV(s, 1))
	b := New(s)
	b.Set(complex(5, 0), IV(s, 0))
	b.Set(complex(7, 0), IV(s, 1))

	out := a.Mul(b)
	if out.Rank() != 0 {
		t.Fatalf("full contraction rank: got %d, want 0", out.Rank())
	}
	want := complex128(2*5 + 3*7)
	if got := out.Scalar(); got != want {
		t.Fatalf("Scalar(): got %v, want %v", got, want)
	}
}

func TestPrimeOnlyTargetedIndices(t *testing.T) {
	t.Parallel()
	s := NewIndex(2, "s")
	l := NewIndex(2, "l")
	ten := New(s, l)

	primed := ten.Prime(s)
	if _, ok := primed.HasIndex(s.Prime()); !ok {
		t.Fatalf("expected s to be primed")
	}
	if _, ok := primed.HasIndex(l); !ok {
		t.Fatalf("expected l to remain unprimed")
	}
}

func TestNormAndNormalized(t *testing.T) {
	t.Parallel()
	s := NewIndex(2, "s")
	ten := New(s)
	ten.Set(complex(3, 0), IV(s, 0))
	ten.Set(complex(4, 0), IV(s, 1))

	if got, want := ten.Norm(), 5.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("Norm(): got %v, want %v", got, want)
	}

	normed := ten.Normalized()
	if got := normed.Norm(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("Normalized().Norm(): got %v, want 1", got)
	}
}

func TestDagConjugates(t *testing.T) {
	t.Parallel()
	s := NewIndex(2, "s")
	ten := New(s)
	ten.Set(complex(1, 2), IV(s, 0))

	dag := ten.Dag()
	if got := dag.At(IV(s, 0)); got != complex(1, -2) {
		t.Fatalf("Dag(): got %v, want %v", got, complex(1, -2))
	}
}
