package topology

import (
	"fmt"
	"testing"
)

func TestAddLink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		numBits int
		a, b    int
		setup   func(*Topology)
		wantErr bool
	}{
		{name: "ok", numBits: 3, a: 0, b: 1},
		{name: "self loop", numBits: 3, a: 1, b: 1, wantErr: true},
		{name: "a out of range", numBits: 3, a: -1, b: 1, wantErr: true},
		{name: "b out of range", numBits: 3, a: 0, b: 3, wantErr: true},
		{
			name: "duplicate", numBits: 3, a: 0, b: 1,
			setup:   func(top *Topology) { mustAddLink(t, top, 0, 1) },
			wantErr: true,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			top := New(test.numBits)
			if test.setup != nil {
				test.setup(top)
			}
			err := top.AddLink(test.a, test.b)
			if test.wantErr && err == nil {
				t.Fatalf("AddLink(%d,%d): want error, got nil", test.a, test.b)
			}
			if !test.wantErr && err != nil {
				t.Fatalf("AddLink(%d,%d): %+v", test.a, test.b, err)
			}
		})
	}
}

func mustAddLink(t *testing.T, top *Topology, a, b int) {
	if err := top.AddLink(a, b); err != nil {
		t.Fatalf("AddLink(%d,%d): %+v", a, b, err)
	}
}

func TestHasLinkAndLinkID(t *testing.T) {
	t.Parallel()
	top := New(4)
	mustAddLink(t, top, 0, 1)
	mustAddLink(t, top, 1, 2)

	if !top.HasLink(0, 1) {
		t.Fatalf("HasLink(0,1): want true")
	}
	if !top.HasLink(1, 0) {
		t.Fatalf("HasLink(1,0): want true, link is undirected")
	}
	if top.HasLink(0, 2) {
		t.Fatalf("HasLink(0,2): want false")
	}
	if top.HasLink(0, 99) {
		t.Fatalf("HasLink(0,99): want false for out-of-range site")
	}

	id, err := top.LinkID(0, 1)
	if err != nil {
		t.Fatalf("LinkID(0,1): %+v", err)
	}
	if id != 0 {
		t.Fatalf("LinkID(0,1): got %d, want 0", id)
	}

	if _, err := top.LinkID(0, 2); err == nil {
		t.Fatalf("LinkID(0,2): want error, no such link")
	}
	if _, err := top.LinkID(0, 99); err == nil {
		t.Fatalf("LinkID(0,99): want error, out of range")
	}
}

func TestNeighborsOf(t *testing.T) {
	t.Parallel()
	top := New(3)
	mustAddLink(t, top, 0, 1)
	mustAddLink(t, top, 1, 2)

	n := top.NeighborsOf(1)
	if len(n) != 2 {
		t.Fatalf("NeighborsOf(1): got %d neighbors, want 2", len(n))
	}
}

func TestIsConnected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		build func() *Topology
		want  bool
	}{
		{
			name: "empty topology",
			build: func() *Topology {
				return New(0)
			},
			want: true,
		},
		{
			name: "single site",
			build: func() *Topology {
				return New(1)
			},
			want: true,
		},
		{
			name: "chain of 5 is connected",
			build: func() *Topology {
				top := New(5)
				for i := 0; i < 4; i++ {
					mustAddLink(t, top, i, i+1)
				}
				return top
			},
			want: true,
		},
		{
			name: "two components of 5 sites is disconnected",
			build: func() *Topology {
				top := New(5)
				mustAddLink(t, top, 0, 1)
				mustAddLink(t, top, 1, 2)
				mustAddLink(t, top, 3, 4)
				return top
			},
			want: false,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := test.build().IsConnected()
			if got != test.want {
				t.Fatalf("IsConnected(): got %v, want %v", got, test.want)
			}
		})
	}
}

// chainTopology builds a 0-1-2-...-(n-1) chain.
func chainTopology(t *testing.T, n int) *Topology {
	top := New(n)
	for i := 0; i < n-1; i++ {
		mustAddLink(t, top, i, i+1)
	}
	return top
}

func TestRoute(t *testing.T) {
	t.Parallel()

	t.Run("same edge returns empty path", func(t *testing.T) {
		t.Parallel()
		top := chainTopology(t, 5)
		hops, err := top.Route(Edge{1, 2}, Edge{1, 2})
		if err != nil {
			t.Fatalf("Route: %+v", err)
		}
		if len(hops) != 0 {
			t.Fatalf("Route same edge: got %v, want empty", hops)
		}
	})

	t.Run("same edge reversed returns empty path", func(t *testing.T) {
		t.Parallel()
		top := chainTopology(t, 5)
		hops, err := top.Route(Edge{1, 2}, Edge{2, 1})
		if err != nil {
			t.Fatalf("Route: %+v", err)
		}
		if len(hops) != 0 {
			t.Fatalf("Route reversed edge: got %v, want empty", hops)
		}
	})

	t.Run("adjacent edge on chain", func(t *testing.T) {
		t.Parallel()
		top := chainTopology(t, 5)
		hops, err := top.Route(Edge{0, 1}, Edge{1, 2})
		if err != nil {
			t.Fatalf("Route: %+v", err)
		}
		want := []int{2}
		if !equalInts(hops, want) {
			t.Fatalf("Route(0-1 -> 1-2): got %v, want %v", hops, want)
		}
	})

	t.Run("multi hop on chain", func(t *testing.T) {
		t.Parallel()
		top := chainTopology(t, 5)
		hops, err := top.Route(Edge{0, 1}, Edge{3, 4})
		if err != nil {
			t.Fatalf("Route: %+v", err)
		}
		want := []int{2, 3, 4}
		if !equalInts(hops, want) {
			t.Fatalf("Route(0-1 -> 3-4): got %v, want %v", hops, want)
		}
	})

	t.Run("unreachable destination errors", func(t *testing.T) {
		t.Parallel()
		top := New(6)
		mustAddLink(t, top, 0, 1)
		mustAddLink(t, top, 1, 2)
		mustAddLink(t, top, 3, 4)
		mustAddLink(t, top, 4, 5)
		if _, err := top.Route(Edge{0, 1}, Edge{4, 5}); err == nil {
			t.Fatalf("Route across disconnected components: want error")
		}
	})

	t.Run("shortest hop count on a ring", func(t *testing.T) {
		t.Parallel()
		// 0-1-2-3-4-5-0, going the short way from edge (0,1) to edge (3,4)
		// should be no longer than going around the other side.
		top := New(6)
		for i := 0; i < 6; i++ {
			mustAddLink(t, top, i, (i+1)%6)
		}
		hops, err := top.Route(Edge{0, 1}, Edge{3, 4})
		if err != nil {
			t.Fatalf("Route: %+v", err)
		}
		if len(hops) > 3 {
			t.Fatalf("Route on ring: got %d hops %v, want shortest path of at most 3", len(hops), hops)
		}
	})
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ExampleTopology_Route() {
	top := New(4)
	top.AddLink(0, 1)
	top.AddLink(1, 2)
	top.AddLink(2, 3)

	hops, err := top.Route(Edge{0, 1}, Edge{2, 3})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(hops)
	// Output: [2 3]
}
