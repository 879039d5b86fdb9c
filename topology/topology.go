// Package topology implements the circuit connectivity graph: an undirected
// multigraph of qubit sites and the links between them, plus the
// shortest-path search the wavefunction's cursor uses to move across the
// network.
package topology

import (
	"github.com/pkg/errors"
)

// Neighbor is an oriented view of an undirected link: site is the neighbor
// reached, link is the id shared by both endpoints' adjacency entries.
type Neighbor struct {
	Site int
	Link int
}

// Topology is a fixed-size, undirected multigraph of qubit sites.
type Topology struct {
	numBits   int
	numLinks  int
	neighbors [][]Neighbor
}

// New returns an empty topology over numBits sites.
func New(numBits int) *Topology {
	return &Topology{
		numBits:   numBits,
		neighbors: make([][]Neighbor, numBits),
	}
}

// NumBits returns the number of sites.
func (t *Topology) NumBits() int { return t.numBits }

// NumLinks returns the number of links created so far.
func (t *Topology) NumLinks() int { return t.numLinks }

// AddLink creates an undirected link between a and b, assigning it the next
// link id. Returns an error if either site index is out of range, a == b,
// or a link between a and b already exists.
func (t *Topology) AddLink(a, b int) error {
	if err := t.checkSite(a); err != nil {
		return errors.Wrap(err, "")
	}
	if err := t.checkSite(b); err != nil {
		return errors.Wrap(err, "")
	}
	if a == b {
		return errors.Errorf("self-loop at site %d", a)
	}
	if t.HasLink(a, b) {
		return errors.Errorf("link already exists between %d and %d", a, b)
	}

	link := t.numLinks
	t.neighbors[a] = append(t.neighbors[a], Neighbor{Site: b, Link: link})
	t.neighbors[b] = append(t.neighbors[b], Neighbor{Site: a, Link: link})
	t.numLinks++
	return nil
}

// HasLink reports whether a link exists between a and b.
func (t *Topology) HasLink(a, b int) bool {
	if a < 0 || a >= t.numBits {
		return false
	}
	for _, n := range t.neighbors[a] {
		if n.Site == b {
			return true
		}
	}
	return false
}

// LinkID returns the id of the link between a and b.
func (t *Topology) LinkID(a, b int) (int, error) {
	if err := t.checkSite(a); err != nil {
		return 0, errors.Wrap(err, "")
	}
	for _, n := range t.neighbors[a] {
		if n.Site == b {
			return n.Link, nil
		}
	}
	return 0, errors.Errorf("no link between %d and %d", a, b)
}

// NeighborsOf returns the neighbors of site i.
func (t *Topology) NeighborsOf(i int) []Neighbor {
	return t.neighbors[i]
}

func (t *Topology) checkSite(i int) error {
	if i < 0 || i >= t.numBits {
		return errors.Errorf("site %d out of range [0,%d)", i, t.numBits)
	}
	return nil
}

// IsConnected reports whether every site is reachable from site 0.
func (t *Topology) IsConnected() bool {
	if t.numBits == 0 {
		return true
	}
	visited := make([]bool, t.numBits)
	queue := []int{0}
	visited[0] = true
	count := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range t.neighbors[cur] {
			if !visited[n.Site] {
				visited[n.Site] = true
				count++
				queue = append(queue, n.Site)
			}
		}
	}
	return count == t.numBits
}

// Edge is an ordered pair of sites spanning a link.
type Edge struct {
	A, B int
}

// Route returns the sequence of sites describing a movement from the
// origin edge to the dest edge, following the algorithm of spec.md §4.1: a
// two-seeded BFS starting simultaneously from both endpoints of origin, each
// marked reached-from-itself, expanding until a frontier site coincides with
// either endpoint of dest. The returned path excludes origin's endpoints and
// ends with whichever dest endpoint was not the one first reached.
//
// If both origin endpoints already coincide with dest (in either order), the
// empty path is returned. An unreachable dest is an error.
func (t *Topology) Route(origin, dest Edge) ([]int, error) {
	if samePair(origin, dest) {
		return nil, nil
	}

	parent := make(map[int]int)
	seedOf := make(map[int]int) // site -> which origin endpoint it was reached from
	visited := make(map[int]bool)

	type queued struct{ site, seed int }
	queue := []queued{
		{origin.A, origin.A},
		{origin.B, origin.B},
	}
	visited[origin.A] = true
	visited[origin.B] = true
	seedOf[origin.A] = origin.A
	seedOf[origin.B] = origin.B

	isDestEndpoint := func(site int) bool { return site == dest.A || site == dest.B }

	var reached int = -1
	reachedFound := false
	if isDestEndpoint(origin.A) {
		reached, reachedFound = origin.A, true
	} else if isDestEndpoint(origin.B) {
		reached, reachedFound = origin.B, true
	}

	for qi := 0; qi < len(queue) && !reachedFound; qi++ {
		cur := queue[qi]
		for _, n := range t.neighbors[cur.site] {
			if visited[n.Site] {
				continue
			}
			visited[n.Site] = true
			parent[n.Site] = cur.site
			seedOf[n.Site] = cur.seed
			queue = append(queue, queued{n.Site, cur.seed})

			if isDestEndpoint(n.Site) {
				reached, reachedFound = n.Site, true
				break
			}
		}
	}

	if !reachedFound {
		return nil, errors.Errorf("destination (%d,%d) unreachable from (%d,%d)", dest.A, dest.B, origin.A, origin.B)
	}

	// Reconstruct the hop sequence from the reached site back to its origin
	// seed, excluding the seed itself, then reverse to origin->reached order.
	var hops []int
	for site := reached; ; {
		p, ok := parent[site]
		if !ok {
			break
		}
		hops = append(hops, site)
		site = p
	}
	reverse(hops)

	other := dest.A
	if reached == dest.A {
		other = dest.B
	}
	hops = append(hops, other)

	return hops, nil
}

func samePair(a, b Edge) bool {
	return (a.A == b.A && a.B == b.B) || (a.A == b.B && a.B == b.A)
}

func reverse(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
