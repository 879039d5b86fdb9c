// Package circuit implements the wavefunction of a tree tensor-network
// quantum circuit simulator: one site tensor per qubit, one singular-value
// tensor per topology link, and a movable two-site canonical center that
// gate application and measurement operate against.
package circuit

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/ttnsim/ttnsim/gate"
	"github.com/ttnsim/ttnsim/tensor"
	"github.com/ttnsim/ttnsim/topology"
)

// Direction disambiguates which cursor endpoint a shift keeps as the
// pivot when the destination happens to be a neighbor of both.
type Direction int

const (
	Auto Direction = iota
	FirstAsHead
	SecondAsHead
)

// peelThreshold is the absolute singular-value floor below which a
// peripheral bond's inverse is not computed during decompose_psi's peel
// step; such singular values are numerically zero.
const peelThreshold = 1e-16

// QCircuit is the tensor-network wavefunction over a fixed Topology.
type QCircuit struct {
	topo *topology.Topology
	s    []tensor.Index
	M    []*tensor.Tensor
	SV   []*tensor.Tensor
	Psi  *tensor.Tensor

	c1, c2 int

	cutoff float64
	maxDim int

	rng  *rand.Rand
	diag Diagnostics
}

// Diagnostics receives the singular-value spectrum produced at every
// decompose_psi, keyed by the link id being decomposed. diagnostics.Recorder
// satisfies this interface; circuit itself never reads it back.
type Diagnostics interface {
	RecordSpectrum(link int, spectrum []float64) error
}

// Option configures New.
type Option func(*options)

type options struct {
	siteIndices []tensor.Index
	seed        *int64
	diag        Diagnostics
}

// WithSiteIndices supplies the physical site indices up front instead of
// allocating fresh ones, so that a second circuit can be built sharing
// them with the first -- required for Overlap.
func WithSiteIndices(idx []tensor.Index) Option {
	return func(o *options) { o.siteIndices = idx }
}

// WithSeed fixes the measurement RNG's seed, for reproducible tests.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithDiagnostics attaches a sink that records the singular-value spectrum
// observed at every decompose_psi.
func WithDiagnostics(d Diagnostics) Option {
	return func(o *options) { o.diag = d }
}

// New builds a wavefunction over topo, with qubit i initialized to
// amplitudes[i][0]|0> + amplitudes[i][1]|1>. Fails if topo is not
// connected.
func New(topo *topology.Topology, amplitudes [][2]complex128, opts ...Option) (*QCircuit, error) {
	if !topo.IsConnected() {
		return nil, errors.Errorf("circuit: topology is not connected")
	}
	n := topo.NumBits()
	if len(amplitudes) != n {
		return nil, errors.Errorf("circuit: expected %d initial amplitudes, got %d", n, len(amplitudes))
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s, err := resolveSiteIndices(n, o.siteIndices)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	endpoints := linkEndpoints(topo)
	linkIdx := make([][2]tensor.Index, topo.NumLinks())
	for l := range linkIdx {
		base := tensor.NewIndex(1, "link")
		linkIdx[l] = [2]tensor.Index{base, base.Prime()}
	}
	indexForSiteLink := func(site, link int) tensor.Index {
		if endpoints[link][0] == site {
			return linkIdx[link][0]
		}
		return linkIdx[link][1]
	}

	M := make([]*tensor.Tensor, n)
	for i := 0; i < n; i++ {
		inds := []tensor.Index{s[i]}
		for _, nb := range topo.NeighborsOf(i) {
			inds = append(inds, indexForSiteLink(i, nb.Link))
		}
		m := tensor.New(inds...)
		zeroLinks := make([]tensor.IndexVal, 0, len(inds)-1)
		for _, idx := range inds[1:] {
			zeroLinks = append(zeroLinks, tensor.IV(idx, 0))
		}
		m.Set(amplitudes[i][0], append([]tensor.IndexVal{tensor.IV(s[i], 0)}, zeroLinks...)...)
		m.Set(amplitudes[i][1], append([]tensor.IndexVal{tensor.IV(s[i], 1)}, zeroLinks...)...)
		M[i] = m
	}

	SV := make([]*tensor.Tensor, topo.NumLinks())
	for l := range SV {
		sv := tensor.New(linkIdx[l][0], linkIdx[l][1])
		sv.Set(1, tensor.IV(linkIdx[l][0], 0), tensor.IV(linkIdx[l][1], 0))
		SV[l] = sv
	}

	c1 := 0
	c2 := -1
	for _, nb := range topo.NeighborsOf(0) {
		if c2 == -1 || nb.Site < c2 {
			c2 = nb.Site
		}
	}
	if c2 == -1 {
		return nil, errors.Errorf("circuit: site 0 has no neighbors")
	}

	seed := time.Now().UnixNano()
	if o.seed != nil {
		seed = *o.seed
	}

	qc := &QCircuit{
		topo: topo,
		s:    s,
		M:    M,
		SV:   SV,
		c1:   c1,
		c2:   c2,
		rng:  rand.New(rand.NewSource(seed)),
		diag: o.diag,
	}
	qc.Psi = qc.centerAssembly()
	return qc, nil
}

func resolveSiteIndices(n int, given []tensor.Index) ([]tensor.Index, error) {
	if given == nil {
		s := make([]tensor.Index, n)
		for i := range s {
			s[i] = tensor.NewIndex(2, "site")
		}
		return s, nil
	}
	if len(given) != n {
		return nil, errors.Errorf("circuit: expected %d site indices, got %d", n, len(given))
	}
	return append([]tensor.Index{}, given...), nil
}

// linkEndpoints returns, for each link id, the (a, b) pair of sites it
// connects, with a the lower-numbered site first encountered while
// scanning sites in order.
func linkEndpoints(topo *topology.Topology) [][2]int {
	endpoints := make([][2]int, topo.NumLinks())
	seen := make([]bool, topo.NumLinks())
	for site := 0; site < topo.NumBits(); site++ {
		for _, nb := range topo.NeighborsOf(site) {
			if !seen[nb.Link] {
				endpoints[nb.Link] = [2]int{site, nb.Site}
				seen[nb.Link] = true
			}
		}
	}
	return endpoints
}

// SiteIndices returns the physical site indices, for sharing with a
// second circuit via WithSiteIndices.
func (c *QCircuit) SiteIndices() []tensor.Index {
	return append([]tensor.Index{}, c.s...)
}

// NumSites returns the number of qubits.
func (c *QCircuit) NumSites() int { return len(c.s) }

// Cursor returns the ordered pair of sites the canonical center currently
// spans.
func (c *QCircuit) Cursor() (int, int) { return c.c1, c.c2 }

// SetCutoff sets the relative singular-value truncation threshold used by
// every subsequent decompose_psi, returning c for chaining.
func (c *QCircuit) SetCutoff(v float64) *QCircuit {
	c.cutoff = v
	return c
}

// SetMaxDim sets the bond-dimension cap used by every subsequent
// decompose_psi, returning c for chaining. 0 means unbounded.
func (c *QCircuit) SetMaxDim(v int) *QCircuit {
	c.maxDim = v
	return c
}

func (c *QCircuit) Cutoff() float64 { return c.cutoff }
func (c *QCircuit) MaxDim() int     { return c.maxDim }

// Clone returns an independent copy of c. Since every tensor-producing
// operation allocates fresh Tensors rather than mutating in place, a
// shallow copy of the M and SV slices is sufficient: later writes on the
// clone's slices never touch the tensors the original still references.
func (c *QCircuit) Clone() *QCircuit {
	clone := *c
	clone.M = append([]*tensor.Tensor{}, c.M...)
	clone.SV = append([]*tensor.Tensor{}, c.SV...)
	clone.rng = rand.New(rand.NewSource(c.rng.Int63()))
	// Clones are scratch copies used internally by measurement and overlap;
	// they must not echo into the original's diagnostics sink.
	clone.diag = nil
	return &clone
}

// centerAssembly recomputes Psi from the current M, SV and cursor: the
// two center site tensors and their shared link, times every peripheral
// SV tensor attached to either center site.
func (c *QCircuit) centerAssembly() *tensor.Tensor {
	lstar, err := c.topo.LinkID(c.c1, c.c2)
	if err != nil {
		panic(errors.Wrap(err, "circuit: cursor does not span a link").Error())
	}
	psi := c.M[c.c1].Mul(c.SV[lstar]).Mul(c.M[c.c2])
	for _, nb := range c.topo.NeighborsOf(c.c1) {
		if nb.Link == lstar {
			continue
		}
		psi = psi.Mul(c.SV[nb.Link])
	}
	for _, nb := range c.topo.NeighborsOf(c.c2) {
		if nb.Link == lstar {
			continue
		}
		psi = psi.Mul(c.SV[nb.Link])
	}
	return psi
}

// peripheralPsiIndices returns, for each of end's incident links other
// than lstar, whichever of that link's two SV indices is currently a free
// index of psi (i.e. the one center assembly absorbed into it).
func peripheralPsiIndices(psi *tensor.Tensor, sv []*tensor.Tensor, neighbors []topology.Neighbor, lstar int) []tensor.Index {
	var out []tensor.Index
	for _, nb := range neighbors {
		if nb.Link == lstar {
			continue
		}
		for _, ind := range sv[nb.Link].Inds() {
			if _, ok := psi.HasIndex(ind); ok {
				out = append(out, ind)
				break
			}
		}
	}
	return out
}

// peelPeripheral factors SV[l]^-1 out of u for every peripheral link l of
// end (excluding lstar), restoring u's bare per-construction link axis in
// place of the SV-absorbed one that decompose_psi's SVD produced.
func peelPeripheral(u *tensor.Tensor, sv []*tensor.Tensor, neighbors []topology.Neighbor, lstar int) *tensor.Tensor {
	for _, nb := range neighbors {
		if nb.Link == lstar {
			continue
		}
		svT := sv[nb.Link]
		var shared, outer tensor.Index
		found := false
		for _, ind := range svT.Inds() {
			if _, ok := u.HasIndex(ind); ok {
				shared = ind
				found = true
			} else {
				outer = ind
			}
		}
		if !found {
			panic("circuit: peripheral link missing from decomposed tensor during peel")
		}

		inv := tensor.New(shared, outer)
		for i := 0; i < shared.Dim; i++ {
			sigma := real(svT.At(tensor.IV(shared, i), tensor.IV(outer, i)))
			if sigma < peelThreshold {
				break
			}
			inv.Set(complex(1/sigma, 0), tensor.IV(shared, i), tensor.IV(outer, i))
		}
		u = u.Mul(inv)
	}
	return u
}

// decomposePsi moves the orthogonality center across the cursor's link,
// truncating the bond per c.cutoff/c.maxDim, and writes the result back
// into M[c1], M[c2] and SV[lstar].
func (c *QCircuit) decomposePsi() error {
	lstar, err := c.topo.LinkID(c.c1, c.c2)
	if err != nil {
		return errors.Wrap(err, "")
	}

	rowIndices := append([]tensor.Index{c.s[c.c1]}, peripheralPsiIndices(c.Psi, c.SV, c.topo.NeighborsOf(c.c1), lstar)...)

	U, S, V, spectrum, err := c.Psi.SVD(rowIndices, c.cutoff, c.maxDim)
	if err != nil {
		return errors.Wrap(err, "")
	}
	S = S.Scaled(complex(1/S.Norm(), 0))

	U = peelPeripheral(U, c.SV, c.topo.NeighborsOf(c.c1), lstar)
	V = peelPeripheral(V, c.SV, c.topo.NeighborsOf(c.c2), lstar)

	c.M[c.c1] = U
	c.M[c.c2] = V
	c.SV[lstar] = S

	if c.diag != nil {
		if err := c.diag.RecordSpectrum(lstar, spectrum); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// ShiftCursorTo moves the cursor across one edge, from its current
// position to the edge (dest, pivot) or (pivot, dest) depending on
// direction, decomposing Psi and recomputing it at the new center.
func (c *QCircuit) ShiftCursorTo(dest int, direction Direction) error {
	if direction == Auto {
		switch {
		case c.topo.HasLink(c.c1, dest):
			direction = FirstAsHead
		case c.topo.HasLink(c.c2, dest):
			direction = SecondAsHead
		default:
			panic(errors.Errorf("circuit: contract violation: %d is not adjacent to the cursor (%d,%d)", dest, c.c1, c.c2).Error())
		}
	}

	if err := c.decomposePsi(); err != nil {
		return errors.Wrap(err, "")
	}

	switch direction {
	case FirstAsHead:
		c.c1, c.c2 = dest, c.c1
	case SecondAsHead:
		c.c1, c.c2 = c.c2, dest
	default:
		return errors.Errorf("circuit: invalid cursor direction")
	}

	c.Psi = c.centerAssembly()
	return nil
}

// MoveCursorTo brings the cursor onto the edge (d1, d2), routing through
// the topology one shift at a time.
func (c *QCircuit) MoveCursorTo(d1, d2 int) error {
	if !c.topo.HasLink(d1, d2) {
		return errors.Errorf("circuit: no link between %d and %d", d1, d2)
	}
	if coversEdge(c.c1, c.c2, d1, d2) {
		return nil
	}

	path, err := c.topo.Route(topology.Edge{A: c.c1, B: c.c2}, topology.Edge{A: d1, B: d2})
	if err != nil {
		return errors.Wrap(err, "")
	}
	for _, site := range path {
		if err := c.ShiftCursorTo(site, Auto); err != nil {
			return errors.Wrap(err, "")
		}
	}

	if coversEdge(c.c1, c.c2, d1, d2) {
		return nil
	}
	switch {
	case c.c1 == d1:
		return c.ShiftCursorTo(d2, FirstAsHead)
	case c.c1 == d2:
		return c.ShiftCursorTo(d1, FirstAsHead)
	case c.c2 == d1:
		return c.ShiftCursorTo(d2, SecondAsHead)
	case c.c2 == d2:
		return c.ShiftCursorTo(d1, SecondAsHead)
	default:
		return errors.Errorf("circuit: internal error: cursor (%d,%d) did not reach destination edge (%d,%d)", c.c1, c.c2, d1, d2)
	}
}

// MoveCursorAlong shifts the cursor through each site in path in turn,
// using AUTO direction disambiguation at each step.
func (c *QCircuit) MoveCursorAlong(path []int) error {
	for _, site := range path {
		if err := c.ShiftCursorTo(site, Auto); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func coversEdge(c1, c2, d1, d2 int) bool {
	return (c1 == d1 && c2 == d2) || (c1 == d2 && c2 == d1)
}

// applyOpAtCursor contracts op (whose free indices are the cursor sites'
// indices and their primed copies) into the primed Psi.
func (c *QCircuit) applyOpAtCursor(op *tensor.Tensor) {
	primed := c.Psi.Prime(c.s[c.c1], c.s[c.c2])
	c.Psi = op.Mul(primed)
}

// ApplyOneSite applies g, reusing the two-site mechanism by pairing it
// with an identity gate on an arbitrary neighbor of g.Site.
func (c *QCircuit) ApplyOneSite(g gate.OneSite) error {
	neighbors := c.topo.NeighborsOf(g.Site)
	if len(neighbors) == 0 {
		return errors.Errorf("circuit: site %d has no neighbors to pair with for gate application", g.Site)
	}
	return c.applyTwoOneSite(g, gate.OneSite{Kind: gate.Id, Site: neighbors[0].Site})
}

// ApplyTwoOneSite applies two independent one-site gates, on adjacent
// sites, in a single cursor move.
func (c *QCircuit) ApplyTwoOneSite(g1, g2 gate.OneSite) error {
	return c.applyTwoOneSite(g1, g2)
}

func (c *QCircuit) applyTwoOneSite(g1, g2 gate.OneSite) error {
	if err := c.MoveCursorTo(g1.Site, g2.Site); err != nil {
		return errors.Wrap(err, "")
	}
	op := g1.Op(c.s[g1.Site]).Mul(g2.Op(c.s[g2.Site]))
	c.applyOpAtCursor(op)
	return nil
}

// ApplyTwoSite applies a genuinely two-site gate.
func (c *QCircuit) ApplyTwoSite(g gate.TwoSite) error {
	if err := c.MoveCursorTo(g.Site1, g.Site2); err != nil {
		return errors.Wrap(err, "")
	}
	op := g.Op(c.s[g.Site1], c.s[g.Site2])
	c.applyOpAtCursor(op)
	return nil
}

// primeIndices returns copies of targets, each primed levels higher.
func primeIndices(targets []tensor.Index, levels int) []tensor.Index {
	out := append([]tensor.Index{}, targets...)
	for i := range out {
		for k := 0; k < levels; k++ {
			out[i] = out[i].Prime()
		}
	}
	return out
}

// primeTensor primes t's axes matching targets, levels levels higher.
// Tensor.Prime only bumps by one level per call and matches against the
// axis's current value, so repeated levels requires re-deriving the
// match targets at each intermediate level.
func primeTensor(t *tensor.Tensor, targets []tensor.Index, levels int) *tensor.Tensor {
	cur := targets
	for k := 0; k < levels; k++ {
		t = t.Prime(cur...)
		cur = primeIndices(cur, 1)
	}
	return t
}

// primeForOverlap primes every index of b one level higher, except that
// link axes (anything that is not a bare physical site index) are primed
// two levels higher instead of one. A link's two construction-time
// copies are themselves only one prime level apart, so bumping b's link
// axes by the same single level used for site axes would let a peripheral
// link's own two flavors alias b's shifted copy of the same link and
// contract prematurely, before Overlap's dedicated per-edge step.
func (c *QCircuit) primeForOverlap() {
	for i := range c.M {
		var siteTargets, linkTargets []tensor.Index
		for _, ind := range c.M[i].Inds() {
			if ind.Equal(c.s[i]) {
				siteTargets = append(siteTargets, ind)
			} else {
				linkTargets = append(linkTargets, ind)
			}
		}
		m := primeTensor(c.M[i], siteTargets, 1)
		m = primeTensor(m, linkTargets, 2)
		c.M[i] = m
	}
	for l := range c.SV {
		c.SV[l] = primeTensor(c.SV[l], c.SV[l].Inds(), 2)
	}
}

// Overlap computes <a|op[0] (x) op[1] (x) ... |b>, where a and b must have
// been built sharing the same site indices. Both a and b are mutated
// destructively (canonicalized and, for b, fully primed); pass Clone()s
// to preserve the originals.
func Overlap(a, b *QCircuit, ops []gate.OneSite) (complex128, error) {
	if len(ops) != a.NumSites() || len(ops) != b.NumSites() {
		return 0, errors.Errorf("circuit: overlap needs one op per site")
	}
	if err := a.decomposePsi(); err != nil {
		return 0, errors.Wrap(err, "")
	}
	if err := b.decomposePsi(); err != nil {
		return 0, errors.Wrap(err, "")
	}
	b.primeForOverlap()

	ret := tensor.NewScalar(1)
	for i := 0; i < a.NumSites(); i++ {
		opT := ops[i].Op(a.s[i])
		ret = a.M[i].Dag().Mul(opT).Mul(ret).Mul(b.M[i])
	}

	seen := make([]bool, len(a.SV))
	for i := 0; i < a.NumSites(); i++ {
		for _, nb := range a.topo.NeighborsOf(i) {
			if seen[nb.Link] {
				continue
			}
			seen[nb.Link] = true
			ret = a.SV[nb.Link].Dag().Mul(ret).Mul(b.SV[nb.Link])
		}
	}

	return ret.Scalar(), nil
}

func identityOps(n, except int, op gate.OneSite) []gate.OneSite {
	ops := make([]gate.OneSite, n)
	for i := range ops {
		ops[i] = gate.OneSite{Kind: gate.Id, Site: i}
	}
	ops[except] = op
	return ops
}

// ProbabilityOf returns Re(<psi|Proj_x(site)|psi>) without mutating c.
func (c *QCircuit) ProbabilityOf(site, x int) (float64, error) {
	kind := gate.Proj0
	if x == 1 {
		kind = gate.Proj1
	}
	ops := identityOps(c.NumSites(), site, gate.OneSite{Kind: kind, Site: site})
	val, err := Overlap(c.Clone(), c.Clone(), ops)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return real(val), nil
}

// ProbabilityOfZero returns ProbabilityOf(site, 0).
func (c *QCircuit) ProbabilityOfZero(site int) (float64, error) {
	return c.ProbabilityOf(site, 0)
}

// ObserveQubit samples a projective measurement outcome for site,
// projects the state onto it, renormalizes, and returns the outcome.
func (c *QCircuit) ObserveQubit(site int) (int, error) {
	p0, err := c.ProbabilityOfZero(site)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	x := 0
	if c.rng.Float64() >= p0 {
		x = 1
	}
	if err := c.projectAndNormalize(site, x); err != nil {
		return 0, errors.Wrap(err, "")
	}
	return x, nil
}

// ResetQubit collapses site to |0>, projecting onto whichever outcome has
// nonzero probability and correcting with an X if it was |1>.
func (c *QCircuit) ResetQubit(site int) error {
	p0, err := c.ProbabilityOfZero(site)
	if err != nil {
		return errors.Wrap(err, "")
	}
	x := 0
	if p0 <= 0 {
		x = 1
	}
	if err := c.projectAndNormalize(site, x); err != nil {
		return errors.Wrap(err, "")
	}
	if x == 1 {
		return c.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: site})
	}
	return nil
}

func (c *QCircuit) projectAndNormalize(site, x int) error {
	kind := gate.Proj0
	if x == 1 {
		kind = gate.Proj1
	}
	neighbors := c.topo.NeighborsOf(site)
	if len(neighbors) == 0 {
		return errors.Errorf("circuit: site %d has no neighbors to pair with for projection", site)
	}
	if err := c.applyTwoOneSite(gate.OneSite{Kind: kind, Site: site}, gate.OneSite{Kind: gate.Id, Site: neighbors[0].Site}); err != nil {
		return errors.Wrap(err, "")
	}
	c.Psi = c.Psi.Normalized()
	return nil
}

// IsometryCheck contracts M[site] against its own conjugate over every
// axis except the one facing the cursor center, returning the resulting
// small matrix -- which should be close to identity for any site other
// than the cursor's two endpoints, per the canonical-form invariant.
func (c *QCircuit) IsometryCheck(site int) (*tensor.Tensor, error) {
	if site == c.c1 || site == c.c2 {
		return nil, errors.Errorf("circuit: site %d is a cursor endpoint, not isometric", site)
	}
	lstar, err := c.towardCenterLink(site)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	free := c.SV[lstar]
	var facing tensor.Index
	for _, ind := range free.Inds() {
		if _, ok := c.M[site].HasIndex(ind); ok {
			facing = ind
			break
		}
	}
	return c.M[site].Dag().Mul(c.M[site].Prime(facing)), nil
}

// towardCenterLink returns the id of the link on site's shortest path
// toward the cursor.
func (c *QCircuit) towardCenterLink(site int) (int, error) {
	path, err := c.topo.Route(topology.Edge{A: site, B: site}, topology.Edge{A: c.c1, B: c.c2})
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	next := site
	if len(path) > 0 {
		next = path[0]
	}
	return c.topo.LinkID(site, next)
}
