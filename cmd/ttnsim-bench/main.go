// Command ttnsim-bench runs the fixed suite of end-to-end scenarios used
// to validate circuit against known closed-form results, plus an
// optional user-supplied topology and gate script, and gathers the
// resulting overlap/probability/bond-dimension statistics into a CSV
// report on stdout. It mirrors cmd/run/main.go's solve/gather/main
// structure: each scenario is solved once into its own run directory,
// marked done, and later gathered for the final report.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/cmplx"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/ttnsim/ttnsim/builder"
	"github.com/ttnsim/ttnsim/circuit"
	"github.com/ttnsim/ttnsim/diagnostics"
	"github.com/ttnsim/ttnsim/gate"
	"github.com/ttnsim/ttnsim/qasmscript"
	"github.com/ttnsim/ttnsim/tensor"
	"github.com/ttnsim/ttnsim/topology"
)

const fnameDone = "done.txt"
const fnameResult = "result.json"

var (
	runDir       = flag.String("d", filepath.Join("runs", "ttnsim-bench"), "run directory")
	scriptPath   = flag.String("script", "", "optional path to a qasmscript gate-sequence file to run as an extra scenario")
	scriptSize   = flag.Int("script-sites", 0, "number of sites for the -script scenario's chain topology (required if -script is set)")
	scriptPeriod = flag.Bool("script-periodic", false, "close the -script scenario's chain into a ring")
)

// Result is one scenario's summary statistics.
type Result struct {
	Name          string  `json:"name"`
	Overlap0      float64 `json:"overlap0"`
	OverlapX      float64 `json:"overlapX"`
	SelfOverlap   float64 `json:"selfOverlap"`
	ProbZero      float64 `json:"probZero"`
	MaxBondDim    int     `json:"maxBondDim"`
	Failed        bool    `json:"failed"`
	FailureReason string  `json:"failureReason"`
}

func idOps(n int) []gate.OneSite {
	ops := make([]gate.OneSite, n)
	for i := range ops {
		ops[i] = gate.OneSite{Kind: gate.Id, Site: i}
	}
	return ops
}

func overlapAbs(a, b *circuit.QCircuit) (float64, error) {
	v, err := circuit.Overlap(a, b, idOps(a.NumSites()))
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return cmplx.Abs(v), nil
}

func zeroAmplitudes(n int) [][2]complex128 {
	out := make([][2]complex128, n)
	for i := range out {
		out[i] = [2]complex128{1, 0}
	}
	return out
}

func newZeroState(top *topology.Topology, siteIdx []tensor.Index, cutoff float64, dbPath string) (*circuit.QCircuit, *diagnostics.Recorder, error) {
	n := top.NumBits()
	opts := []circuit.Option{circuit.WithSeed(1)}
	if siteIdx != nil {
		opts = append(opts, circuit.WithSiteIndices(siteIdx))
	}
	var rec *diagnostics.Recorder
	if dbPath != "" {
		var err error
		rec, err = diagnostics.Open(dbPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "")
		}
		opts = append(opts, circuit.WithDiagnostics(rec))
	}
	c, err := circuit.New(top, zeroAmplitudes(n), opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	c.SetCutoff(cutoff)
	return c, rec, nil
}

// scenarioS1 replicates spec scenario S1: a single Hadamard on a
// periodic 8-site chain should leave site 0 with P(0) = 0.5.
func scenarioS1(dir string) (Result, error) {
	res := Result{Name: "S1_hadamard_probability"}
	top, err := builder.MakeChain(8, true)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	c, rec, err := newZeroState(top, nil, 1e-5, filepath.Join(dir, "diag.db"))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer rec.Close()
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 0}); err != nil {
		return res, errors.Wrap(err, "")
	}
	p, err := c.ProbabilityOfZero(0)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	res.ProbZero = p
	if res.MaxBondDim, err = rec.MaxBondDimension(); err != nil {
		return res, errors.Wrap(err, "")
	}
	return res, nil
}

// scenarioS2 replicates spec scenario S2: a Bell-like circuit on the
// IBMQ device topology.
func scenarioS2(dir string) (Result, error) {
	res := Result{Name: "S2_ibmq_bell"}
	top, err := builder.MakeIBMQTopology()
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	n := top.NumBits()

	b, rec, err := newZeroState(top, nil, 1e-5, filepath.Join(dir, "diag.db"))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer rec.Close()
	apply1 := func(g gate.OneSite) error { return b.ApplyOneSite(g) }
	apply2 := func(g gate.TwoSite) error { return b.ApplyTwoSite(g) }

	if err := apply1(gate.OneSite{Kind: gate.H, Site: 6}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply1(gate.OneSite{Kind: gate.X, Site: 11}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply1(gate.OneSite{Kind: gate.H, Site: 10}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply2(gate.TwoSite{Kind: gate.CNOT, Site1: 10, Site2: 11}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply2(gate.TwoSite{Kind: gate.CNOT, Site1: 6, Site2: 11}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply1(gate.OneSite{Kind: gate.H, Site: 6}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply1(gate.OneSite{Kind: gate.H, Site: 11}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := apply1(gate.OneSite{Kind: gate.H, Site: 10}); err != nil {
		return res, errors.Wrap(err, "")
	}

	zero, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(b.SiteIndices()), circuit.WithSeed(2))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	zero.SetCutoff(1e-5)

	flipped, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(b.SiteIndices()), circuit.WithSeed(3))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	flipped.SetCutoff(1e-5)
	for _, site := range []int{6, 10, 11} {
		if err := flipped.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: site}); err != nil {
			return res, errors.Wrap(err, "")
		}
	}

	o0, err := overlapAbs(zero.Clone(), b.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	ox, err := overlapAbs(flipped.Clone(), b.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	self, err := overlapAbs(b.Clone(), b.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	res.Overlap0 = o0
	res.OverlapX = ox
	res.SelfOverlap = self
	if res.MaxBondDim, err = rec.MaxBondDimension(); err != nil {
		return res, errors.Wrap(err, "")
	}
	return res, nil
}

// scenarioS3 replicates spec scenario S3: a GHZ-like preparation on a
// periodic chain, including a cursor detour that loops all the way
// around the ring before the closing CNOT.
func scenarioS3(dir string) (Result, error) {
	res := Result{Name: "S3_periodic_detour"}
	top, err := builder.MakeChain(8, true)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	n := top.NumBits()

	c, rec, err := newZeroState(top, nil, 1e-5, filepath.Join(dir, "diag.db"))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer rec.Close()
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 0}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: 1}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 2}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyTwoSite(gate.TwoSite{Kind: gate.CNOT, Site1: 2, Site2: 1}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.MoveCursorAlong([]int{3, 4, 5, 6, 7, 0}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyTwoSite(gate.TwoSite{Kind: gate.CNOT, Site1: 0, Site2: 1}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 0}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 1}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 2}); err != nil {
		return res, errors.Wrap(err, "")
	}

	allZero, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(c.SiteIndices()), circuit.WithSeed(2))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	allOne, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(c.SiteIndices()), circuit.WithSeed(3))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	for i := 0; i < n; i++ {
		if err := allOne.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: i}); err != nil {
			return res, errors.Wrap(err, "")
		}
	}

	o0, err := overlapAbs(allZero.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	o1, err := overlapAbs(allOne.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	self, err := overlapAbs(c.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	res.Overlap0 = o0
	res.OverlapX = o1
	res.SelfOverlap = self
	if res.MaxBondDim, err = rec.MaxBondDimension(); err != nil {
		return res, errors.Wrap(err, "")
	}
	return res, nil
}

// scenarioS4 replicates spec scenario S4: swapping a pair of sites
// should reproduce flipping the other.
func scenarioS4(dir string) (Result, error) {
	res := Result{Name: "S4_swap"}
	top, err := builder.MakeChain(8, false)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	n := top.NumBits()

	c, rec, err := newZeroState(top, nil, 1e-5, filepath.Join(dir, "diag.db"))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer rec.Close()
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.Id, Site: 0}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: 1}); err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := c.ApplyTwoSite(gate.TwoSite{Kind: gate.Swap, Site1: 0, Site2: 1}); err != nil {
		return res, errors.Wrap(err, "")
	}

	x0, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(c.SiteIndices()), circuit.WithSeed(2))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	if err := x0.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: 0}); err != nil {
		return res, errors.Wrap(err, "")
	}

	o, err := overlapAbs(x0.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	res.Overlap0 = o
	if res.MaxBondDim, err = rec.MaxBondDimension(); err != nil {
		return res, errors.Wrap(err, "")
	}
	return res, nil
}

func makeStarTopology() (*topology.Topology, error) {
	top := topology.New(6)
	for _, site := range []int{1, 2, 3, 4, 5} {
		if err := top.AddLink(0, site); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return top, nil
}

// scenarioS5 replicates spec scenario S5: a star-topology GHZ state.
func scenarioS5(dir string) (Result, error) {
	res := Result{Name: "S5_star_ghz"}
	top, err := makeStarTopology()
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	n := top.NumBits()

	c, rec, err := newZeroState(top, nil, 1e-5, filepath.Join(dir, "diag.db"))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer rec.Close()
	if err := c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: 0}); err != nil {
		return res, errors.Wrap(err, "")
	}
	for site := 1; site <= 5; site++ {
		if err := c.ApplyTwoSite(gate.TwoSite{Kind: gate.CNOT, Site1: 0, Site2: site}); err != nil {
			return res, errors.Wrap(err, "")
		}
	}

	allZero, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(c.SiteIndices()), circuit.WithSeed(2))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	allOne, err := circuit.New(top, zeroAmplitudes(n), circuit.WithSiteIndices(c.SiteIndices()), circuit.WithSeed(3))
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	for i := 0; i < n; i++ {
		if err := allOne.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: i}); err != nil {
			return res, errors.Wrap(err, "")
		}
	}

	o0, err := overlapAbs(allZero.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	o1, err := overlapAbs(allOne.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	self, err := overlapAbs(c.Clone(), c.Clone())
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	res.Overlap0 = o0
	res.OverlapX = o1
	res.SelfOverlap = self
	if res.MaxBondDim, err = rec.MaxBondDimension(); err != nil {
		return res, errors.Wrap(err, "")
	}
	return res, nil
}

// scenarioS6 replicates spec scenario S6: a disconnected topology must
// be rejected at construction time.
func scenarioS6(dir string) (Result, error) {
	res := Result{Name: "S6_disconnected_rejected"}
	top := topology.New(5)
	links := [][2]int{{0, 1}, {0, 2}, {3, 4}}
	for _, l := range links {
		if err := top.AddLink(l[0], l[1]); err != nil {
			return res, errors.Wrap(err, "")
		}
	}
	_, err := circuit.New(top, zeroAmplitudes(5))
	if err == nil {
		res.Failed = true
		res.FailureReason = "expected circuit construction on a disconnected topology to fail, but it succeeded"
		return res, nil
	}
	return res, nil
}

// scenarioScript runs a user-supplied qasmscript file on a chain
// topology, reporting only the bond-dimension statistics it produces.
func scenarioScript(dir, path string, size int, periodic bool) (Result, error) {
	res := Result{Name: "script_" + filepath.Base(path)}
	top, err := builder.MakeChain(size, periodic)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	dbPath := filepath.Join(dir, "diag.db")
	c, rec, err := newZeroState(top, nil, 1e-5, dbPath)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer rec.Close()

	f, err := os.Open(path)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	defer f.Close()
	script, err := qasmscript.Parse(f)
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	if _, err := script.Run(c); err != nil {
		return res, errors.Wrap(err, "")
	}

	maxDim, err := rec.MaxBondDimension()
	if err != nil {
		return res, errors.Wrap(err, "")
	}
	res.MaxBondDim = maxDim
	return res, nil
}

func solve(dir string, run func(dir string) (Result, error)) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	res, runErr := run(dir)
	if runErr != nil {
		res.Failed = true
		res.FailureReason = runErr.Error()
	}

	b, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameResult), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(runDir string) ([]Result, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	out := make([]Result, 0, len(entries))
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(runDir, ent.Name(), fnameResult))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		var res Result
		if err := json.Unmarshal(b, &res); err != nil {
			return nil, errors.Wrap(err, "")
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	scenarios := map[string]func(dir string) (Result, error){
		"S1_hadamard_probability":  scenarioS1,
		"S2_ibmq_bell":             scenarioS2,
		"S3_periodic_detour":       scenarioS3,
		"S4_swap":                  scenarioS4,
		"S5_star_ghz":              scenarioS5,
		"S6_disconnected_rejected": scenarioS6,
	}
	for name, run := range scenarios {
		dir := filepath.Join(*runDir, name)
		if err := solve(dir, run); err != nil {
			return errors.Wrap(err, name)
		}
		log.Printf("%s done", name)
	}

	if *scriptPath != "" {
		if *scriptSize <= 0 {
			return errors.Errorf("-script-sites must be set to a positive chain size when -script is given")
		}
		name := "script_" + filepath.Base(*scriptPath)
		dir := filepath.Join(*runDir, name)
		run := func(dir string) (Result, error) {
			return scenarioScript(dir, *scriptPath, *scriptSize, *scriptPeriod)
		}
		if err := solve(dir, run); err != nil {
			return errors.Wrap(err, name)
		}
		log.Printf("%s done", name)
	}

	results, err := gather(*runDir)
	if err != nil {
		return errors.Wrap(err, "")
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"name", "overlap0", "overlapX", "selfOverlap", "probZero", "maxBondDim", "failed", "failureReason"}); err != nil {
		return errors.Wrap(err, "")
	}
	for _, r := range results {
		row := []string{
			r.Name,
			fmt.Sprintf("%f", r.Overlap0),
			fmt.Sprintf("%f", r.OverlapX),
			fmt.Sprintf("%f", r.SelfOverlap),
			fmt.Sprintf("%f", r.ProbZero),
			fmt.Sprintf("%d", r.MaxBondDim),
			fmt.Sprintf("%v", r.Failed),
			r.FailureReason,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "")
		}
	}
	w.Flush()
	return w.Error()
}
