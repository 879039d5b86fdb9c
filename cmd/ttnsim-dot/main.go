// Command ttnsim-dot renders a topology as Graphviz DOT text. The
// topology can be one of the builder package's ready-made constructors,
// or a raw list of site-pair edges given on the command line, and the
// rendered graph is written to stdout or, if -o is given, to a file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ttnsim/ttnsim/builder"
	"github.com/ttnsim/ttnsim/dot"
	"github.com/ttnsim/ttnsim/topology"
)

var (
	kind     = flag.String("topology", "chain", "topology to render: chain, ring, alltoall, ibmq, or edges")
	size     = flag.Int("size", 8, "number of sites (ignored for ibmq, which is fixed at 53)")
	edgeList = flag.String("edges", "", "comma-separated u-v pairs, e.g. 0-1,1-2,2-0 (required when -topology=edges)")
	outPath  = flag.String("o", "", "output file path; empty means stdout")
	layout   = flag.String("layout", "neato", "graphviz layout engine")
	shape    = flag.String("shape", "circle", "graphviz node shape")
)

func parseEdges(spec string, n int) (*topology.Topology, error) {
	top := topology.New(n)
	if spec == "" {
		return top, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		ends := strings.SplitN(pair, "-", 2)
		if len(ends) != 2 {
			return nil, errors.Errorf("ttnsim-dot: malformed edge %q, want u-v", pair)
		}
		u, err := strconv.Atoi(strings.TrimSpace(ends[0]))
		if err != nil {
			return nil, errors.Wrap(err, pair)
		}
		v, err := strconv.Atoi(strings.TrimSpace(ends[1]))
		if err != nil {
			return nil, errors.Wrap(err, pair)
		}
		if err := top.AddLink(u, v); err != nil {
			return nil, errors.Wrap(err, pair)
		}
	}
	return top, nil
}

func buildTopology() (*topology.Topology, error) {
	switch *kind {
	case "chain":
		return builder.MakeChain(*size, false)
	case "ring":
		return builder.MakeChain(*size, true)
	case "alltoall":
		return builder.MakeAllToAll(*size)
	case "ibmq":
		return builder.MakeIBMQTopology()
	case "edges":
		if *edgeList == "" {
			return nil, errors.Errorf("ttnsim-dot: -edges is required when -topology=edges")
		}
		maxSite := -1
		for _, pair := range strings.Split(*edgeList, ",") {
			for _, s := range strings.SplitN(pair, "-", 2) {
				v, err := strconv.Atoi(strings.TrimSpace(s))
				if err != nil {
					return nil, errors.Wrap(err, pair)
				}
				if v > maxSite {
					maxSite = v
				}
			}
		}
		return parseEdges(*edgeList, maxSite+1)
	default:
		return nil, errors.Errorf("ttnsim-dot: unknown -topology %q", *kind)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	top, err := buildTopology()
	if err != nil {
		return errors.Wrap(err, "")
	}

	opts := dot.Options{Layout: *layout, Shape: *shape}
	s, err := dot.String(top, opts)
	if err != nil {
		return errors.Wrap(err, "")
	}

	if *outPath == "" {
		fmt.Print(s)
		return nil
	}
	if err := os.WriteFile(*outPath, []byte(s), 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
