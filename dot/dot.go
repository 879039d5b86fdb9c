// Package dot renders a Topology as Graphviz DOT text, per spec.md §6: one
// edge per link, in the canonical u > v orientation, wrapped in a graph
// block carrying layout/shape node attributes.
package dot

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/ttnsim/ttnsim/topology"
)

// Options configures the graph and node attributes emitted by Write.
// The zero value is not valid; use DefaultOptions.
type Options struct {
	Layout string
	Shape  string
}

// DefaultOptions matches spec.md's defaults: layout=neato, shape=circle.
func DefaultOptions() Options {
	return Options{Layout: "neato", Shape: "circle"}
}

// Write renders top to w in Graphviz DOT format using opts' graph/node
// attributes. Each undirected link is emitted exactly once, as "u -- v;"
// with u > v.
func Write(w io.Writer, top *topology.Topology, opts Options) error {
	var b strings.Builder
	b.WriteString("graph {\n")
	fmt.Fprintf(&b, "    graph[layout=%s]\n", opts.Layout)
	fmt.Fprintf(&b, "    node[shape=%s]\n\n", opts.Shape)

	for u := 0; u < top.NumBits(); u++ {
		for _, nb := range top.NeighborsOf(u) {
			v := nb.Site
			if u > v {
				fmt.Fprintf(&b, "    %d -- %d;\n", u, v)
			}
		}
	}
	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// String renders top to a DOT string using opts.
func String(top *topology.Topology, opts Options) (string, error) {
	var b strings.Builder
	if err := Write(&b, top, opts); err != nil {
		return "", errors.Wrap(err, "")
	}
	return b.String(), nil
}
