// Package builder provides ready-made topology constructors: chains,
// all-to-all graphs, and the IBMQ 53-qubit device connectivity.
package builder

import (
	"github.com/pkg/errors"

	"github.com/ttnsim/ttnsim/topology"
)

// MakeChain returns a topology of size sites connected 0-1-2-...-(size-1).
// If periodic is true, an additional link closes the chain into a ring by
// joining the last site back to site 0.
func MakeChain(size int, periodic bool) (*topology.Topology, error) {
	if size <= 0 {
		return nil, errors.Errorf("chain size must be positive, got %d", size)
	}
	top := topology.New(size)
	for i := 0; i < size-1; i++ {
		if err := top.AddLink(i, i+1); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	if periodic && size > 1 {
		if err := top.AddLink(size-1, 0); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return top, nil
}

// MakeAllToAll returns a topology of size sites with a link between every
// distinct pair of sites.
func MakeAllToAll(size int) (*topology.Topology, error) {
	if size <= 0 {
		return nil, errors.Errorf("all-to-all size must be positive, got %d", size)
	}
	top := topology.New(size)
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if err := top.AddLink(i, j); err != nil {
				return nil, errors.Wrap(err, "")
			}
		}
	}
	return top, nil
}

// MakeIBMQTopology returns the 53-qubit heavy-hex connectivity of IBM's
// Rochester-class device.
func MakeIBMQTopology() (*topology.Topology, error) {
	const size = 53
	top := topology.New(size)

	links := [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 4},

		{0, 5}, {4, 6}, {5, 7}, {6, 11},

		{7, 8}, {8, 9}, {9, 10}, {10, 11},

		{7, 12}, {11, 13}, {12, 14}, {13, 15}, {14, 16}, {15, 18},

		{9, 17},

		{16, 19}, {18, 20}, {19, 21}, {20, 22}, {21, 23}, {22, 27},

		{17, 25},

		{23, 24}, {24, 25}, {25, 26}, {26, 27},

		{23, 28}, {27, 29}, {28, 30}, {29, 34},

		{30, 31}, {31, 32}, {32, 33}, {33, 34},

		{30, 35}, {34, 36}, {35, 37}, {36, 38}, {37, 39}, {38, 41},

		{32, 40},

		{39, 42}, {41, 43}, {42, 44}, {43, 45}, {44, 46}, {45, 50},

		{40, 48},

		{46, 47}, {47, 48}, {48, 49}, {49, 50},

		{46, 51}, {50, 52},
	}

	for _, l := range links {
		if err := top.AddLink(l[0], l[1]); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return top, nil
}
