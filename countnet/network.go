// Package countnet implements CountingNetwork, a width-W balancing/counting
// bitonic network that produces a monotone approximate counter under
// concurrent traversal. It is used by zonemap as a lock-free, approximate
// hit counter: accuracy is traded for the absence of any shared
// read-modify-write hotspot beyond the network's own balancer bits.
package countnet

import "sync/atomic"

// balancer toggles between its two output wires on each traversal.
type balancer struct {
	toggle atomic.Bool
}

func newBalancer() *balancer {
	b := &balancer{}
	b.toggle.Store(true)
	return b
}

// traverse returns the output wire (0 or 1) for this traversal.
func (b *balancer) traverse() int {
	for {
		res := b.toggle.Load()
		if !b.toggle.CompareAndSwap(res, !res) {
			continue
		}
		if res {
			return 0
		}
		return 1
	}
}

// merger recursively combines two half-width mergers with a layer of
// balancers, per the standard bitonic merger construction.
type merger struct {
	halves []*merger
	layer  []*balancer
	width  int
}

func newMerger(width int) *merger {
	layer := make([]*balancer, width/2)
	for i := range layer {
		layer[i] = newBalancer()
	}
	var halves []*merger
	if width > 2 {
		halves = []*merger{newMerger(width / 2), newMerger(width / 2)}
	}
	return &merger{halves: halves, layer: layer, width: width}
}

func (m *merger) traverse(input int) int {
	output := 0
	if m.width > 2 {
		output = m.halves[input%2].traverse(input / 2)
	}
	return output + m.layer[output].traverse()
}

// bitonic is the balancing bitonic network: recursive halves feeding a
// merger at each level.
type bitonic struct {
	halves []*bitonic
	merger *merger
	width  int
}

func newBitonic(width int) *bitonic {
	var halves []*bitonic
	if width > 2 {
		halves = []*bitonic{newBitonic(width / 2), newBitonic(width / 2)}
	}
	return &bitonic{halves: halves, merger: newMerger(width), width: width}
}

func (b *bitonic) traverse(input int) int {
	output := 0
	if b.width > 2 {
		output = b.halves[input%2].traverse(input / 2)
	}
	return output + b.merger.traverse(output)
}

// Network is a counting bitonic network of width W (a power of two). Every
// Traverse call returns a step index in [0, W) such that, over N traversals
// from any interleaving of goroutines, each step value appears either
// ceil(N/W) or floor(N/W) times, and Get reports a monotone running sum
// usable as an approximate, high-throughput hit counter.
type Network struct {
	balancing *bitonic
	state     atomic.Int64
	trips     atomic.Int64
	width     int
}

// New constructs a counting network of the given width, which must be a
// power of two.
func New(width int) *Network {
	if width < 2 || width&(width-1) != 0 {
		panic("countnet: width must be a power of two, at least 2")
	}
	return &Network{balancing: newBitonic(width), width: width}
}

// Traverse routes input through the network and returns the step index
// observed for this traversal.
func (n *Network) Traverse(input int) int {
	wire := n.balancing.traverse(input)
	trips := n.trips.Add(1)
	width := int64(n.width)
	q, r := trips/width, trips%width

	var delta int64
	if r > 0 {
		delta = int64(wire)
	} else if int64(wire) >= q {
		delta = int64(wire) - q
	} else {
		delta = int64(wire)
	}

	newVal := n.state.Add(delta)
	return int(newVal - delta)
}

// Get returns the accumulated approximate counter.
func (n *Network) Get() int {
	return int(n.state.Load())
}
