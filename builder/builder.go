// Package builder assembles synthetic object graphs for exercising a
// heap.Context outside of a real managed runtime: benchmarks and fixture
// tests describe the graph they want declaratively, the same way the
// collector library this package once described (a set of C sources and
// compiler flags) was described declaratively and turned into a concrete
// build.
package builder

import "unsafe"

// NodeSpec is one object in a synthetic graph: its payload size in words
// (header words included) and the indices, within the owning GraphSpec's
// Nodes slice, of the objects it references.
type NodeSpec struct {
	Name string
	Size uintptr
	Refs []int
}

// GraphSpec declaratively describes a synthetic object graph: every node
// plus which nodes are roots.
type GraphSpec struct {
	Nodes []NodeSpec
	Roots []int
}

// Graph is the concrete result of building a GraphSpec: every node's
// address, in Nodes order, and the root slots a Client.VisitRoots
// implementation should walk.
type Graph struct {
	spec    GraphSpec
	nodes   []unsafe.Pointer
	rootBuf []unsafe.Pointer
}

// Node returns the address of the i'th node.
func (g *Graph) Node(i int) unsafe.Pointer { return g.nodes[i] }

// Spec returns the GraphSpec this Graph was built from.
func (g *Graph) Spec() GraphSpec { return g.spec }

// IndexOf returns the node index whose current address is p, and whether
// one was found. Because Build's nodes don't move on their own, this
// works until a heap.Context starts copying them — a heap.Client built
// on top of Graph must track its own copies separately once collection
// starts relocating nodes (see cmd/heapgc-inspect's graphClient).
func (g *Graph) IndexOf(p unsafe.Pointer) (int, bool) {
	for i, n := range g.nodes {
		if n == p {
			return i, true
		}
	}
	return 0, false
}

// RootSlots returns the addresses of the root slots, suitable for a
// Client.VisitRoots implementation to range over.
func (g *Graph) RootSlots() []*unsafe.Pointer {
	slots := make([]*unsafe.Pointer, len(g.rootBuf))
	for i := range g.rootBuf {
		slots[i] = &g.rootBuf[i]
	}
	return slots
}

// refWords is the number of header words reserved in every node before its
// Refs start: word 0 doubles as the forwarding pointer during collection,
// so a node's declared Size must be at least 1 + len(Refs).
const refWords = 1

// Build allocates every node described by spec via allocate, wires each
// node's Refs into its payload as tagged pointer words, and returns a
// Graph whose RootSlots hold the spec's designated roots. allocate should
// return zeroed, word-addressable memory of the given size in words (for
// example a heap.Context's own bump allocator is not appropriate here —
// Build constructs graphs to feed *into* a collector, not graphs already
// living in its segments).
func Build(spec GraphSpec, allocate func(words uintptr) unsafe.Pointer) *Graph {
	g := &Graph{spec: spec, nodes: make([]unsafe.Pointer, len(spec.Nodes))}

	for i, n := range spec.Nodes {
		g.nodes[i] = allocate(n.Size)
	}

	for i, n := range spec.Nodes {
		for slot, target := range n.Refs {
			offset := uintptr(refWords + slot)
			if offset >= n.Size {
				continue
			}
			p := (*uintptr)(unsafe.Pointer(uintptr(g.nodes[i]) + offset*unsafe.Sizeof(uintptr(0))))
			*p = uintptr(g.nodes[target])
		}
	}

	g.rootBuf = make([]unsafe.Pointer, len(spec.Roots))
	for i, idx := range spec.Roots {
		g.rootBuf[i] = g.nodes[idx]
	}

	return g
}
