// Command heapgc-bench drives a heap.Context through repeated collections
// over a synthetic object graph, reporting the timing heap.Event values
// the collector emits for each cycle.
package main

import (
	"flag"
	"fmt"
	"unsafe"

	"github.com/tinygo-org/heapgc/builder"
	"github.com/tinygo-org/heapgc/heap"
)

func main() {
	nodes := flag.Int("nodes", 10000, "number of graph nodes")
	refs := flag.Int("refs", 2, "outgoing references per node")
	cycles := flag.Int("cycles", 20, "number of collections to run")
	footprint := flag.Uint64("footprint", 256, "words of headroom requested per collection")
	flag.Parse()

	platform := heap.NewGoPlatform()
	ctx := heap.NewContext(platform, heap.DefaultTuning())

	var events []heap.Event
	ctx.AttachEventSink(heap.EventSinkFunc(func(e heap.Event) {
		events = append(events, e)
	}))

	spec := builder.GraphSpec{Roots: []int{0}}
	for i := 0; i < *nodes; i++ {
		node := builder.NodeSpec{Name: fmt.Sprintf("n%d", i), Size: uintptr(1 + *refs)}
		for j := 0; j < *refs && i+j+1 < *nodes; j++ {
			node.Refs = append(node.Refs, i+j+1)
		}
		spec.Nodes = append(spec.Nodes, node)
	}

	graph := builder.Build(spec, func(words uintptr) unsafe.Pointer {
		return platform.Allocate(words * heap.BytesPerWord)
	})
	client := newBenchClient(graph)

	// The graph is built outside gen1, so the first cycle's footprint also
	// has to cover every node that cycle copies into gen1.
	var graphWords uintptr
	for _, n := range spec.Nodes {
		graphWords += n.Size
	}

	for i := 0; i < *cycles; i++ {
		fp := uintptr(*footprint)
		if i == 0 {
			fp += graphWords
		}
		ctx.Collect(client, heap.MinorCollection, fp)
	}

	for i, e := range events {
		fmt.Printf("cycle %2d: %-5s collect=%6dns run=%6dns gen1=%d/%d gen2=%d/%d\n",
			i, e.Mode, e.CollectionNanos, e.RunNanos,
			e.Gen1Position, e.Gen1Capacity, e.Gen2Position, e.Gen2Capacity)
	}
}

// benchClient is heapgc-inspect's graphClient, duplicated here rather than
// shared: the two commands evolve independently and neither is a library
// the other should depend on.
type benchClient struct {
	graph   *builder.Graph
	indexOf map[unsafe.Pointer]int
}

func newBenchClient(graph *builder.Graph) *benchClient {
	c := &benchClient{graph: graph, indexOf: make(map[unsafe.Pointer]int)}
	for i := range graph.Spec().Nodes {
		c.indexOf[graph.Node(i)] = i
	}
	return c
}

func (c *benchClient) CopiedSizeInWords(o unsafe.Pointer) uintptr {
	return c.graph.Spec().Nodes[c.indexOf[o]].Size
}

func (c *benchClient) Copy(o, dst unsafe.Pointer) {
	idx := c.indexOf[o]
	size := c.graph.Spec().Nodes[idx].Size
	for i := uintptr(0); i < size; i++ {
		word := (*uintptr)(unsafe.Pointer(uintptr(o) + i*unsafe.Sizeof(uintptr(0))))
		dstWord := (*uintptr)(unsafe.Pointer(uintptr(dst) + i*unsafe.Sizeof(uintptr(0))))
		*dstWord = *word
	}
	c.indexOf[dst] = idx
}

func (c *benchClient) Walk(o unsafe.Pointer, visit func(offsetWords uintptr) bool) {
	idx, ok := c.indexOf[o]
	if !ok {
		return
	}
	for slot := range c.graph.Spec().Nodes[idx].Refs {
		if !visit(uintptr(1 + slot)) {
			return
		}
	}
}

func (c *benchClient) VisitRoots(visit func(slot *unsafe.Pointer)) {
	for _, slot := range c.graph.RootSlots() {
		visit(slot)
	}
}
