// Command heapgc-inspect is an interactive REPL for stepping a synthetic
// heap through collections one command at a time: build a graph, run a
// minor or major cycle, inspect what moved, and optionally dump the heap
// to an archive for later offline inspection.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"unsafe"

	"github.com/gofrs/flock"
	"github.com/google/shlex"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"

	"github.com/tinygo-org/heapgc/builder"
	"github.com/tinygo-org/heapgc/heap"
	"github.com/tinygo-org/heapgc/snapshot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "heapgc-inspect:", err)
		os.Exit(1)
	}
}

func run() error {
	out := colorable.NewColorableStdout()

	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer t.Close()

	sess := newSession()

	fmt.Fprintln(out, "heapgc-inspect — type 'help' for commands, 'quit' to exit")
	for {
		fmt.Fprint(out, "> ")
		line, err := readLine(t)
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintln(out, "parse error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}

		if err := sess.dispatch(out, args); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

// readLine reads one line of raw terminal input, handling backspace and
// Enter. go-tty gives us unbuffered keystrokes, so the REPL has to build
// its own line editing out of them.
func readLine(t *tty.TTY) (string, error) {
	var buf []rune
	for {
		r, err := t.ReadRune()
		if err != nil {
			return "", err
		}
		switch r {
		case '\r', '\n':
			return string(buf), nil
		case 127, '\b':
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		case 0:
			// ignore
		default:
			buf = append(buf, r)
		}
	}
}

type session struct {
	platform *heap.GoPlatform
	ctx      *heap.Context
	client   *graphClient
	cycle    int
}

func newSession() *session {
	platform := heap.NewGoPlatform()
	ctx := heap.NewContext(platform, heap.DefaultTuning())
	return &session{platform: platform, ctx: ctx}
}

func (s *session) dispatch(out io.Writer, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(out, "commands: build <nodes> <refs-per-node>, collect [minor|major] <footprint>, status <node>, dump <path>, help, quit")
		return nil
	case "build":
		return s.cmdBuild(out, args[1:])
	case "collect":
		return s.cmdCollect(out, args[1:])
	case "status":
		return s.cmdStatus(out, args[1:])
	case "dump":
		return s.cmdDump(args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// cmdBuild constructs a chain-with-fan-out graph: node i references the
// next refs nodes after it, node 0 is the sole root. It's a synthetic
// scenario, not a realistic object graph, but it exercises promotion and
// card marking across several collections the way a scripted test would.
func (s *session) cmdBuild(out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: build <nodes> <refs-per-node>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	refs, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}

	spec := builder.GraphSpec{Roots: []int{0}}
	for i := 0; i < n; i++ {
		node := builder.NodeSpec{Name: fmt.Sprintf("n%d", i), Size: uintptr(1 + refs)}
		for j := 0; j < refs && i+j+1 < n; j++ {
			node.Refs = append(node.Refs, i+j+1)
		}
		spec.Nodes = append(spec.Nodes, node)
	}

	graph := builder.Build(spec, func(words uintptr) unsafe.Pointer {
		return s.platform.Allocate(words * heap.BytesPerWord)
	})
	s.client = newGraphClient(graph)

	fmt.Fprintf(out, "built %d nodes, %d roots\n", len(spec.Nodes), len(spec.Roots))
	return nil
}

func (s *session) cmdCollect(out io.Writer, args []string) error {
	mode := heap.MinorCollection
	footprint := uintptr(64)

	for _, a := range args {
		switch a {
		case "minor":
			mode = heap.MinorCollection
		case "major":
			mode = heap.MajorCollection
		default:
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("bad argument %q", a)
			}
			footprint = uintptr(n)
		}
	}

	if s.client == nil {
		return fmt.Errorf("no graph built yet; run 'build' first")
	}

	s.cycle++
	s.ctx.Collect(s.client, mode, footprint)
	fmt.Fprintf(out, "cycle %d: ran %s collection\n", s.cycle, s.ctx.CollectionMode())
	return nil
}

func (s *session) cmdStatus(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: status <node-index>")
	}
	if s.client == nil {
		return fmt.Errorf("no graph built yet; run 'build' first")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}

	addr, ok := s.client.addressOf(idx)
	if !ok {
		return fmt.Errorf("no node %d in the graph", idx)
	}
	fmt.Fprintf(out, "node %d: %s\n", idx, s.ctx.StatusOf(addr))
	return nil
}

func (s *session) cmdDump(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dump <path>")
	}
	path := args[0]

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("dump file %s is locked by another process", path)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return snapshot.Write(f, s.ctx)
}

// graphClient implements heap.Client over a builder.Graph. It keeps its
// own address-to-node-index table because a Graph's original addresses
// stop being meaningful the moment collection starts relocating nodes;
// Copy is where the table learns a node's new address.
type graphClient struct {
	graph   *builder.Graph
	indexOf map[unsafe.Pointer]int
}

func newGraphClient(graph *builder.Graph) *graphClient {
	c := &graphClient{graph: graph, indexOf: make(map[unsafe.Pointer]int)}
	for i := range graph.Spec().Nodes {
		c.indexOf[graph.Node(i)] = i
	}
	return c
}

func (c *graphClient) addressOf(nodeIndex int) (unsafe.Pointer, bool) {
	for addr, idx := range c.indexOf {
		if idx == nodeIndex {
			return addr, true
		}
	}
	return nil, false
}

func (c *graphClient) CopiedSizeInWords(o unsafe.Pointer) uintptr {
	idx := c.indexOf[o]
	return c.graph.Spec().Nodes[idx].Size
}

func (c *graphClient) Copy(o, dst unsafe.Pointer) {
	idx := c.indexOf[o]
	size := c.graph.Spec().Nodes[idx].Size
	for i := uintptr(0); i < size; i++ {
		word := (*uintptr)(unsafe.Pointer(uintptr(o) + i*unsafe.Sizeof(uintptr(0))))
		dstWord := (*uintptr)(unsafe.Pointer(uintptr(dst) + i*unsafe.Sizeof(uintptr(0))))
		*dstWord = *word
	}
	delete(c.indexOf, o)
	c.indexOf[dst] = idx
}

func (c *graphClient) Walk(o unsafe.Pointer, visit func(offsetWords uintptr) bool) {
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

func (c *graphClient) VisitRoots(visit func(slot *unsafe.Pointer)) {
	for _, slot := range c.graph.RootSlots() {
		visit(slot)
	}
}
