// Package heap implements a generational, copying, stop-the-world garbage
// collector for a managed runtime that stores object graphs in
// word-addressable heap memory.
//
// The collector manages two generations: gen1 (young) and gen2 (old).
// Collection copies every object reachable from the roots into a fresh
// destination segment, rewriting every reference along the way, tenuring
// objects that have survived enough minor collections, and reclaiming
// everything left behind in the source segments. It never walks an object
// graph with an auxiliary stack of its own: the depth-first traversal (see
// traverse.go) stores its state inside the very objects it has already
// forwarded.
//
// This package knows nothing about the host runtime's object layout. It
// asks the embedder, through the Client interface, to measure, copy, and
// enumerate the reference slots of an object; it asks a Platform for raw
// memory, a clock, and a way to abort. Everything else — root enumeration,
// the mutator's write barrier, heap sizing policy beyond a simple growth
// rule — is the host's responsibility.
package heap
