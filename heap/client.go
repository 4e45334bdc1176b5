package heap

import "unsafe"

// Client supplies the object-model knowledge the collector itself does not
// have: how big a copy of an object needs to be, how to actually copy one,
// which of its words are outgoing references, and where the root set
// lives. Everything in this package operates purely in terms of words and
// offsets; Client is the only place a real object layout enters the
// picture.
type Client interface {
	// CopiedSizeInWords returns the number of words a copy of o will
	// occupy. It may differ from o's current size (for example, a
	// resizable object client-side compacted on copy).
	CopiedSizeInWords(o unsafe.Pointer) uintptr

	// Copy copies o's payload into dst, which has already been sized by
	// CopiedSizeInWords and allocated in the destination segment.
	Copy(o, dst unsafe.Pointer)

	// Walk invokes visit once for each outgoing reference slot in o, in a
	// stable order, passing that slot's word offset from the start of o.
	// Walk stops early if visit returns false.
	Walk(o unsafe.Pointer, visit func(offsetWords uintptr) bool)

	// VisitRoots invokes visit once for every root reference slot. visit
	// may rewrite *slot in place; the collector relies on this to update
	// roots to point at post-collection copies.
	VisitRoots(visit func(slot *unsafe.Pointer))
}
