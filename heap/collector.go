package heap

import (
	"log"
	"unsafe"
)

// Collect runs one stop-the-world cycle. footprint is the number of words
// the mutator still needs gen1 to hold after collection (pending
// allocations the caller is about to make); it sizes nextGen1 so the
// cycle doesn't immediately need another one.
//
// A cycle that starts Minor escalates itself to Major before doing any
// work if the previous cycle's tenured footprint wouldn't fit in gen2's
// remaining space — promoting everything this cycle would otherwise leave
// behind is cheaper than running a minor cycle doomed to need a major one
// right after.
func (c *Context) Collect(client Client, mode CollectionType, footprint uintptr) {
	c.client = client
	c.mode = mode

	if c.tenureFootprint > c.gen2.Remaining() {
		c.mode = MajorCollection
	}

	then := c.platform.Now()

	c.initNextGen1(footprint)
	if c.mode == MajorCollection {
		c.initNextGen2()
	}

	c.collect2()

	c.gen1.replaceWith(c.nextGen1)
	if c.mode == MajorCollection {
		c.gen2.replaceWith(c.nextGen2)
	}

	now := c.platform.Now()
	c.emitEvent(then, now)
}

// emitEvent updates the running timing counters and, independently, hands
// the result to whichever of the two reporting paths tuning.Verbose and
// AttachEventSink asked for: a one-line stderr summary (the direct
// counterpart of heap.cpp's Verbose-gated fprintf) and/or the structured
// EventSink. Neither depends on the other, and the counters themselves
// are always kept current so the numbers stay right whichever of them,
// if any, is enabled.
func (c *Context) emitEvent(then, now int64) {
	collection := now - then
	run := then - c.lastCollectionTime
	c.totalCollectionTime += collection
	c.totalTime += collection + run
	c.lastCollectionTime = now

	if c.sink == nil && !c.tuning.Verbose {
		return
	}

	e := Event{
		Mode:                 c.mode,
		CollectionNanos:      collection,
		RunNanos:             run,
		TotalCollectionNanos: c.totalCollectionTime,
		TotalNanos:           c.totalTime - c.totalCollectionTime,
		Gen1Capacity:         c.gen1.Capacity(),
		Gen1Position:         c.gen1.Position(),
		Gen2Capacity:         c.gen2.Capacity(),
		Gen2Position:         c.gen2.Position(),
	}

	if c.tuning.Verbose {
		log.Printf("heapgc: %s collection: %dns (total %dns collecting, %dns running), gen1 %d/%d gen2 %d/%d",
			e.Mode, e.CollectionNanos, e.TotalCollectionNanos, e.TotalNanos,
			e.Gen1Position, e.Gen1Capacity, e.Gen2Position, e.Gen2Capacity)
	}

	if c.sink != nil {
		c.sink.HandleEvent(e)
	}
}

// AttachEventSink installs sink to receive one Event per completed
// Collect call. Passing nil detaches the current sink.
func (c *Context) AttachEventSink(sink EventSink) {
	c.sink = sink
}

// CollectionType mirrors Mode for the public mutator-facing API — kept as
// a distinct name from Mode because a Client chooses a CollectionType
// before a cycle starts, while Mode also records the escalated outcome of
// that choice.
type CollectionType = Mode

// NeedsMark reports whether a write to *p (an old-generation slot now
// about to hold a reference) needs an explicit write-barrier Mark call:
// true exactly when *p is non-nil, p lives in gen2, and the value at *p
// does not.
func (c *Context) NeedsMark(p *unsafe.Pointer) bool {
	return *p != nil && c.gen2.Contains(unsafe.Pointer(p)) && !c.gen2.Contains(*p)
}

// Mark records p as a dirty old-to-young card. Callers only need this
// when NeedsMark(p) is true. p must be a slot inside gen2: for any other
// address the map's range assertion fails and the collector aborts.
func (c *Context) Mark(p *unsafe.Pointer) {
	c.heapMap.Set(unsafe.Pointer(p), 1)
}

// Pad accounts for extra words a client-side resize operation added to an
// object already living in the heap, so the next collection sizes its
// destination segment (or gen2, if the object has already reached tenure
// age) large enough to carry the padding along.
func (c *Context) Pad(p unsafe.Pointer, extra uintptr) {
	switch {
	case c.gen1.Contains(p):
		if c.ageMap.Get(p) == c.tuning.TenureThreshold {
			c.gen2padding += extra
		} else {
			c.gen1padding += extra
		}
	case c.gen2.Contains(p):
		c.gen2padding += extra
	default:
		c.gen1padding += extra
	}
}

// Follow returns p's post-collection address if p was collected, or p
// unchanged otherwise. Clients use this to resolve root references held
// across a call to Collect.
func (c *Context) Follow(p unsafe.Pointer) unsafe.Pointer {
	if c.wasCollected(p) {
		return c.follow(p)
	}
	return p
}

// StatusOf classifies p for a mutator inspecting a reference after a
// collection.
func (c *Context) StatusOf(p unsafe.Pointer) Status {
	p = maskPtr(p)

	switch {
	case p == nil:
		return Null
	case c.nextGen1.Contains(p):
		return Reachable
	case c.nextGen2.Contains(p) || (c.gen2.Contains(p) && (c.mode == MinorCollection || (c.hasGen2Base && c.gen2.IndexOf(p) >= c.gen2Base))):
		return Tenured
	case c.wasCollected(p):
		return Reachable
	case c.gen1.Contains(p):
		// Once Collect has swapped nextGen1 into gen1, gen1 holds only
		// the young survivors of that cycle.
		return Reachable
	default:
		return Unreachable
	}
}

// CollectionMode returns the CollectionType the most recent Collect call
// actually ran as, which may differ from what was requested if escalation
// fired.
func (c *Context) CollectionMode() CollectionType {
	return c.mode
}
