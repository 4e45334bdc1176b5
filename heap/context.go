package heap

import "unsafe"

// Mode selects which generations a collection touches. A collection
// starts in MinorCollection and may escalate to MajorCollection before it
// begins if the previous cycle's tenured footprint won't fit in gen2's
// remaining space.
type Mode int

const (
	MinorCollection Mode = iota
	MajorCollection
)

func (m Mode) String() string {
	if m == MajorCollection {
		return "major"
	}
	return "minor"
}

// Context is the collector's entire mutable state: the four segments
// (gen1, gen2, and their next* replacements built fresh each cycle), the
// card-table maps riding on gen2, and the bookkeeping a cycle needs to
// decide when to escalate or tenure. Nothing in this package keeps state
// outside a Context, so multiple independent heaps can coexist in one
// process.
type Context struct {
	platform Platform
	client   Client
	tuning   Tuning
	sink     EventSink

	ageMap *Map
	gen1   *Segment

	nextAgeMap *Map
	nextGen1   *Segment

	pointerMap *Map
	pageMap    *Map
	heapMap    *Map
	gen2       *Segment

	nextPointerMap *Map
	nextPageMap    *Map
	nextHeapMap    *Map
	nextGen2       *Segment

	gen2Base    uintptr
	hasGen2Base bool

	tenureFootprint uintptr
	gen1padding     uintptr
	gen2padding     uintptr

	mode Mode

	lastCollectionTime  int64
	totalCollectionTime int64
	totalTime           int64
}

// NewContext builds a Context with all four segments unallocated; the
// first Collect call sizes gen1 and, if it runs major, gen2.
func NewContext(platform Platform, tuning Tuning) *Context {
	if tuning.TenureThreshold == 0 {
		tuning.TenureThreshold = 1
	}

	c := &Context{platform: platform, tuning: tuning, mode: MinorCollection}

	ageBits := ceilLog2(tuning.TenureThreshold + 1)

	c.gen1 = newSegment(c)
	c.ageMap = newMap(c.gen1, ageBits, 1, nil, false)
	c.gen1.init(c.ageMap, 0, 0)

	c.nextGen1 = newSegment(c)
	c.nextAgeMap = newMap(c.nextGen1, ageBits, 1, nil, false)
	c.nextGen1.init(c.nextAgeMap, 0, 0)

	c.gen2 = newSegment(c)
	c.pointerMap = newMap(c.gen2, 1, 1, nil, true)
	c.pageMap = newMap(c.gen2, 1, tuning.LikelyPageSizeInBytes/BytesPerWord, c.pointerMap, true)
	c.heapMap = newMap(c.gen2, 1, c.pageMap.scale*1024, c.pageMap, true)
	c.gen2.init(c.heapMap, 0, 0)

	c.nextGen2 = newSegment(c)
	c.nextPointerMap = newMap(c.nextGen2, 1, 1, nil, true)
	c.nextPageMap = newMap(c.nextGen2, 1, tuning.LikelyPageSizeInBytes/BytesPerWord, c.nextPointerMap, true)
	c.nextHeapMap = newMap(c.nextGen2, 1, c.nextPageMap.scale*1024, c.nextPageMap, true)
	c.nextGen2.init(c.nextHeapMap, 0, 0)

	c.lastCollectionTime = platform.Now()

	return c
}

// Dispose frees every segment's backing storage. The Context must not be
// used again.
func (c *Context) Dispose() {
	c.gen1.Dispose()
	c.nextGen1.Dispose()
	c.gen2.Dispose()
	c.nextGen2.Dispose()
}

// segmentName identifies which segment, if any, contains p; used only for
// diagnostics.
func (c *Context) segmentName(p unsafe.Pointer) string {
	switch {
	case c.gen1.Contains(p):
		return "gen1"
	case c.nextGen1.Contains(p):
		return "nextGen1"
	case c.gen2.Contains(p):
		return "gen2"
	case c.nextGen2.Contains(p):
		return "nextGen2"
	default:
		return "none"
	}
}

func (c *Context) initNextGen1(footprint uintptr) {
	ageBits := ceilLog2(c.tuning.TenureThreshold + 1)

	c.nextGen1 = newSegment(c)
	c.nextAgeMap = newMap(c.nextGen1, ageBits, 1, nil, false)

	minimum := (c.gen1.Position() - c.tenureFootprint) + footprint + c.gen1padding
	c.nextGen1.init(c.nextAgeMap, minimum, minimum)
}

func (c *Context) initNextGen2() {
	c.nextGen2 = newSegment(c)
	c.nextPointerMap = newMap(c.nextGen2, 1, 1, nil, true)
	c.nextPageMap = newMap(c.nextGen2, 1, c.tuning.LikelyPageSizeInBytes/BytesPerWord, c.nextPointerMap, true)
	c.nextHeapMap = newMap(c.nextGen2, 1, c.nextPageMap.scale*1024, c.nextPageMap, true)

	minimum := c.gen2.Position() + c.tenureFootprint + c.gen2padding
	desired := maxWords(minimum*2, c.tuning.InitialGen2CapacityInBytes/BytesPerWord)
	c.nextGen2.init(c.nextHeapMap, desired, minimum)
}

// fresh reports whether o lives in space produced by the collection in
// progress: either of the next* segments, or the part of gen2 allocated
// since gen2Base during this cycle's tenuring.
func (c *Context) fresh(o unsafe.Pointer) bool {
	if o == nil {
		return false
	}
	if c.nextGen1.Contains(o) || c.nextGen2.Contains(o) {
		return true
	}
	return c.gen2.Contains(o) && c.hasGen2Base && c.gen2.IndexOf(o) >= c.gen2Base
}

// wasCollected reports whether o (a stale, pre-collection address) has
// already been copied: it is itself not fresh, but the forwarding pointer
// stored in its first word is.
func (c *Context) wasCollected(o unsafe.Pointer) bool {
	return o != nil && !c.fresh(o) && c.fresh(get(o, 0))
}

// follow returns the post-collection copy of an already-collected o.
func (c *Context) follow(o unsafe.Pointer) unsafe.Pointer {
	assertc(c, c.wasCollected(o), "context: follow on uncollected object")
	return get(o, 0)
}

func (c *Context) parentSlot(o unsafe.Pointer) *unsafe.Pointer {
	assertc(c, c.wasCollected(o), "context: parent on uncollected object")
	return (*unsafe.Pointer)(unsafe.Pointer(getp(o, 1)))
}

func (c *Context) bitsetSlot(o unsafe.Pointer) *uintptr {
	assertc(c, c.wasCollected(o), "context: bitset on uncollected object")
	return getp(o, 2)
}

func (c *Context) copyToSegment(s *Segment, o unsafe.Pointer, size uintptr) unsafe.Pointer {
	assertc(c, s.Remaining() >= size, "context: destination segment too small")
	dst := s.Allocate(size)
	c.client.Copy(o, dst)
	return dst
}

// copy2 places a fresh copy of o in whichever segment its generation and
// age dictate, without yet recording the forwarding pointer.
func (c *Context) copy2(o unsafe.Pointer) unsafe.Pointer {
	size := c.client.CopiedSizeInWords(o)

	switch {
	case c.gen2.Contains(o):
		assertc(c, c.mode == MajorCollection, "context: gen2 object copied outside major collection")
		return c.copyToSegment(c.nextGen2, o, size)

	case c.gen1.Contains(o):
		age := c.ageMap.Get(o)
		if age == c.tuning.TenureThreshold {
			if c.mode == MinorCollection {
				assertc(c, c.gen2.Remaining() >= size, "context: gen2 out of space for tenured object")
				if !c.hasGen2Base {
					c.gen2Base = c.gen2.Position()
					c.hasGen2Base = true
				}
				return c.copyToSegment(c.gen2, o, size)
			}
			return c.copyToSegment(c.nextGen2, o, size)
		}

		dst := c.copyToSegment(c.nextGen1, o, size)
		c.nextAgeMap.setOnlyPointer(dst, age+1)
		if age+1 == c.tuning.TenureThreshold {
			c.tenureFootprint += size
		}
		return dst

	default:
		assertc(c, !c.nextGen1.Contains(o), "context: copy2 on already-fresh nextGen1 object")
		assertc(c, !c.nextGen2.Contains(o), "context: copy2 on already-fresh nextGen2 object")

		dst := c.copyToSegment(c.nextGen1, o, size)
		c.nextAgeMap.Clear(dst)
		return dst
	}
}

// copyObj copies o and leaves a forwarding pointer to the copy in o's
// first word, so a later encounter of o (from another reference) resolves
// through follow instead of copying twice.
func (c *Context) copyObj(o unsafe.Pointer) unsafe.Pointer {
	r := c.copy2(o)
	setAt(o, 0, r)
	return r
}

// update3 resolves a single reference: an already-collected object
// forwards, anything else gets copied. needsVisit reports whether the
// destination's children still need scanning.
func (c *Context) update3(o unsafe.Pointer) (result unsafe.Pointer, needsVisit bool) {
	if c.wasCollected(o) {
		return c.follow(o), false
	}
	return c.copyObj(o), true
}

// update2 short-circuits gen2 objects during a minor collection: they are
// not moving this cycle, so they neither need copying nor visiting.
func (c *Context) update2(o unsafe.Pointer) (result unsafe.Pointer, needsVisit bool) {
	if c.mode == MinorCollection && c.gen2.Contains(o) {
		return o, false
	}
	return c.update3(o)
}

// update resolves the reference held in *slot, rewriting it to the
// post-collection location and recording an old-to-young card if slot
// itself lives in an old generation and now points into a young one.
func (c *Context) update(slot *uintptr) (result unsafe.Pointer, needsVisit bool) {
	if mask(*slot) == nil {
		return nil, false
	}

	r, needsVisit := c.update2(mask(*slot))

	if r != nil {
		p := unsafe.Pointer(slot)
		if c.mode == MinorCollection {
			if c.gen2.Contains(p) && !c.gen2.Contains(r) {
				c.heapMap.Set(p, 1)
			}
		} else {
			if c.nextGen2.Contains(p) && !c.nextGen2.Contains(r) {
				c.nextHeapMap.Set(p, 1)
			}
		}
	}

	return r, needsVisit
}
