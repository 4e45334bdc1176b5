package heap

import "unsafe"

// Segment is a bump-allocated region of word-addressable memory, optionally
// paired with a Map that tracks per-object metadata (age, or old-to-young
// pointer bits) in the words immediately following the segment's own data.
// gen1, gen2, nextGen1 and nextGen2 are all Segments; the only difference
// between a young and an old generation is which Map, if any, rides along
// with it.
type Segment struct {
	ctx      *Context
	data     unsafe.Pointer
	position uintptr
	capacity uintptr
	mapp     *Map
}

// newSegment returns an unsized Segment. Because a Map's data lives past
// the end of its owning Segment's storage, the Map hierarchy must be built
// referencing a Segment before that Segment knows its own capacity; init
// performs the deferred sizing and allocation once the Map is wired up.
func newSegment(ctx *Context) *Segment {
	return &Segment{ctx: ctx}
}

// init sizes and allocates the segment's backing storage for desired words
// of capacity, retrying at a smaller capacity (down to minimum) if the
// platform can't satisfy the request. desired == 0 leaves the segment
// unallocated, which is the state gen1/gen2 start in before the first
// collection sizes them.
func (s *Segment) init(m *Map, desired, minimum uintptr) {
	s.mapp = m
	if desired == 0 {
		return
	}
	assertc(s.ctx, desired >= minimum, "segment: desired below minimum")

	capacity := desired
	var data unsafe.Pointer
	for data == nil {
		data = s.ctx.platform.TryAllocate((capacity + m.footprint(capacity)) * BytesPerWord)
		if data == nil {
			if capacity > minimum {
				capacity = avg(minimum, capacity)
				if capacity == 0 {
					break
				}
			} else {
				s.ctx.fatal("segment: allocation failed")
			}
		}
	}

	s.capacity = capacity
	s.data = data
	if m != nil {
		m.init()
	}
}

// Capacity returns the segment's size in words.
func (s *Segment) Capacity() uintptr { return s.capacity }

// Position returns the number of words currently allocated.
func (s *Segment) Position() uintptr { return s.position }

// Remaining returns the number of unallocated words.
func (s *Segment) Remaining() uintptr { return s.capacity - s.position }

// replaceWith adopts s2's storage, freeing the segment's own and leaving s2
// empty. Used at the end of a collection to swap a next* segment into the
// role of the live generation.
func (s *Segment) replaceWith(s2 *Segment) {
	s.ctx.platform.Free(s.data)
	s.data = s2.data
	s2.data = nil

	s.position = s2.position
	s2.position = 0

	s.capacity = s2.capacity
	s2.capacity = 0

	if s2.mapp != nil {
		assertc(s.ctx, s.mapp != nil, "segment: map replacement mismatch")
		s.mapp.replaceWith(s2.mapp)
		s2.mapp = nil
	} else {
		s.mapp = nil
	}
}

// Contains reports whether p addresses a word already allocated in s.
func (s *Segment) Contains(p unsafe.Pointer) bool {
	return s.position != 0 && uintptr(p) >= uintptr(s.data) && uintptr(p) < uintptr(s.data)+s.position*BytesPerWord
}

// AlmostContains is Contains plus the one-past-the-end address, which is a
// valid (if empty) object boundary during traversal.
func (s *Segment) AlmostContains(p unsafe.Pointer) bool {
	return s.Contains(p) || uintptr(p) == uintptr(s.data)+s.position*BytesPerWord
}

// At returns the address of the word at the given offset from the start of
// the segment.
func (s *Segment) At(offset uintptr) unsafe.Pointer {
	assertc(s.ctx, offset <= s.position, "segment: offset out of range")
	return unsafe.Pointer(uintptr(s.data) + offset*BytesPerWord)
}

// IndexOf returns the word offset of p from the start of the segment.
func (s *Segment) IndexOf(p unsafe.Pointer) uintptr {
	assertc(s.ctx, s.AlmostContains(p), "segment: pointer not in segment")
	return (uintptr(p) - uintptr(s.data)) / BytesPerWord
}

// Allocate bumps the segment's position by size words and returns the
// address of the newly claimed region.
func (s *Segment) Allocate(size uintptr) unsafe.Pointer {
	assertc(s.ctx, size != 0, "segment: zero-size allocation")
	assertc(s.ctx, s.position+size <= s.capacity, "segment: allocation exceeds capacity")

	p := unsafe.Pointer(uintptr(s.data) + s.position*BytesPerWord)
	s.position += size
	return p
}

// Dispose frees the segment's storage. The segment must not be used again.
func (s *Segment) Dispose() {
	s.ctx.platform.Free(s.data)
	s.data = nil
	s.mapp = nil
}
