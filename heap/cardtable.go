package heap

import "unsafe"

// scanCards walks the dirty records of map over the gen2 index range
// [start, end), recursing into finer child maps only where a coarser
// level says there might be something to find. At the finest level (scale
// == 1, no child) a dirty record names an actual old-generation reference
// slot: if it already points into the new young generation the slot stays
// marked dirty without further work; otherwise the object it references
// gets the full collectSlot treatment, and the slot is re-marked dirty
// only if that didn't land it in gen2.
//
// dirty is set if anything in the scanned range turned out dirty;
// expectDirty is an invariant check only — a coarser level that reported
// a record dirty must find at least one dirty record when it recurses.
func (c *Context) scanCards(m *Map, start, end uintptr, dirty *bool, expectDirty bool) {
	wasDirty := false

	it := newMapIterator(m, start, end)
	for it.HasMore() {
		wasDirty = true

		if m.child != nil {
			assertc(c, m.scale > 1, "cardtable: non-leaf map with unit scale")
			s := it.Next()
			e := s + m.scale

			m.clearOnlySegmentIndex(s)
			childDirty := false
			c.scanCards(m.child, s, e, &childDirty, true)
			if childDirty {
				m.setOnlySegmentIndex(s, 1)
				*dirty = true
			}
		} else {
			assertc(c, m.scale == 1, "cardtable: leaf map with non-unit scale")
			slot := (*uintptr)(m.segment.At(it.Next()))

			m.clearOnlyPointer(unsafe.Pointer(slot))
			if c.nextGen1.Contains(unsafe.Pointer(*slot)) {
				m.setOnlyPointer(unsafe.Pointer(slot), 1)
				*dirty = true
			} else {
				c.collectSlot(slot)

				if !c.gen2.Contains(unsafe.Pointer(*slot)) {
					m.setOnlyPointer(unsafe.Pointer(slot), 1)
					*dirty = true
				}
			}
		}
	}

	assertc(c, wasDirty || !expectDirty, "cardtable: expected dirty range found none")
}

// collect2 scans gen2's existing card table for old-to-young references
// (skipped entirely on a major collection, since every old object moves
// and gets scanned as a root descendant instead), then walks every root.
func (c *Context) collect2() {
	c.gen2Base = 0
	c.hasGen2Base = false
	c.tenureFootprint = 0
	c.gen1padding = 0
	c.gen2padding = 0

	if c.mode == MinorCollection && c.gen2.Position() != 0 {
		var dirty bool
		c.scanCards(c.heapMap, 0, c.gen2.Position(), &dirty, false)
	}

	c.client.VisitRoots(func(slot *unsafe.Pointer) {
		c.collectSlot((*uintptr)(unsafe.Pointer(slot)))
	})
}
