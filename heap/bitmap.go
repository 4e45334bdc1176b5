package heap

import "unsafe"

// Map is a fixed-width bitmap tracking one small integer per record of a
// Segment (a "record" is scale consecutive words). Maps chain through
// child: ageMap has no child, while pointerMap/pageMap/heapMap chain
// child-to-parent from finest to coarsest so a single object write can
// mark itself dirty at every granularity with three constant-time bit
// sets. A Map's own bits live immediately after its segment's data, and
// after any finer child map's bits, so growing a segment relocates every
// map that rides on it together.
type Map struct {
	segment       *Segment
	child         *Map
	bitsPerRecord uintptr
	scale         uintptr
	clearNewData  bool
}

// newMap constructs a Map over segment. scale must be a power of two.
func newMap(segment *Segment, bitsPerRecord, scale uintptr, child *Map, clearNewData bool) *Map {
	return &Map{segment: segment, child: child, bitsPerRecord: bitsPerRecord, scale: scale, clearNewData: clearNewData}
}

func (m *Map) init() {
	assertc(m.segment.ctx, m.bitsPerRecord != 0, "map: zero bitsPerRecord")
	assertc(m.segment.ctx, m.scale != 0, "map: zero scale")
	assertc(m.segment.ctx, powerOfTwo(m.scale), "map: scale not a power of two")

	if m.clearNewData {
		zeroWords(m.data(), m.size())
	}
	if m.child != nil {
		m.child.init()
	}
}

// replaceWith transfers ownership of other's segment-relative anchoring to
// m; m keeps its own bits (already copied by the caller via Segment.replaceWith's
// backing-storage swap) but adopts other's child chain shape.
func (m *Map) replaceWith(other *Map) {
	assertc(m.segment.ctx, m.bitsPerRecord == other.bitsPerRecord, "map: bitsPerRecord mismatch")
	assertc(m.segment.ctx, m.scale == other.scale, "map: scale mismatch")

	other.segment = nil
	if m.child != nil {
		m.child.replaceWith(other.child)
	}
}

func (m *Map) offsetFor(capacity uintptr) uintptr {
	n := uintptr(0)
	if m.child != nil {
		n += m.child.footprint(capacity)
	}
	return n
}

func (m *Map) offset() uintptr {
	return m.offsetFor(m.segment.Capacity())
}

func (m *Map) data() unsafe.Pointer {
	return unsafe.Pointer(uintptr(m.segment.data) + (m.segment.Capacity()+m.offset())*BytesPerWord)
}

func (m *Map) sizeFor(capacity uintptr) uintptr {
	c := capacity
	if c == 0 {
		c = 1
	}
	result := ceilDiv(ceilDiv(c, m.scale)*m.bitsPerRecord, BitsPerWord)
	assertc(m.segment.ctx, result != 0, "map: zero-size map")
	return result
}

func (m *Map) size() uintptr {
	return m.sizeFor(maxWords(m.segment.Capacity(), 1))
}

func (m *Map) indexOfSegmentIndex(segmentIndex uintptr) uintptr {
	return (segmentIndex / m.scale) * m.bitsPerRecord
}

func (m *Map) indexOfPointer(p unsafe.Pointer) uintptr {
	assertc(m.segment.ctx, m.segment.AlmostContains(p), "map: pointer outside segment")
	assertc(m.segment.ctx, m.segment.Capacity() != 0, "map: zero-capacity segment")
	return m.indexOfSegmentIndex(m.segment.IndexOf(p))
}

// update relocates this map's bits into newData, which points at what will
// become the segment's new data array sized for capacity words; only the
// bits describing already-allocated (position) records are copied.
func (m *Map) update(newData unsafe.Pointer, capacity uintptr) {
	assertc(m.segment.ctx, capacity >= m.segment.Capacity(), "map: shrinking update")

	dst := unsafe.Pointer(uintptr(newData) + m.offsetFor(capacity)*BytesPerWord)
	if m.segment.Position() != 0 {
		copyWords(dst, m.data(), m.sizeFor(m.segment.Position()))
	}
	if m.child != nil {
		m.child.update(newData, capacity)
	}
}

func (m *Map) wordAt(word uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(m.data()) + word*BytesPerWord))
}

func (m *Map) clearBit(i uintptr) {
	assertc(m.segment.ctx, wordOf(i) < m.size(), "map: bit index out of range")
	*m.wordAt(wordOf(i)) &^= uintptr(1) << bitOf(i)
}

func (m *Map) setBit(i uintptr) {
	assertc(m.segment.ctx, wordOf(i) < m.size(), "map: bit index out of range")
	*m.wordAt(wordOf(i)) |= uintptr(1) << bitOf(i)
}

func (m *Map) clearOnlyIndex(index uintptr) {
	for i := index; i < index+m.bitsPerRecord; i++ {
		m.clearBit(i)
	}
}

func (m *Map) clearOnlySegmentIndex(segmentIndex uintptr) {
	m.clearOnlyIndex(m.indexOfSegmentIndex(segmentIndex))
}

func (m *Map) clearOnlyPointer(p unsafe.Pointer) {
	m.clearOnlyIndex(m.indexOfPointer(p))
}

// Clear clears the record for p at this map level and, recursively, at
// every finer child level.
func (m *Map) Clear(p unsafe.Pointer) {
	m.clearOnlyPointer(p)
	if m.child != nil {
		m.child.Clear(p)
	}
}

func (m *Map) setOnlyIndex(index, v uintptr) {
	i := index + m.bitsPerRecord - 1
	for {
		if v&1 != 0 {
			m.setBit(i)
		} else {
			m.clearBit(i)
		}
		v >>= 1
		if i == index {
			break
		}
		i--
	}
}

func (m *Map) setOnlySegmentIndex(segmentIndex, v uintptr) {
	m.setOnlyIndex(m.indexOfSegmentIndex(segmentIndex), v)
}

func (m *Map) setOnlyPointer(p unsafe.Pointer, v uintptr) {
	m.setOnlyIndex(m.indexOfPointer(p), v)
}

// Set stores v (a bitsPerRecord-wide value) into the record for p at this
// map level and, recursively, at every finer child level.
func (m *Map) Set(p unsafe.Pointer, v uintptr) {
	m.setOnlyPointer(p, v)
	assertc(m.segment.ctx, m.Get(p) == v, "map: readback mismatch after set")
	if m.child != nil {
		m.child.Set(p, v)
	}
}

// SetDirty is Set(p, 1), the common case of marking a single-bit record.
func (m *Map) SetDirty(p unsafe.Pointer) {
	m.Set(p, 1)
}

// Get returns the bitsPerRecord-wide value stored for p at this map level.
func (m *Map) Get(p unsafe.Pointer) uintptr {
	index := m.indexOfPointer(p)
	v := uintptr(0)
	for i := index; i < index+m.bitsPerRecord; i++ {
		wi := bitOf(i)
		v <<= 1
		v |= (*m.wordAt(wordOf(i)) & (uintptr(1) << wi)) >> wi
	}
	return v
}

// footprint returns the word count this map, and every map beneath it,
// needs for a segment of the given capacity.
func (m *Map) footprint(capacity uintptr) uintptr {
	n := m.sizeFor(capacity)
	if m.child != nil {
		n += m.child.footprint(capacity)
	}
	return n
}

// MapIterator walks the set bits of a Map's [start, end) segment-index
// range, yielding each hit's segment index. It is how the collector finds
// dirty cards without scanning every word of a card table by hand.
type MapIterator struct {
	m     *Map
	index uintptr
	limit uintptr
}

func newMapIterator(m *Map, start, end uintptr) *MapIterator {
	assertc(m.segment.ctx, m.bitsPerRecord == 1, "map iterator: bitsPerRecord != 1")
	assertc(m.segment.ctx, start <= m.segment.Position(), "map iterator: start beyond position")

	if end > m.segment.Position() {
		end = m.segment.Position()
	}

	index := m.indexOfSegmentIndex(start)
	limit := m.indexOfSegmentIndex(end)
	if (end-start)%m.scale != 0 {
		limit++
	}

	return &MapIterator{m: m, index: index, limit: limit}
}

// HasMore advances to, and reports whether there is, a next set bit.
func (it *MapIterator) HasMore() bool {
	word := wordOf(it.index)
	bit := bitOf(it.index)
	wordLimit := wordOf(it.limit)
	bitLimit := bitOf(it.limit)

	for ; word <= wordLimit && (word < wordLimit || bit < bitLimit); word++ {
		v := *it.m.wordAt(word)
		if v != 0 {
			for ; bit < BitsPerWord && (word < wordLimit || bit < bitLimit); bit++ {
				if v&(uintptr(1)<<bit) != 0 {
					it.index = indexOf(word, bit)
					return true
				}
			}
		}
		bit = 0
	}

	it.index = it.limit
	return false
}

// Next returns the segment index of the current set bit and advances past
// it. HasMore must have just returned true.
func (it *MapIterator) Next() uintptr {
	assertc(it.m.segment.ctx, it.HasMore(), "map iterator: Next without HasMore")
	i := it.index
	it.index++
	return i * it.m.scale
}
