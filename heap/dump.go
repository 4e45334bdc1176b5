package heap

import "unsafe"

// Dump is a read-only snapshot of a Context's live segments and the card
// table riding on gen2, in the caller's choice of representation. It
// exists purely for offline inspection (see the snapshot package); Dump
// never mutates the Context and the words it returns are copies, not
// aliases into live segment storage.
type Dump struct {
	Gen1Capacity, Gen1Position uintptr
	Gen2Capacity, Gen2Position uintptr
	TenureThreshold            uintptr

	Gen1, AgeMap    []uintptr
	Gen2, HeapMap   []uintptr
	PageMap, PtrMap []uintptr
}

func segmentWords(s *Segment) []uintptr {
	n := s.Position()
	out := make([]uintptr, n)
	for i := uintptr(0); i < n; i++ {
		out[i] = *(*uintptr)(unsafe.Pointer(uintptr(s.data) + i*BytesPerWord))
	}
	return out
}

func mapWords(m *Map) []uintptr {
	n := m.size()
	out := make([]uintptr, n)
	for i := uintptr(0); i < n; i++ {
		out[i] = *(*uintptr)(unsafe.Pointer(uintptr(m.data()) + i*BytesPerWord))
	}
	return out
}

// Dump captures the current contents of gen1, gen2, and gen2's card
// table. The caller must hold off on further Collect calls until it is
// done with the result.
func (c *Context) Dump() Dump {
	return Dump{
		Gen1Capacity:    c.gen1.Capacity(),
		Gen1Position:    c.gen1.Position(),
		Gen2Capacity:    c.gen2.Capacity(),
		Gen2Position:    c.gen2.Position(),
		TenureThreshold: c.tuning.TenureThreshold,
		Gen1:            segmentWords(c.gen1),
		AgeMap:          mapWords(c.ageMap),
		Gen2:            segmentWords(c.gen2),
		HeapMap:         mapWords(c.heapMap),
		PageMap:         mapWords(c.pageMap),
		PtrMap:          mapWords(c.pointerMap),
	}
}
