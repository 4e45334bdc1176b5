package heap

import "unsafe"

// BytesPerWord and BitsPerWord are the two target-dependent constants the
// whole package scales against; on every platform Go runs on today that's
// either 4 or 8 bytes.
const (
	BytesPerWord = unsafe.Sizeof(uintptr(0))
	BitsPerWord  = 8 * BytesPerWord
)

// TagBits is the number of low bits in every reference slot the mutator
// may use for non-pointer tag data (small integers, type discriminants,
// and the like). The collector never interprets these bits; it only
// preserves them across an update.
const TagBits = 2

// PointerMask isolates the address portion of a tagged word by clearing
// its low TagBits bits.
const PointerMask = ^uintptr(1<<TagBits - 1)

// mask strips the tag bits from a raw slot word, returning the object it
// refers to, or nil if the slot holds no pointer.
func mask(word uintptr) unsafe.Pointer {
	return unsafe.Pointer(word & PointerMask)
}

// maskPtr is mask for callers that already have an unsafe.Pointer in hand.
func maskPtr(p unsafe.Pointer) unsafe.Pointer {
	return mask(uintptr(p))
}

// withPointer recombines a clean object address with the tag bits carried
// by the word previously stored in a slot.
func withPointer(old uintptr, o unsafe.Pointer) uintptr {
	return uintptr(o) | (old &^ PointerMask)
}

// get reads the word at offsetWords into o and returns it as a masked
// object reference.
func get(o unsafe.Pointer, offsetWords uintptr) unsafe.Pointer {
	return mask(*(*uintptr)(unsafe.Pointer(uintptr(o) + offsetWords*BytesPerWord)))
}

// getp returns the address of the word at offsetWords into o.
func getp(o unsafe.Pointer, offsetWords uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(o) + offsetWords*BytesPerWord))
}

// setWord stores value into slot, preserving slot's previous tag bits.
func setWord(slot *uintptr, value unsafe.Pointer) {
	*slot = withPointer(*slot, value)
}

// setAt is setWord at offsetWords into o.
func setAt(o unsafe.Pointer, offsetWords uintptr, value unsafe.Pointer) {
	setWord(getp(o, offsetWords), value)
}
