package heap

import "unsafe"

// During in-place DFS traversal an object that has already been copied no
// longer needs its own words for anything but the forwarding pointer in
// word 0; the traversal borrows word 1 as a parent link and word 2 onward
// as a compact bitset of child offsets still pending a visit. bitsetWord
// addresses word i of that scratch area, where p is the address of word 2
// (see Context.bitsetSlot).
func bitsetWord(p *uintptr, i uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + i*BytesPerWord))
}

// bitsetExtensionBit marks word 0 of a bitset as holding an out-of-line
// extension (words 3+) rather than an inline set of offsets < BitsPerWord-1.
const bitsetExtensionBit = uintptr(1) << (BitsPerWord - 1)

func bitsetInit(p *uintptr) {
	*p = 0
}

// bitsetClear zeroes the extension words spanned by [start, end), an
// optimization so a freshly-extended bitset doesn't carry garbage from
// whatever the object's words held before it was copied.
func bitsetClear(p *uintptr, start, end uintptr) {
	switch {
	case end < BitsPerWord-1:
		// entirely inline; nothing to clear
	case start < BitsPerWord-1:
		n := wordOf(end + 2*BitsPerWord + 1)
		zeroWords(unsafe.Pointer(bitsetWord(p, 1)), n)
	default:
		startWord := wordOf(start + 2*BitsPerWord + 1)
		endWord := wordOf(end + 2*BitsPerWord + 1)
		if endWord > startWord {
			zeroWords(unsafe.Pointer(bitsetWord(p, startWord+1)), endWord-startWord)
		}
	}
}

// bitsetSet records or clears offset i's membership, switching the bitset
// to its extended, out-of-line form the first time an offset at or past
// BitsPerWord-1 is set.
func bitsetSet(p *uintptr, i uintptr, v bool) {
	if i >= BitsPerWord-1 {
		i += 2*BitsPerWord + 1
		if v {
			*p |= bitsetExtensionBit
			if *bitsetWord(p, 2) <= wordOf(i)-3 {
				*bitsetWord(p, 2) = wordOf(i) - 2
			}
		}
	}

	if v {
		*bitsetWord(p, wordOf(i)) |= uintptr(1) << bitOf(i)
	} else {
		*bitsetWord(p, wordOf(i)) &^= uintptr(1) << bitOf(i)
	}
}

// bitsetHasMore reports, and if extended advances past any now-empty
// scan words, whether any offset remains pending.
func bitsetHasMore(p *uintptr) bool {
	switch *p {
	case 0:
		return false
	case bitsetExtensionBit:
		length := *bitsetWord(p, 2)
		word := wordOf(*bitsetWord(p, 1))
		for ; word < length; word++ {
			if *bitsetWord(p, word+3) != 0 {
				*bitsetWord(p, 1) = indexOf(word, 0)
				return true
			}
		}
		*bitsetWord(p, 1) = indexOf(word, 0)
		return false
	default:
		return true
	}
}

// bitsetNext pops and returns the next pending offset. HasMore must have
// just returned true.
func bitsetNext(ctx *Context, p *uintptr) uintptr {
	more := bitsetHasMore(p)
	assertc(ctx, more, "bitset: Next without HasMore")

	switch *p {
	case 0:
		ctx.fatal("bitset: Next on empty set")
		return 0
	case bitsetExtensionBit:
		i := *bitsetWord(p, 1)
		word := wordOf(i)
		assertc(ctx, word < *bitsetWord(p, 2), "bitset: scan index past length")
		for bit := bitOf(i); bit < BitsPerWord; bit++ {
			if *bitsetWord(p, word+3)&(uintptr(1)<<bit) != 0 {
				*bitsetWord(p, 1) = indexOf(word, bit) + 1
				bitsetSet(p, *bitsetWord(p, 1)+BitsPerWord-2, false)
				return *bitsetWord(p, 1) + BitsPerWord - 2
			}
		}
		ctx.fatal("bitset: extension word exhausted unexpectedly")
		return 0
	default:
		for i := uintptr(0); i < BitsPerWord-1; i++ {
			if *p&(uintptr(1)<<i) != 0 {
				bitsetSet(p, i, false)
				return i
			}
		}
		ctx.fatal("bitset: inline word exhausted unexpectedly")
		return 0
	}
}
