package heap

import "unsafe"

// collectSlot resolves the reference held in slot and, if that moved a
// not-yet-visited object, walks the entire subtree reachable from it
// depth-first — without an explicit stack. The walk's state lives in the
// objects themselves: every object that turns out to have more than one
// unvisited child gets a parent link in its own word 1 and a bitset of
// still-pending child offsets in word 2 onward (see bitset.go), both of
// which are safe to borrow because those words belong to the pre-collection
// copy, which nothing but this traversal reads again.
//
// The two labeled sections below ("visit" and "ascend") mirror the
// goto-based control flow of the collector this generalizes: descend into
// a copy's first unresolved child; when a copy has no more unresolved
// children, climb back to its parent and resume scanning from where that
// parent's own walk left off.
func (c *Context) collectSlot(slot *uintptr) {
	original := mask(*slot)
	var parent unsafe.Pointer

	result, needsVisit := c.update(slot)
	setWord(slot, result)
	if !needsVisit {
		return
	}

	for {
		// visit: descend into original's copy, updating every child
		// reference and recording which (if more than one) still need a
		// visit of their own.
		copy := c.follow(original)
		bs := c.bitsetSlot(original)

		var first, second, last uintptr
		visits, total := uintptr(0), uintptr(0)

		c.client.Walk(copy, func(offset uintptr) bool {
			childResult, childNeedsVisit := c.update(getp(copy, offset))

			total++
			if total == 3 {
				bitsetInit(bs)
			}

			if childNeedsVisit {
				visits++
				switch visits {
				case 1:
					first = offset
				case 2:
					second = offset
				}
			} else {
				setAt(copy, offset, childResult)
			}

			if visits > 1 && total > 2 && (second != 0 || childNeedsVisit) {
				bitsetClear(bs, last, offset)
				last = offset

				if second != 0 {
					bitsetSet(bs, second, true)
					second = 0
				}
				if childNeedsVisit {
					bitsetSet(bs, offset, true)
				}
			}

			return true
		})

		if visits > 0 {
			if visits > 1 {
				*c.parentSlot(original) = parent
				parent = original
			}
			original = get(copy, first)
			setAt(copy, first, c.follow(original))
			continue
		}

		// ascend: original had nothing left to visit; climb to its
		// parent and resume that parent's scan.
		original = parent
		if original == nil {
			return
		}

		copy = c.follow(original)
		bs = c.bitsetSlot(original)

		var next, total2 uintptr
		c.client.Walk(copy, func(offset uintptr) bool {
			total2++
			switch total2 {
			case 1:
				return true
			case 2:
				next = offset
				return true
			case 3:
				next = bitsetNext(c, bs)
				return false
			default:
				c.fatal("traverse: scan visited more offsets than recorded")
				return false
			}
		})
		assertc(c, total2 > 1, "traverse: scan found fewer than two pending children")

		if total2 == 3 && bitsetHasMore(bs) {
			parent = original
		} else {
			parent = *c.parentSlot(original)
		}

		original = get(copy, next)
		setAt(copy, next, c.follow(original))
	}
}
