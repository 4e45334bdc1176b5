package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// drainBitset pops every pending offset from a bitset via bitsetHasMore/bitsetNext
// and returns them in pop order.
func drainBitset(ctx *Context, p *uintptr) []uintptr {
	var got []uintptr
	for bitsetHasMore(p) {
		got = append(got, bitsetNext(ctx, p))
	}
	return got
}

func TestBitsetInlineRoundTrip(t *testing.T) {
	ctx := NewContext(NewGoPlatform(), DefaultTuning())

	var word uintptr
	bitsetInit(&word)

	bitsetSet(&word, 3, true)
	bitsetSet(&word, 7, true)
	bitsetSet(&word, 1, true)

	assert.ElementsMatch(t, []uintptr{1, 3, 7}, drainBitset(ctx, &word))
	assert.False(t, bitsetHasMore(&word))
}

// TestBitsetExtensionSpill exercises an offset past BitsPerWord-1, which
// must switch the set to its out-of-line extension form (P8: bitset
// round-trip survives the inline/extension boundary).
func TestBitsetExtensionSpill(t *testing.T) {
	ctx := NewContext(NewGoPlatform(), DefaultTuning())

	words := make([]uintptr, 8)
	p := &words[0]
	bitsetInit(p)

	bitsetSet(p, 2, true)
	bitsetSet(p, BitsPerWord+5, true)
	bitsetSet(p, BitsPerWord*2+1, true)

	assert.Equal(t, bitsetExtensionBit, words[0]&bitsetExtensionBit)

	got := drainBitset(ctx, p)
	assert.ElementsMatch(t, []uintptr{2, BitsPerWord + 5, BitsPerWord*2 + 1}, got)
	assert.False(t, bitsetHasMore(p))
}

func TestBitsetClearIsIdempotent(t *testing.T) {
	var word uintptr
	bitsetInit(&word)
	bitsetSet(&word, 4, true)
	bitsetSet(&word, 4, false)
	bitsetSet(&word, 4, false)
	assert.False(t, bitsetHasMore(&word))
}
