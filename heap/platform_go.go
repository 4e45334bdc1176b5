package heap

import (
	"sync"
	"time"
	"unsafe"
)

// GoPlatform implements Platform on top of the Go runtime's own allocator.
// It is the Platform used by this module's tests and by cmd/heapgc-bench.
// Keeping every allocation reachable from the live map is what keeps Go's
// own collector from reclaiming a segment's backing array out from under
// the pointer arithmetic this package does on it.
type GoPlatform struct {
	mu    sync.Mutex
	start time.Time
	live  map[unsafe.Pointer][]uintptr
}

// NewGoPlatform returns a ready-to-use GoPlatform.
func NewGoPlatform() *GoPlatform {
	return &GoPlatform{start: time.Now(), live: make(map[unsafe.Pointer][]uintptr)}
}

// TryAllocate implements Platform.
func (g *GoPlatform) TryAllocate(bytes uintptr) unsafe.Pointer {
	if bytes == 0 {
		return nil
	}
	words := ceilDiv(bytes, BytesPerWord)
	buf := make([]uintptr, words)
	p := unsafe.Pointer(&buf[0])

	g.mu.Lock()
	g.live[p] = buf
	g.mu.Unlock()

	return p
}

// Allocate implements Platform.
func (g *GoPlatform) Allocate(bytes uintptr) unsafe.Pointer {
	p := g.TryAllocate(bytes)
	if p == nil {
		g.Abort("heap: GoPlatform out of memory")
	}
	return p
}

// Free implements Platform.
func (g *GoPlatform) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	g.mu.Lock()
	delete(g.live, p)
	g.mu.Unlock()
}

// Now implements Platform.
func (g *GoPlatform) Now() int64 {
	return time.Since(g.start).Nanoseconds()
}

// Abort implements Platform.
func (g *GoPlatform) Abort(msg string) {
	panic(FatalError{Msg: msg})
}
