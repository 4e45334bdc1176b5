//go:build unix

package heap

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapPlatform implements Platform directly over anonymous mmap regions.
// It is the Platform a standalone embedder on unix would reach for; it
// gives the collector real page-backed memory instead of memory the Go
// runtime's own GC also has opinions about.
type MmapPlatform struct {
	mu    sync.Mutex
	start time.Time
	live  map[uintptr]uintptr // address -> length, for Free
}

// NewMmapPlatform returns a ready-to-use MmapPlatform.
func NewMmapPlatform() *MmapPlatform {
	return &MmapPlatform{start: time.Now(), live: make(map[uintptr]uintptr)}
}

// TryAllocate implements Platform.
func (m *MmapPlatform) TryAllocate(bytes uintptr) unsafe.Pointer {
	if bytes == 0 {
		return nil
	}
	b, err := unix.Mmap(-1, 0, int(bytes), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil
	}
	p := unsafe.Pointer(&b[0])

	m.mu.Lock()
	m.live[uintptr(p)] = uintptr(len(b))
	m.mu.Unlock()

	return p
}

// Allocate implements Platform.
func (m *MmapPlatform) Allocate(bytes uintptr) unsafe.Pointer {
	p := m.TryAllocate(bytes)
	if p == nil {
		m.Abort("heap: MmapPlatform out of memory")
	}
	return p
}

// Free implements Platform.
func (m *MmapPlatform) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	m.mu.Lock()
	length, ok := m.live[uintptr(p)]
	if ok {
		delete(m.live, uintptr(p))
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	b := unsafe.Slice((*byte)(p), length)
	unix.Munmap(b)
}

// Now implements Platform.
func (m *MmapPlatform) Now() int64 {
	return time.Since(m.start).Nanoseconds()
}

// Abort implements Platform.
func (m *MmapPlatform) Abort(msg string) {
	panic(FatalError{Msg: msg})
}
