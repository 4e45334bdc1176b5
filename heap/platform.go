package heap

import "unsafe"

// Platform is the set of host capabilities the collector needs but does
// not implement itself: raw memory, a monotonic clock, and a way to
// terminate the process on an unrecoverable internal error. Production
// embedders are expected to supply a Platform backed by their own virtual
// memory and logging; GoPlatform and, on unix, MmapPlatform exist so this
// module is runnable and testable standalone.
type Platform interface {
	// Allocate returns zeroed memory of the given size in bytes, aborting
	// (via Abort) if none is available.
	Allocate(bytes uintptr) unsafe.Pointer
	// TryAllocate returns zeroed memory of the given size in bytes, or nil
	// if none is available. Unlike Allocate it never aborts.
	TryAllocate(bytes uintptr) unsafe.Pointer
	// Free releases memory obtained from Allocate or TryAllocate.
	Free(p unsafe.Pointer)
	// Now returns a monotonically increasing clock reading in nanoseconds,
	// used only for collection timing.
	Now() int64
	// Abort terminates the collection; it must not return normally.
	Abort(msg string)
}
