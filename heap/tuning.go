package heap

// Tuning holds the constants that shape collector behavior. Every field
// has a production-tested default drawn from the collector this package
// generalizes; embedders needing something else (a memory-constrained
// target, a benchmark exploring tenure behavior) construct their own.
type Tuning struct {
	// TenureThreshold is the number of collections an object must survive
	// in gen1 before it is promoted to gen2. Must be at least 1.
	TenureThreshold uintptr

	// LikelyPageSizeInBytes sizes the middle tier (pageMap) of the old
	// generation's card table. It does not need to match the host's
	// actual page size, only be in the right ballpark for the scan-skip
	// savings to pay for the extra bookkeeping.
	LikelyPageSizeInBytes uintptr

	// InitialGen2CapacityInBytes is the smallest size a freshly
	// major-collected gen2 is grown to, regardless of how little the
	// live set actually needs.
	InitialGen2CapacityInBytes uintptr

	// Verbose enables per-collection summary logging.
	Verbose bool
}

// DefaultTuning returns the constants this package's algorithms were
// validated against.
func DefaultTuning() Tuning {
	return Tuning{
		TenureThreshold:            3,
		LikelyPageSizeInBytes:      4096,
		InitialGen2CapacityInBytes: 4 * 1024 * 1024,
		Verbose:                    true,
	}
}
