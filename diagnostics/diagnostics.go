// Package diagnostics formats collector errors and prints them in a
// consistent way.
package diagnostics

import (
	"fmt"
	"io"
	"sort"

	"github.com/tinygo-org/heapgc/heap"
)

// A single diagnostic: one heap.FatalError plus the sequence number of
// the collection cycle it was raised during, so a report covering several
// runs still reads in the order the failures actually happened.
type Diagnostic struct {
	Cycle int
	Err   heap.FatalError
}

// Report is a batch of Diagnostics, typically one per Context an embedder
// is juggling.
type Report []Diagnostic

// CreateReport wraps a recovered panic value from a Collect call into a
// Report. Non-heap.FatalError panics are wrapped with their Error() text
// so the report still has something to print instead of losing context.
func CreateReport(cycle int, recovered any) Report {
	if recovered == nil {
		return nil
	}

	switch err := recovered.(type) {
	case heap.FatalError:
		return Report{{Cycle: cycle, Err: err}}
	case error:
		return Report{{Cycle: cycle, Err: heap.FatalError{Msg: err.Error()}}}
	default:
		return Report{{Cycle: cycle, Err: heap.FatalError{Msg: fmt.Sprint(err)}}}
	}
}

// Merge combines reports from multiple Contexts into one, sorted by cycle
// so interleaved failures from several heaps still print in time order.
func Merge(reports ...Report) Report {
	var merged Report
	for _, r := range reports {
		merged = append(merged, r...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Cycle < merged[j].Cycle
	})
	return merged
}

// WriteTo prints every diagnostic in the report, one per line.
func (r Report) WriteTo(w io.Writer) {
	for _, d := range r {
		d.WriteTo(w)
	}
}

// WriteTo prints this diagnostic as "cycle N: message", followed by
// " (segment+offset)" when Err.Segment is set.
func (d Diagnostic) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "cycle %d: %s\n", d.Cycle, d.Err.Error())
}
