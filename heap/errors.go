package heap

import "fmt"

// FatalError is the panic value raised (by fatal, and by the Abort of
// GoPlatform and MmapPlatform) after an internal invariant violation, or an allocation failure that could not be
// satisfied even at the declared minimum. The collector never attempts to
// continue past one — there is no recoverable path once a FatalError is
// raised, only a consistent shape for reporting it (see the diagnostics
// package).
type FatalError struct {
	Msg     string
	Segment string
	Offset  uintptr
}

func (e FatalError) Error() string {
	if e.Segment == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (%s+%d)", e.Msg, e.Segment, e.Offset)
}

// fatal routes an unrecoverable condition to the Platform's Abort. Abort
// is documented to never return; the trailing panic exists only so this
// function's control flow terminates even if a caller-supplied Platform
// misbehaves.
func (c *Context) fatal(msg string) {
	c.platform.Abort(msg)
	panic(FatalError{Msg: msg})
}

// assertc checks an internal invariant, routing to ctx.fatal on failure.
// It is never used for ordinary control flow, only for conditions whose
// falsity means this package has a bug or its Client violated its
// contract.
func assertc(ctx *Context, cond bool, msg string) {
	if !cond {
		ctx.fatal(msg)
	}
}
