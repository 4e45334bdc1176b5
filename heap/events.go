package heap

// Event describes one completed collection cycle. It is the structured
// counterpart to the verbose stderr lines the collector this generalizes
// prints at Verbose; an EventSink lets an embedder route the same
// information wherever it likes instead.
type Event struct {
	Mode                 Mode
	CollectionNanos      int64
	RunNanos             int64
	TotalCollectionNanos int64
	TotalNanos           int64
	Gen1Capacity         uintptr
	Gen1Position         uintptr
	Gen2Capacity         uintptr
	Gen2Position         uintptr
}

// EventSink receives one Event per completed collection. Collect calls
// HandleEvent synchronously at the end of each cycle, so a slow sink
// slows Collect; it is the embedder's responsibility to keep it cheap
// or buffer internally (see debugserver, which hands Events to a
// channel-backed WebSocket pusher rather than writing inline).
type EventSink interface {
	HandleEvent(e Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(e Event)

// HandleEvent implements EventSink.
func (f EventSinkFunc) HandleEvent(e Event) { f(e) }
