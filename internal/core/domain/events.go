package domain

// EventKind names a progress event emitted by the retrieval pipeline.
type EventKind string

// Pipeline progress events, in emission order for a full invocation.
const (
	EventCaptureStart    EventKind = "capture.start"
	EventChunkDone       EventKind = "chunk.done"
	EventSummaryProgress EventKind = "index.summary.progress"
	EventRetrieveDone    EventKind = "retrieve.done"
	EventRerankDone      EventKind = "rerank.done"
	EventPromptReady     EventKind = "prompt.ready"
	EventAnswerChunk     EventKind = "answer.chunk"
	EventAnswerDone      EventKind = "answer.done"

	// EventWarning carries non-fatal degradations such as a failed
	// per-item summary or a rerank parse fallback.
	EventWarning EventKind = "warning"
)

// Event is a progress notification for one pipeline invocation.
// Events for a given invocation are delivered in source order.
type Event struct {
	// Kind identifies the pipeline stage.
	Kind EventKind

	// Done and Total report progress for EventSummaryProgress.
	Done  int
	Total int

	// Text carries the answer fragment for EventAnswerChunk and the
	// warning message for EventWarning.
	Text string
}

// EventListener receives progress events. Listeners are best-effort:
// the pipeline never blocks on or fails because of a listener.
type EventListener func(Event)
