package nufx

// CallbackResult is returned by SelectionFilter, ErrorHandler, etc. to
// steer the engine (spec.md §6 "Callbacks").
type CallbackResult int

const (
	CallbackResume CallbackResult = iota
	CallbackSkip
	CallbackAbort
)

// SelectionFilterFunc decides, per record or per thread, whether an
// enumeration/extraction operation should include it.
type SelectionFilterFunc func(rec *Record, thread *Thread) bool

// PathnameRewriterFunc lets the caller remap an output pathname during
// extraction.
type PathnameRewriterFunc func(rec *Record) string

// ProgressFunc reports progress for the current operation; returning false
// requests abort.
type ProgressFunc func(done, total int64) bool

// ErrorHandlerFunc is invoked when a CRC mismatch or other recoverable
// error occurs; its CallbackResult decides whether to resume (treat as
// valid), skip (the current record/thread), or abort.
type ErrorHandlerFunc func(err error) CallbackResult

// MessageHandlerFunc receives diagnostic messages (spec.md §6).
type MessageHandlerFunc func(msg string)

// Callbacks holds the five optional callback slots of spec.md §3's Archive
// definition. All are optional; a nil slot behaves as "always resume" /
// "always include" / "no-op".
type Callbacks struct {
	SelectionFilter  SelectionFilterFunc
	PathnameRewriter PathnameRewriterFunc
	Progress         ProgressFunc
	ErrorHandler     ErrorHandlerFunc
	MessageHandler   MessageHandlerFunc
}
