package assist

import "errors"

var (
	// ErrBusy is returned when a panel already has a request in flight.
	ErrBusy = errors.New("assist: request already pending")
	// ErrAssistantDisabled is returned when the assistant flag is off.
	ErrAssistantDisabled = errors.New("assist: assistant is disabled")
	// ErrRequestFailed wraps transport and endpoint failures for logs and traces.
	ErrRequestFailed = errors.New("assist: request failed")
	// ErrSuggestionStale marks a suggestion whose cursor has since moved.
	ErrSuggestionStale = errors.New("assist: suggestion superseded")
	ErrNoSelection     = errors.New("assist: nothing selected")
)

// FailureText replaces a failed reply. Error detail is never shown.
const FailureText = "Sorry, there was an error processing your request."

// FixHeading prefixes replies to SuggestFix.
const FixHeading = "Compilation Error Fix Suggestion:"
