package quiz

import "errors"

// Error taxonomy for store operations. All are recoverable: the store stays in
// a retryable state after any of them.
var (
	// ErrSessionStart wraps a failed remote session creation.
	ErrSessionStart = errors.New("quiz: session start failed")
	// ErrAnswerPersist wraps an answer that was accepted locally but failed
	// to persist remotely.
	ErrAnswerPersist = errors.New("quiz: answer not saved remotely")
	// ErrQuestionFetch wraps a failed initial question list load.
	ErrQuestionFetch = errors.New("quiz: question fetch failed")
	// ErrFinalize wraps a failed finalize call.
	ErrFinalize = errors.New("quiz: finalize failed")
)
