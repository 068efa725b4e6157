package speech

import (
	"context"
	"time"
)

// Recognizer is one platform speech-recognition instance. Its callbacks are
// delivered back to the owning session through Session.Dispatch, tagged with
// the generation it was created with.
type Recognizer interface {
	Start() error
	Stop() error
	Abort() error
}

// RecognizerOptions configures a new recognizer.
type RecognizerOptions struct {
	Role           Role
	Continuous     bool
	InterimResults bool
	Lang           string
	Generation     uint64
}

// Platform creates recognizers. It is implemented by whatever hosts the real
// speech engine, e.g. the websocket bridge to a browser.
type Platform interface {
	Supported() bool
	NewRecognizer(opts RecognizerOptions) (Recognizer, error)
}

// Processor turns a finished utterance into tasks and returns how many were extracted.
type Processor interface {
	Process(ctx context.Context, text string) (int, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, text string) (int, error)

// Process calls f(ctx, text).
func (f ProcessorFunc) Process(ctx context.Context, text string) (int, error) {
	return f(ctx, text)
}

// Listener receives session notifications. Calls are made from the session's
// event loop one at a time and must not block.
type Listener interface {
	OnStateChange(from, to State, err *RecognitionError)
	OnTranscript(text string, final bool)
	OnProcessed(tasks int, err error)
}

type nopListener struct{}

func (nopListener) OnStateChange(State, State, *RecognitionError) {}
func (nopListener) OnTranscript(string, bool)                     {}
func (nopListener) OnProcessed(int, error)                        {}

// Timer is a pending delayed call.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
