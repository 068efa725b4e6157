package speech

import (
	"fmt"
	"strings"
)

// ErrorCode is a normalised recognizer error. Values match the wire names.
type ErrorCode string

const (
	CodeNoSpeech             ErrorCode = "no-speech"
	CodeAborted              ErrorCode = "aborted"
	CodeNotAllowed           ErrorCode = "not-allowed"
	CodeLanguageNotSupported ErrorCode = "language-not-supported"
	CodeAlreadyStarted       ErrorCode = "already-started"
	CodeUnsupported          ErrorCode = "unsupported"
	CodeNetwork              ErrorCode = "network"
	CodeUnknown              ErrorCode = "unknown"
)

// ParseErrorCode maps a platform error string onto an ErrorCode.
// Unrecognised strings become CodeUnknown.
func ParseErrorCode(s string) ErrorCode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no-speech":
		return CodeNoSpeech
	case "aborted":
		return CodeAborted
	case "not-allowed", "service-not-allowed":
		return CodeNotAllowed
	case "language-not-supported":
		return CodeLanguageNotSupported
	case "already-started", "invalid-state":
		return CodeAlreadyStarted
	case "unsupported":
		return CodeUnsupported
	case "network":
		return CodeNetwork
	default:
		return CodeUnknown
	}
}

// Benign reports whether the error is ignored without any state change.
func (c ErrorCode) Benign() bool {
	return c == CodeNoSpeech || c == CodeAborted
}

// Retryable reports whether the error comes from a stop/start race and the
// start should be attempted again.
func (c ErrorCode) Retryable() bool {
	return c == CodeAlreadyStarted
}

// Terminal reports whether the error ends the voice path and moves the session to demo mode.
func (c ErrorCode) Terminal() bool {
	return !c.Benign() && !c.Retryable()
}

// RecognitionError is the user-facing error recorded on a session.
type RecognitionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition error (%s): %s", e.Code, e.Message)
}

// NewRecognitionError builds a RecognitionError with the standard message for code.
func NewRecognitionError(code ErrorCode) *RecognitionError {
	return &RecognitionError{Code: code, Message: userMessage(code)}
}

func userMessage(code ErrorCode) string {
	const fallback = " You can type your note instead."
	switch code {
	case CodeNotAllowed:
		return "Microphone access was denied." + fallback
	case CodeLanguageNotSupported:
		return "Speech recognition does not support the selected language." + fallback
	case CodeUnsupported:
		return "Speech recognition is not available in this browser." + fallback
	case CodeNetwork:
		return "Speech recognition lost its network connection." + fallback
	case CodeAlreadyStarted:
		return "The microphone could not be restarted." + fallback
	case CodeNoSpeech:
		return "No speech was detected."
	case CodeAborted:
		return "Speech recognition was aborted."
	default:
		return "Speech recognition failed." + fallback
	}
}
