package speech

import (
	"strings"
	"sync"
)

// WakeWordDetector spots a configured phrase in running transcripts.
//
// Matching is a case-insensitive substring test. The detector remembers the
// last transcript it saw and returns false when the identical string is
// evaluated again, so repeated interim results carrying the same text fire
// at most once.
type WakeWordDetector struct {
	mu         sync.Mutex
	phrase     string
	lastResult string
}

// NewWakeWordDetector creates a detector for phrase.
func NewWakeWordDetector(phrase string) *WakeWordDetector {
	return &WakeWordDetector{phrase: normalize(phrase)}
}

// ProcessTranscript reports whether transcript contains the wake word.
func (d *WakeWordDetector) ProcessTranscript(transcript string) bool {
	t := strings.ToLower(transcript)

	d.mu.Lock()
	defer d.mu.Unlock()

	if t == d.lastResult {
		return false
	}
	d.lastResult = t

	if d.phrase == "" {
		return false
	}
	return strings.Contains(t, d.phrase)
}

// SetPhrase replaces the wake word and clears the repeat guard.
func (d *WakeWordDetector) SetPhrase(phrase string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phrase = normalize(phrase)
	d.lastResult = ""
}

// Reset clears the repeat guard and keeps the phrase. A new recognition
// stream may legitimately repeat the last transcript of the previous one.
func (d *WakeWordDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastResult = ""
}

// Phrase returns the normalised wake word.
func (d *WakeWordDetector) Phrase() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phrase
}

func normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}
