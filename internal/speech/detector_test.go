package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWakeWordDetector_ProcessTranscript(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
		inputs []string
		want   []bool
	}{
		{
			name:   "fires once per distinct transcript",
			phrase: "hey assistant",
			inputs: []string{"...hey assistant please...", "...hey assistant please..."},
			want:   []bool{true, false},
		},
		{
			name:   "case insensitive",
			phrase: "Hey Assistant",
			inputs: []string{"HEY ASSISTANT"},
			want:   []bool{true},
		},
		{
			name:   "growing interim results each fire",
			phrase: "hey assistant",
			inputs: []string{"hey assistant", "hey assistant add", "hey assistant add milk"},
			want:   []bool{true, true, true},
		},
		{
			name:   "repeat is only guarded against the previous transcript",
			phrase: "hey assistant",
			inputs: []string{"hey assistant", "other", "hey assistant"},
			want:   []bool{true, false, true},
		},
		{
			name:   "never fires without the phrase",
			phrase: "hey assistant",
			inputs: []string{"hello there", "hey assist", "assistant hey", ""},
			want:   []bool{false, false, false, false},
		},
		{
			name:   "no fuzzy matching",
			phrase: "hey assistant",
			inputs: []string{"hey asistant", "hay assistant"},
			want:   []bool{false, false},
		},
		{
			name:   "empty phrase never matches",
			phrase: "   ",
			inputs: []string{"anything at all"},
			want:   []bool{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewWakeWordDetector(tt.phrase)
			for i, in := range tt.inputs {
				assert.Equal(t, tt.want[i], d.ProcessTranscript(in), "input %d %q", i, in)
			}
		})
	}
}

func TestWakeWordDetector_SetPhrase(t *testing.T) {
	d := NewWakeWordDetector("hey assistant")

	assert.True(t, d.ProcessTranscript("ok computer hey assistant"))
	assert.False(t, d.ProcessTranscript("ok computer hey assistant"))

	d.SetPhrase("  OK Computer ")
	assert.Equal(t, "ok computer", d.Phrase())
	// The guard is cleared, so the same transcript is evaluated again.
	assert.True(t, d.ProcessTranscript("ok computer hey assistant"))
}

func TestWakeWordDetector_Reset(t *testing.T) {
	d := NewWakeWordDetector("hey assistant")

	assert.True(t, d.ProcessTranscript("hey assistant"))
	assert.False(t, d.ProcessTranscript("hey assistant"))

	d.Reset()
	assert.Equal(t, "hey assistant", d.Phrase())
	assert.True(t, d.ProcessTranscript("hey assistant"))
}
