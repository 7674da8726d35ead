package assistant

import "strings"

// Transcript is one recognized fragment delivered by the engine.
type Transcript struct {
	Text  string `json:"transcript"`
	Final bool   `json:"isFinal"`
}

// Batch holds the fragments of a single engine result callback, in
// delivery order, starting at the engine's result index.
type Batch []Transcript

// Split concatenates the final and interim fragments of the batch
// separately, preserving order within each portion.
func (b Batch) Split() (final, interim string) {
	var fb, ib strings.Builder
	for _, t := range b {
		if t.Final {
			fb.WriteString(t.Text)
		} else {
			ib.WriteString(t.Text)
		}
	}
	return fb.String(), ib.String()
}

// Final is a convenience constructor for a batch with one final fragment.
func Final(text string) Batch {
	return Batch{{Text: text, Final: true}}
}

// Interim is a convenience constructor for a batch with one interim fragment.
func Interim(text string) Batch {
	return Batch{{Text: text}}
}
