// Package tokencount provides the heuristic token accounting used for usage
// reporting. Counts are whitespace word counts, not subword tokenizer counts;
// callers must not assume fidelity with the engine's actual tokenization.
package tokencount

import (
	"strings"

	"inferd/pkg/types"
)

// Count returns the number of non-empty whitespace-separated segments in text.
func Count(text string) int {
	return len(strings.Fields(text))
}

// CountMessages sums Count over the content of each message.
func CountMessages(msgs []types.ChatMessage) int {
	n := 0
	for _, m := range msgs {
		n += Count(m.Content)
	}
	return n
}
