// Package budget fits retrieved snippets into a bounded context window.
// The downstream language model receives retrieved knowledge as one
// formatted string with a hard character budget; this package decides how
// many whole snippets fit. Snippets are never cut mid-string — truncation
// always happens at a snippet boundary so no retrieved passage is ever
// half-quoted to the model.
package budget

// DefaultMaxContextChars is the default character budget for a formatted
// retrieval context. Sized for voice-agent turns: roughly a thousand
// tokens of grounding material, leaving the rest of the model's window
// for instructions and conversation history.
const DefaultMaxContextChars = 4000

// Fit returns the longest prefix of snippets whose sep-joined length does
// not exceed max. The first snippet is included even when it alone
// exceeds max only if it fits; an empty slice is returned when nothing
// fits. Order is preserved — callers pass snippets ranked best-first.
func Fit(snippets []string, sep string, max int) []string {
	if max <= 0 {
		return nil
	}

	total := 0
	for i, s := range snippets {
		need := len(s)
		if i > 0 {
			need += len(sep)
		}
		if total+need > max {
			return snippets[:i]
		}
		total += need
	}
	return snippets
}
