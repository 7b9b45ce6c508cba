package strategy

import "strings"

const answerMarker = "final answer:"

// ExtractAnswer pulls the answer span out of a reasoning text: the text
// after the last "Final answer:" marker (case-insensitive), or the last
// non-empty line when no marker is present.
func ExtractAnswer(text string) string {
	lower := strings.ToLower(text)
	if i := strings.LastIndex(lower, answerMarker); i >= 0 {
		return strings.TrimSpace(text[i+len(answerMarker):])
	}
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return strings.TrimSpace(text)
}

// Normalize maps an extracted answer into the equivalence key used for
// self-consistency voting: lowercase, trailing sentence punctuation
// stripped, internal whitespace collapsed. This is a deliberate string-level
// policy; semantic equivalence is out of scope.
func Normalize(answer string) string {
	s := strings.ToLower(strings.TrimSpace(answer))
	s = strings.TrimRight(s, ".!")
	return strings.Join(strings.Fields(s), " ")
}
