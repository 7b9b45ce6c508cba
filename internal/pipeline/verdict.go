package pipeline

import (
	"strings"

	"trvd/pkg/types"
)

// parseVerdict interprets critic output. Only an explicit PASS or CORRECT in
// the first verdict-bearing line counts as a pass; anything unparseable fails
// closed so a confused critic cannot wave a bad solution through.
func parseVerdict(out string) types.Verdict {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return types.Verdict{Pass: false, Reason: "unparseable verdict"}
	}
	upper := strings.ToUpper(trimmed)
	idx := strings.Index(upper, "VERDICT:")
	if idx < 0 {
		// No marker. Accept a bare PASS/CORRECT as a pass, nothing else.
		if word := strings.ToUpper(firstWord(trimmed)); word == "PASS" || word == "CORRECT" {
			return types.Verdict{Pass: true}
		}
		return types.Verdict{Pass: false, Reason: firstLine(trimmed)}
	}
	rest := strings.TrimSpace(trimmed[idx+len("VERDICT:"):])
	word := strings.ToUpper(firstWord(rest))
	switch word {
	case "PASS", "CORRECT":
		return types.Verdict{Pass: true}
	case "FAIL", "INCORRECT", "WRONG":
		reason := strings.TrimSpace(strings.TrimPrefix(rest, firstWord(rest)))
		if reason == "" {
			reason = "rejected without stated reason"
		}
		return types.Verdict{Pass: false, Reason: firstLine(reason)}
	default:
		return types.Verdict{Pass: false, Reason: "unparseable verdict"}
	}
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,:;!")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
