package recall

import "strings"

// Default spoken commands. The start phrase begins answer recording, the
// stop phrase commits whatever was said between them.
const (
	defaultStartPhrase = "gemini start"
	defaultStopPhrase  = "gemini stop"
)

// textAfterPhrase scans spoken text for phrase, ignoring case. It returns
// the text following the phrase and whether the phrase was found. Anything
// said before the phrase is discarded; the phrase may sit anywhere in the
// utterance. A bare phrase returns "" and true.
func textAfterPhrase(text, phrase string) (string, bool) {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(phrase))
	if idx < 0 {
		return "", false
	}

	rest := strings.TrimSpace(text[idx+len(phrase):])
	rest = strings.TrimLeft(rest, " ,.!?\n\r\t")
	return strings.TrimSpace(rest), true
}

// textBeforeLastPhrase scans spoken text for phrase, ignoring case, and
// returns the text before its last occurrence. The last occurrence wins so
// an answer that quotes the phrase is not cut short.
func textBeforeLastPhrase(text, phrase string) (string, bool) {
	lower := strings.ToLower(text)
	idx := strings.LastIndex(lower, strings.ToLower(phrase))
	if idx < 0 {
		return "", false
	}

	return strings.TrimSpace(text[:idx]), true
}

// stripPhrases removes every occurrence of the given phrases, ignoring case,
// and collapses the whitespace left behind.
func stripPhrases(text string, phrases ...string) string {
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		phrase = strings.ToLower(phrase)
		if phrase == "" {
			continue
		}
		for {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				break
			}
			text = text[:idx] + text[idx+len(phrase):]
			lower = lower[:idx] + lower[idx+len(phrase):]
		}
	}

	return strings.Join(strings.Fields(text), " ")
}
