package ollama

import "fmt"

const simplifyPromptTemplate = `
Convert ONLY technical terms to simple business language.
Preserve formatting and structure.
Do NOT summarize or shorten.
Preserve bold, headings, bullet points
Preserve structure exactly
Do NOT change font sizes

TEXT:
%s

SIMPLIFIED:
`

// buildSimplifyPrompt embeds at most maxChars characters of text and reports
// whether anything was cut.
func buildSimplifyPrompt(text string, maxChars int) (string, bool) {
	snippet, truncated := truncateChars(text, maxChars)
	return fmt.Sprintf(simplifyPromptTemplate, snippet), truncated
}

func truncateChars(text string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return text, false
	}
	count := 0
	for idx := range text {
		if count == maxChars {
			return text[:idx], true
		}
		count++
	}
	return text, false
}
