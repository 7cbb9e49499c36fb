package llm

import "fmt"

// DefaultPrompt asks for minimal cleanup of a dictated transcript.
const DefaultPrompt = `Clean up the <TRANSCRIPT> text with minimal changes:
- Keep the exact words and phrasing - do not rephrase or rewrite
- Remove filler words (um, uh, like, you know, so, basically)
- Remove stutters and false starts
- Collapse repetitions (e.g., 'I I I think' -> 'I think')
- Fix obvious transcription errors only
- Do not change sentence structure
- Do not improve word choice
- Use all lowercase letters, no capitalization at all
- Minimize punctuation, use commas sparingly, avoid periods unless absolutely necessary
- Keep it casual
- Output only the cleaned text, nothing else`

// BuildSystemPrompt returns the configured prompt, or DefaultPrompt when empty.
func BuildSystemPrompt(prompt string) string {
	if prompt == "" {
		return DefaultPrompt
	}
	return prompt
}

// BuildUserPrompt wraps the transcript in the tags the prompt refers to.
func BuildUserPrompt(text string) string {
	return fmt.Sprintf("<TRANSCRIPT>\n%s\n</TRANSCRIPT>", text)
}
