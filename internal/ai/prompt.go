package ai

import (
	"fmt"
	"strings"

	"github.com/steveyegge/labeler/internal/labels"
)

// ResponseMarker ends the prompt. Endpoints that echo the prompt return it
// ahead of the generated labels, where labels.LocateAnswer finds it.
const ResponseMarker = labels.ResponseMarker

// MaxSummaryInput caps the issue body sent for summarization (in runes)
const MaxSummaryInput = 32000

// BuildQuestion phrases a labeling request for one issue
func BuildQuestion(title, creator, essence string) string {
	return fmt.Sprintf("Can you assign labels to the GitHub issue titled `%s` created by `%s`, stating `%s`?",
		title, creator, essence)
}

// BuildPrompt embeds question in the instruction template the labeling model was tuned on
func BuildPrompt(question string) string {
	return fmt.Sprintf(`Below is an instruction that describes a task, paired with an input that provides further context. Write a response that appropriately completes the request.

### Instruction:
You're a programming bot tasked to analyze GitHub issues data and assign labels to them.

### Input:
%s

%s`, question, ResponseMarker)
}

// SummarizeSystemPrompt is the system prompt for issue condensing
const SummarizeSystemPrompt = "You're a programming bot tasked to analyze GitHub issues data."

// SummarizePrompt builds the condensing instruction for an issue body
func SummarizePrompt(body string) string {
	body = truncateRunes(body, MaxSummaryInput)
	return fmt.Sprintf(`You are tasked with refining and simplifying the information presented in a GitHub issue while keeping the original author's perspective. Restate the issue the way the author would if they were being concise, focusing on clarity and brevity without losing the technical specifics.

Issue text: %s

Instructions:
- Condense the content to the primary technical details, proposals, and challenges, in the author's voice.
- Keep the author's tone and perspective; do not shift to a third-person narrative.
- Include key actionable items, technical specifics, and any proposed solutions or requests.
- Preserve direct quotes, technical terms, and specific examples, integrated without extra elaboration.
- Remove unnecessary new lines and spaces; never emit consecutive blank lines.
- Do not add wording or notation such as 'summary' or '###'.`, body)
}

// truncateRunes cuts s to at most n runes without splitting a UTF-8 sequence
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// collapseWhitespace joins all whitespace runs into single spaces
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
