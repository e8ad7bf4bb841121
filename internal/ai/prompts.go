package ai

import (
	"context"
	"errors"
	"fmt"

	"neutral-reader/internal/model"
)

const NeutralizePrompt = `Goal: Make text neutral, factual, and balanced

Context:
You are an assistant that rewrites text to make it neutral and unbiased, ensuring it reads as fact-based and balanced. The user provides a section of text suspected to contain bias or loaded phrasing.

Task:
Rewrite the following text to remove bias, emotional language, or any subjective framing.
Maintain factual accuracy, logical structure, and readability.
Avoid implying judgments, opinions, or unsupported claims.

Guidelines:
Replace emotionally charged words with neutral terms
Remove or rephrase speculative statements (e.g., "clearly," "obviously," "everyone knows")
Preserve verifiable facts and statistics
Use formal, balanced language suitable for an encyclopedia entry

Success Criteria:
All emotionally charged or subjective words removed.
Same factual meaning as input.
Tone resembles that of Britannica/Wikipedia.
Can be compared side-by-side with original text for bias reduction.`

const FactCheckPrompt = `Goal: Check the factual claims of a text against established reference knowledge

Context:
You are an assistant that reviews news and opinion text. The user provides an article whose claims may be accurate, misleading, unsupported, or false.

Task:
Identify each concrete factual claim in the text (names, dates, numbers, events, causal statements).
For every claim, state whether it is Supported, Disputed, Unsupported, or False according to well-established reference knowledge.
Give a one or two sentence explanation for each verdict and mention what a reader should verify independently.

Guidelines:
Do not judge opinions; only mark statements presented as facts
Quote the claim briefly before the verdict
Say "Unsupported" rather than guessing when reference knowledge is insufficient
Keep the tone neutral and avoid loaded language

Output:
A plain-text list of claims with verdicts, followed by a two sentence overall assessment of the text's reliability.`

// ErrNotProcessable is returned for processing types without a prompt.
var ErrNotProcessable = errors.New("processing type has no prompt")

// Caller sends a prompt and source text to a language model.
type Caller interface {
	Call(ctx context.Context, prompt, sourceText string) (string, error)
}

// PromptFor returns the prompt template of a processing type.
func PromptFor(t model.ProcessingType) (string, error) {
	switch t {
	case model.Neutralized:
		return NeutralizePrompt, nil
	case model.FactChecked:
		return FactCheckPrompt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrNotProcessable, t)
	}
}

// Process transforms text with the prompt of type t.
func Process(ctx context.Context, c Caller, t model.ProcessingType, text string) (string, error) {
	prompt, err := PromptFor(t)
	if err != nil {
		return "", err
	}
	return c.Call(ctx, prompt, text)
}
