package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultContextTokens is assumed when the model context window is not
	// configured.
	DefaultContextTokens = 8192
	// DefaultReservedTokens is the slice of the context window kept free for
	// the model response.
	DefaultReservedTokens = 2000
	// DefaultCharsPerToken approximates mixed Latin prose.
	DefaultCharsPerToken = 3.5
	// DefaultCJKCharsPerToken approximates CJK text, which tokenizes far
	// denser than Latin scripts.
	DefaultCJKCharsPerToken = 1.5
)

// Budget converts a model context window into a character allowance for
// prompts. Token estimation uses a chars-per-token heuristic keyed on the
// dominant script, so CJK documents get a proportionally smaller character
// budget.
type Budget struct {
	ContextTokens    int
	ReservedTokens   int
	CharsPerToken    float64
	CJKCharsPerToken float64
}

func (b Budget) withDefaults() Budget {
	if b.ContextTokens <= 0 {
		b.ContextTokens = DefaultContextTokens
	}
	if b.ReservedTokens <= 0 {
		b.ReservedTokens = DefaultReservedTokens
	}
	if b.CharsPerToken <= 0 {
		b.CharsPerToken = DefaultCharsPerToken
	}
	if b.CJKCharsPerToken <= 0 {
		b.CJKCharsPerToken = DefaultCJKCharsPerToken
	}
	return b
}

// MaxPromptChars returns the character allowance for a prompt in the given
// language. At least a minimal window survives misconfigured budgets where
// the reservation swallows the whole context.
func (b Budget) MaxPromptChars(lang Language) int {
	b = b.withDefaults()

	inputTokens := b.ContextTokens - b.ReservedTokens
	if inputTokens < 256 {
		inputTokens = 256
	}

	charsPerToken := b.CharsPerToken
	if lang == LanguageCJK {
		charsPerToken = b.CJKCharsPerToken
	}

	return int(float64(inputTokens) * charsPerToken)
}

// Fit truncates prompt to the character budget at a rune boundary. The
// second return reports whether anything was cut.
func (b Budget) Fit(prompt string) (string, bool) {
	max := b.MaxPromptChars(DetectLanguage(prompt))

	count := 0
	for i := range prompt {
		if count == max {
			return prompt[:i], true
		}
		count++
	}
	return prompt, false
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// CountTokens returns the exact o200k_base token count for text. The encoder
// is loaded once and reused.
func CountTokens(text string) (int, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("o200k_base")
	})
	if encErr != nil {
		return 0, encErr
	}
	return len(enc.Encode(text, nil, nil)), nil
}
