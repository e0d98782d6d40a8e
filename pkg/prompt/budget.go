// Package prompt enforces token budgets on the prompts sent to the model.
package prompt

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Budget counts tokens for a model and trims transcripts that would blow the
// context window. Encodings are cached per model; local models without a
// known tiktoken mapping approximate with cl100k_base.
type Budget struct {
	encoding  *tiktoken.Tiktoken
	maxTokens int
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.Mutex
)

// NewBudget builds a budget for the model with the given context limit.
func NewBudget(model string, maxTokens int) (*Budget, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	encoding, ok := encodingCache[model]
	if !ok {
		var err error
		encoding, err = tiktoken.EncodingForModel(model)
		if err != nil {
			encoding, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				return nil, fmt.Errorf("failed to get encoding: %w", err)
			}
		}
		encodingCache[model] = encoding
	}

	return &Budget{encoding: encoding, maxTokens: maxTokens}, nil
}

// Count returns the token count for text.
func (b *Budget) Count(text string) int {
	return len(b.encoding.Encode(text, nil, nil))
}

// Max returns the configured token ceiling.
func (b *Budget) Max() int {
	return b.maxTokens
}

// Fits reports whether the combined prompts stay within budget.
func (b *Budget) Fits(systemPrompt, userPrompt string) bool {
	return b.Count(systemPrompt)+b.Count(userPrompt) <= b.maxTokens
}

// TrimLines drops transcript lines from the front until the remainder fits
// within reserve tokens less than the budget. The most recent lines always
// survive; a single oversized line is kept rather than returning nothing.
func (b *Budget) TrimLines(lines []string, reserve int) []string {
	budget := b.maxTokens - reserve
	if budget <= 0 || len(lines) == 0 {
		if len(lines) == 0 {
			return lines
		}
		return lines[len(lines)-1:]
	}

	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		tokens := b.Count(lines[i]) + 1
		if total+tokens > budget && start < len(lines) {
			break
		}
		total += tokens
		start = i
	}

	return lines[start:]
}
