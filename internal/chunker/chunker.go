package chunker

import (
	"iter"
	"unicode/utf8"
)

const (
	DefaultMaxTokens = 500
	// MinMaxTokens is the smallest window that always holds one whole
	// character: UTF-8 needs at most 4 bytes and byte-level BPE tokens
	// cover at least one byte each.
	MinMaxTokens = 4
)

// Chunker splits text into consecutive pieces of at most maxTokens tokens.
// Pieces do not overlap and concatenate back to the input.
type Chunker struct {
	tok       Tokenizer
	maxTokens int
}

func New(tok Tokenizer, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxTokens = max(maxTokens, MinMaxTokens)
	return &Chunker{tok: tok, maxTokens: maxTokens}
}

func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Chunks returns a lazy sequence of chunks. Encoding happens when iteration
// starts, so every range over the result walks the text again.
func (c *Chunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		tokens := c.tok.Encode(text)
		for start := 0; start < len(tokens); {
			end, chunk := c.window(tokens, start)
			start = end
			if chunk == "" {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// Collect drains Chunks into a slice.
func (c *Chunker) Collect(text string) []string {
	var out []string
	for chunk := range c.Chunks(text) {
		out = append(out, chunk)
	}
	return out
}

// window picks the end of the chunk starting at start. A token boundary may
// fall inside a multi-byte character, so the end moves back until the slice
// decodes to valid UTF-8. The window never grows past maxTokens; input that
// is not valid UTF-8 to begin with is cut at the limit.
func (c *Chunker) window(tokens []int, start int) (int, string) {
	limit := min(start+c.maxTokens, len(tokens))
	for end := limit; end > start; end-- {
		if s := c.tok.Decode(tokens[start:end]); utf8.ValidString(s) {
			return end, s
		}
	}
	return limit, c.tok.Decode(tokens[start:limit])
}
