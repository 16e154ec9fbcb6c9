package chunker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to model tokens and back. Decode of a token slice
// must return exactly the bytes those tokens were encoded from.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

var (
	encodingCache = map[string]*tiktoken.Tiktoken{}
	encodingMu    sync.Mutex
)

// NewTiktoken loads a BPE encoding by name, cl100k_base when empty.
// Loaded encodings are shared across callers.
func NewTiktoken(encoding string) (Tokenizer, error) {
	name := strings.TrimSpace(encoding)
	if name == "" {
		name = DefaultEncoding
	}
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if enc, ok := encodingCache[name]; ok {
		return &tiktokenTokenizer{enc: enc}, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	encodingCache[name] = enc
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
