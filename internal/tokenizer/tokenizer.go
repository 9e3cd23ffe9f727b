package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding names the GPT-2 vocabulary.
const DefaultEncoding = "gpt2"

// Counter returns the token count for text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(text string) int

// Count implements Counter.
func (f CounterFunc) Count(text string) int { return f(text) }

// encodingAliases maps model-family names onto tiktoken encodings.
var encodingAliases = map[string]string{
	"gpt2":      "r50k_base",
	"gpt-2":     "r50k_base",
	"r50k":      "r50k_base",
	"p50k":      "p50k_base",
	"cl100k":    "cl100k_base",
	"o200k":     "o200k_base",
	"gpt-4o":    "o200k_base",
	"gpt-4.1":   "o200k_base",
	"gpt-3.5":   "cl100k_base",
	"gpt-4":     "cl100k_base",
	"r50k_base": "r50k_base",
}

var loaderOnce sync.Once

// BPE wraps a tiktoken encoder.
type BPE struct {
	name string
	enc  *tiktoken.Tiktoken
}

// New builds a counter for the named encoding using the embedded offline
// vocabularies; no network access is required.
func New(encoding string) (*BPE, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	name := resolveEncoding(encoding)
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", name, err)
	}
	return &BPE{name: name, enc: enc}, nil
}

func resolveEncoding(encoding string) string {
	key := strings.ToLower(strings.TrimSpace(encoding))
	if key == "" {
		key = DefaultEncoding
	}
	if alias, ok := encodingAliases[key]; ok {
		return alias
	}
	return key
}

// Name reports the resolved tiktoken encoding name.
func (b *BPE) Name() string { return b.name }

// Count implements Counter. Special-token text is encoded as ordinary text.
func (b *BPE) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.enc.EncodeOrdinary(text))
}

// CountSequence counts tokens over texts joined by newlines.
func CountSequence(counter Counter, texts []string) int {
	if counter == nil || len(texts) == 0 {
		return 0
	}
	return counter.Count(strings.Join(texts, "\n"))
}
