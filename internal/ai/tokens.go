package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// tokenCounter лениво загружает кодировку tiktoken для модели. Для моделей,
// которых tiktoken не знает (например, через OpenRouter), берётся cl100k_base.
type tokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
	err   error
}

func newTokenCounter(model string) *tokenCounter {
	return &tokenCounter{model: model}
}

// Count returns the token count of texts, or ok=false if no encoding could be loaded.
func (t *tokenCounter) Count(texts ...string) (n int, ok bool) {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.EncodingForModel(t.model)
		if t.err != nil {
			t.enc, t.err = tiktoken.GetEncoding(fallbackEncoding)
		}
	})
	if t.err != nil {
		return 0, false
	}
	for _, s := range texts {
		n += len(t.enc.Encode(s, nil, nil))
	}
	return n, true
}
