// Package dummyadapter is a reference adapter.Adapter implementation: a
// whitespace-tokenizing echo model. It exists to exercise the full
// request/queue/stop-string/token-count stack end to end without a real
// model dependency, the way a "dummy" backend lets an inference
// framework's own test suite and examples run without GPUs.
package dummyadapter

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/stopstring"
	"github.com/webis-de/llmserve/pkg/tokencount"
)

const defaultMaxNewTokens = 16

// Adapter echoes its input batch back a word at a time, feeding every
// emitted token through a Stop-String Detector and reporting token
// counts via a Token Counter, so both packages run under something that
// behaves like a real streaming generation loop.
type Adapter struct {
	inclusive stopstring.Rules
	exclusive stopstring.Rules

	mu    sync.Mutex
	words []string
	ids   map[string]int
}

// New constructs a dummy adapter with the given stop-string rule sets
// (normally loaded from the optional YAML settings file).
func New(inclusive, exclusive stopstring.Rules) *Adapter {
	return &Adapter{
		inclusive: inclusive,
		exclusive: exclusive,
		ids:       make(map[string]int),
	}
}

// Kind reports that this adapter drives generation-shaped requests.
func (a *Adapter) Kind() adapter.Type { return adapter.TypeGeneration }

// Call runs the echo model on each prompt in batch independently; real
// adapters would instead run one batched forward pass, but the worker
// pool's calling convention doesn't care which.
func (a *Adapter) Call(ctx context.Context, batch []string, pairs []adapter.Pair, kwargs map[string]interface{}) ([]interface{}, error) {
	maxNew, err := maxNewTokens(kwargs)
	if err != nil {
		return nil, err
	}

	results := make([]interface{}, len(batch))
	for i, prompt := range batch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		results[i] = a.generate(prompt, maxNew)
	}
	return results, nil
}

func (a *Adapter) generate(prompt string, maxNew int) adapter.GenerationResult {
	promptTokens := a.tokenize(prompt)
	detector := stopstring.New(a.decode, prompt, a.inclusive, a.exclusive)

	var emitted []int
	for _, tok := range promptTokens {
		if len(emitted) >= maxNew {
			break
		}
		emitted = append(emitted, tok)
		if detector.Step(tok) {
			break
		}
	}

	// IsEmpty means no stop-string rules matched this prompt, so Step
	// never ran its decode branch and Result would report nothing
	// decoded; read the generated text straight off the tokenizer.
	var generated string
	if detector.IsEmpty() {
		generated = a.decode(emitted)
	} else {
		generated = detector.Result()
	}

	overflow := 0
	if len(promptTokens) > len(emitted) && !detector.Stopped() {
		overflow = len(promptTokens) - len(emitted)
	}

	ends := tokencount.EndsFromTokens(a.decode, emitted)
	_, totals, _ := tokencount.Count(ends, len(emitted), generated, false)

	var stoppingReason *string
	if trig := detector.Trigger(); trig != nil {
		reason := trig.String
		stoppingReason = &reason
	}

	return adapter.GenerationResult{
		Generated: generated,
		Size: adapter.Size{
			Input:    len(promptTokens),
			Output:   totals.NonSpecial,
			Overflow: overflow,
		},
		StoppingReason: stoppingReason,
	}
}

func maxNewTokens(kwargs map[string]interface{}) (int, error) {
	raw, ok := kwargs["max_new_tokens"]
	if !ok {
		return defaultMaxNewTokens, nil
	}
	n, ok := raw.(float64) // JSON numbers decode to float64
	if !ok || n != float64(int(n)) || n < 0 {
		return 0, adapter.NewUserError("max_new_tokens must be a non-negative integer")
	}
	return int(n), nil
}

// tokenize splits text on whitespace, assigning each distinct word a
// stable integer id (a dummy stand-in for a real subword vocabulary).
func (a *Adapter) tokenize(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, w := range words {
		id, ok := a.ids[w]
		if !ok {
			id = len(a.words)
			a.words = append(a.words, w)
			a.ids[w] = id
		}
		tokens[i] = id
	}
	return tokens
}

// decode joins a token sequence back into text, space-separated, the
// inverse of tokenize.
func (a *Adapter) decode(tokens []int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	words := make([]string, len(tokens))
	for i, id := range tokens {
		if id < 0 || id >= len(a.words) {
			words[i] = "<unk" + strconv.Itoa(id) + ">"
			continue
		}
		words[i] = a.words[id]
	}
	return strings.Join(words, " ")
}

// GetMeta reports the model name shown in every response's meta field.
func (a *Adapter) GetMeta() map[string]interface{} {
	return map[string]interface{}{"model": "dummy"}
}

// PreferredSettings gives the dummy adapter's startup defaults, yielded
// to any explicit THREADS/BATCH_SIZE/CACHE_SIZE environment override.
func (a *Adapter) PreferredSettings() adapter.Settings {
	return adapter.Settings{Threads: 1, BatchSize: 8, CacheSize: 256}
}

// Schema describes the dummy adapter's one accepted kwarg, served
// verbatim by GET /schema.
func (a *Adapter) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"batch": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"max_new_tokens": map[string]interface{}{
				"type":    "integer",
				"minimum": 0,
				"default": defaultMaxNewTokens,
			},
		},
		"required": []string{"batch"},
	}
}
