// Package adapter defines the contract an external model implementation
// must satisfy to be driven by the worker pool. The adapter itself is a
// black box; only its calling convention is specified here.
package adapter

import "context"

// Type selects the expected positional argument shape for a batch call.
type Type string

const (
	// TypeGeneration adapters accept a batch of prompt strings.
	TypeGeneration Type = "generation"
	// TypeMetric adapters accept a batch of (hypothesis, reference) pairs.
	TypeMetric Type = "metric"
)

// Pair is a hypothesis/reference pair, the batch element shape for metric adapters.
type Pair struct {
	Hypothesis string
	Reference  string
}

// Size reports token accounting for a single generation result.
type Size struct {
	Input    int `json:"input"`
	Output   int `json:"output"`
	Overflow int `json:"overflow"`
}

// GenerationResult is one element of a generation adapter's output, aligned
// by index with the input batch.
type GenerationResult struct {
	Generated      string  `json:"generated"`
	Size           Size    `json:"size"`
	StoppingReason *string `json:"stopping_reason"`
}

// MetricResult is one element of a metric adapter's output.
type MetricResult struct {
	Score float64                `json:"score"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// UserError signals that the caller supplied an unsupported combination of
// arguments. It is translated to the USER error kind (HTTP 400), never APPLICATION.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// NewUserError constructs a UserError.
func NewUserError(msg string) error { return &UserError{Message: msg} }

// Adapter is the external model implementation. Call is invoked by worker
// loops with a batch of items sharing an identical ShapeKey (the kwargs
// map). It must return a slice aligned by index with batch, or an error.
//
// Implementations may panic; the worker pool recovers and reports the
// panic as an APPLICATION error for the whole batch (§7 propagation
// policy), so adapters are not required to be panic-safe themselves.
type Adapter interface {
	// Kind reports whether this adapter expects string prompts or pairs.
	Kind() Type
	// Call invokes the model on batch with the given keyword arguments.
	// Returns one result per input, aligned by index.
	Call(ctx context.Context, batch []string, pairs []Pair, kwargs map[string]interface{}) ([]interface{}, error)
}

// MetaProvider is an optional Adapter extension. When implemented, its
// return value is merged into every response's meta field.
type MetaProvider interface {
	GetMeta() map[string]interface{}
}

// RouterHookProvider is an optional Adapter extension letting the adapter
// install auxiliary HTTP endpoints (e.g. a tokenizer/count route) onto the
// server's router.
type RouterHookProvider interface {
	RouterHook(router Router)
}

// Router is the subset of the HTTP router surface exposed to adapters for
// installing auxiliary endpoints. Implemented inside package api on top
// of the server's echo router.
type Router interface {
	GET(path string, handler func(ctx context.Context, body []byte) (interface{}, error))
	POST(path string, handler func(ctx context.Context, body []byte) (interface{}, error))
}

// PreferredSettings is an optional Adapter extension supplying startup
// defaults for threads/batch_size/cache_size, overridden by environment
// variables per §6.
type PreferredSettings interface {
	PreferredSettings() Settings
}

// Settings holds the three tunables an adapter may default and the
// environment may override.
type Settings struct {
	Threads   int
	BatchSize int
	CacheSize int
}

// SchemaProvider is an optional Adapter extension supplying the JSON
// schema of its accepted kwargs, compiled once at startup and served
// verbatim by GET /schema. Replaces runtime reflection over a callable
// signature: the adapter declares its shape directly.
type SchemaProvider interface {
	Schema() map[string]interface{}
}
