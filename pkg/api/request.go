package api

import (
	"fmt"

	"github.com/webis-de/llmserve/pkg/adapter"
)

// parsedRequest is the validated, adapter-shape-aware form of an inbound
// body — the same structure for POST /, POST /validate, and every
// websocket frame (§6).
type parsedRequest struct {
	Texts  []string
	Pairs  []adapter.Pair
	Kwargs map[string]interface{}
}

// parseRequest replaces the source's runtime-reflection validator
// (§9 DESIGN NOTES): rather than deriving a schema from the adapter's
// callable signature, it checks the body against the adapter's
// declared Kind and treats every field other than "batch"/"pairs" as
// a kwarg. A malformed shape is reported as a VALIDATION error, never
// forwarded to the worker pool.
func parseRequest(kind adapter.Type, body map[string]interface{}) (*parsedRequest, []string) {
	var issues []string
	req := &parsedRequest{Kwargs: map[string]interface{}{}}

	for k, v := range body {
		switch k {
		case "batch":
			texts, ok := toStringSlice(v)
			if !ok {
				issues = append(issues, "batch must be a list of strings")
				continue
			}
			req.Texts = texts
		case "pairs":
			pairs, ok := toPairSlice(v)
			if !ok {
				issues = append(issues, "pairs must be a list of [hypothesis, reference] tuples")
				continue
			}
			req.Pairs = pairs
		default:
			req.Kwargs[k] = v
		}
	}

	switch kind {
	case adapter.TypeGeneration:
		if len(req.Texts) == 0 {
			issues = append(issues, "batch is required for a generation adapter")
		}
		if len(req.Pairs) > 0 {
			issues = append(issues, "pairs is not accepted by a generation adapter")
		}
	case adapter.TypeMetric:
		if len(req.Pairs) == 0 {
			issues = append(issues, "pairs is required for a metric adapter")
		}
		if len(req.Texts) > 0 {
			issues = append(issues, "batch is not accepted by a metric adapter")
		}
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return req, nil
}

func toStringSlice(v interface{}) ([]string, bool) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func toPairSlice(v interface{}) ([]adapter.Pair, bool) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]adapter.Pair, len(raw))
	for i, item := range raw {
		tuple, ok := item.([]interface{})
		if !ok || len(tuple) != 2 {
			return nil, false
		}
		hyp, ok1 := tuple[0].(string)
		ref, ok2 := tuple[1].(string)
		if !ok1 || !ok2 {
			return nil, false
		}
		out[i] = adapter.Pair{Hypothesis: hyp, Reference: ref}
	}
	return out, true
}

func defaultSchema(kind adapter.Type) map[string]interface{} {
	batchShape := map[string]interface{}{
		"batch": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
	}
	if kind == adapter.TypeMetric {
		batchShape = map[string]interface{}{
			"pairs": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "array",
					"items":    map[string]interface{}{"type": "string"},
					"minItems": 2,
					"maxItems": 2,
				},
			},
		}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           batchShape,
		"additionalProperties": true,
		"description":          fmt.Sprintf("kwargs beyond batch/pairs are forwarded to the %s adapter", kind),
	}
}
