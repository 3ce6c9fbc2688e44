package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/disconnect"
	"github.com/webis-de/llmserve/pkg/envelope"
	"github.com/webis-de/llmserve/pkg/eventbox"
	"github.com/webis-de/llmserve/pkg/queue"
)

func (s *Server) meta() map[string]interface{} {
	if mp, ok := s.adapter.(adapter.MetaProvider); ok {
		return mp.GetMeta()
	}
	return nil
}

// generateHandler implements POST / (§6): parse against the adapter's
// shape, submit one Work Item per batch element to the pool — the same
// fan-in model scenario 2 (batching) exercises from the other
// direction — wait on every Event Box, and fold the per-element results
// into a single envelope whose data is an array aligned with the
// request's batch/pairs (§8 scenario 1).
func (s *Server) generateHandler(c *echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		env := envelope.Validation([]envelope.ValidationIssue{{Message: "body is not valid JSON"}}, s.meta())
		return c.JSON(env.HTTPStatus(), env)
	}

	req, issues := parseRequest(s.adapter.Kind(), body)
	if issues != nil {
		env := envelope.Validation(toValidationIssues(issues), s.meta())
		return c.JSON(env.HTTPStatus(), env)
	}

	n := len(req.Texts)
	if s.adapter.Kind() == adapter.TypeMetric {
		n = len(req.Pairs)
	}

	boxes := make([]*eventbox.EventBox, n)
	sigs := make([]disconnect.Signaler, n)
	for i := range boxes {
		boxes[i] = eventbox.New()
		sigs[i] = boxes[i]
	}

	stop := watchDisconnect(c.Request(), sigs...)
	defer stop()

	for i := 0; i < n; i++ {
		item := &queue.WorkItem{Kind: s.adapter.Kind(), Kwargs: req.Kwargs, Box: boxes[i]}
		if s.adapter.Kind() == adapter.TypeMetric {
			item.Pair = req.Pairs[i]
		} else {
			item.Text = req.Texts[i]
		}
		if err := s.pool.Enqueue(c.Request().Context(), item); err != nil {
			env := envelope.Application(err.Error(), s.meta())
			return c.JSON(env.HTTPStatus(), env)
		}
	}

	env := collectBatchEnvelope(boxes, s.meta())
	return c.JSON(env.HTTPStatus(), env)
}

// collectBatchEnvelope waits for every element of a submitted batch to
// reach a terminal state and folds the results into one response. Boxes
// are waited on with a background context, not the request's: an Event
// Box only ever unblocks via its own completion or disconnect signal
// (the latter driven by the liveness watcher, never by Context
// cancellation — see watchDisconnect), so tying Wait to the request
// Context would let it return the moment the connection looks gone,
// before the watcher has actually confirmed and marked the box
// disconnected.
//
// On full success the envelope's data is every element's result in
// submission order. Otherwise the first non-success element's envelope
// is returned as-is: every element in one request shares the same
// kwargs and therefore, per the worker's whole-batch failure semantics
// (§7), the same outcome in practice.
func collectBatchEnvelope(boxes []*eventbox.EventBox, meta map[string]interface{}) *envelope.Envelope {
	envs := make([]*envelope.Envelope, len(boxes))
	for i, box := range boxes {
		box.Wait(context.Background())
		envs[i] = box.MakeResponse(nil)
	}

	for _, env := range envs {
		if !env.Success {
			env.Meta = meta
			return env
		}
	}

	data := make([]interface{}, len(envs))
	for i, env := range envs {
		data[i] = env.Data
	}
	return envelope.Success(data, meta)
}

// validateHandler implements POST /validate: the same shape check as
// generateHandler, without ever touching the worker pool.
func (s *Server) validateHandler(c *echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		env := envelope.Validation([]envelope.ValidationIssue{{Message: "body is not valid JSON"}}, s.meta())
		return c.JSON(env.HTTPStatus(), env)
	}

	if _, issues := parseRequest(s.adapter.Kind(), body); issues != nil {
		env := envelope.Validation(toValidationIssues(issues), s.meta())
		return c.JSON(env.HTTPStatus(), env)
	}

	env := envelope.Success(nil, s.meta())
	return c.JSON(env.HTTPStatus(), env)
}

// statisticsHandler implements GET /statistics.
func (s *Server) statisticsHandler(c *echo.Context) error {
	stats := s.pool.Statistics()
	workers := make([]WorkerStat, len(stats.Workers))
	for i, w := range stats.Workers {
		workers[i] = WorkerStat{
			ID:               w.ID,
			Status:           string(w.Status),
			BatchesProcessed: w.BatchesProcessed,
			ItemsProcessed:   w.ItemsProcessed,
		}
	}
	env := envelope.Success(StatisticsResponse{
		Queued:    stats.Queued,
		Completed: stats.Completed,
		Workers:   workers,
	}, s.meta())
	return c.JSON(http.StatusOK, env)
}

// schemaHandler implements GET /schema: the adapter's declared schema
// when it implements SchemaProvider, else a generic shape derived from
// its Kind (§9 DESIGN NOTES: no runtime reflection over a callable).
func (s *Server) schemaHandler(c *echo.Context) error {
	var schema map[string]interface{}
	if sp, ok := s.adapter.(adapter.SchemaProvider); ok {
		schema = sp.Schema()
	} else {
		schema = defaultSchema(s.adapter.Kind())
	}
	env := envelope.Success(schema, s.meta())
	return c.JSON(http.StatusOK, env)
}

func toValidationIssues(messages []string) []envelope.ValidationIssue {
	out := make([]envelope.ValidationIssue, len(messages))
	for i, m := range messages {
		out[i] = envelope.ValidationIssue{Message: m}
	}
	return out
}
