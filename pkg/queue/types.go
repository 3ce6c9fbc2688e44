// Package queue implements the Request Queue and Worker Pool (§4.1,
// §4.2): bounded fan-in of validated requests, opportunistic
// shape-grouped micro-batching, and per-item result routing back to
// each request's Event Box.
package queue

import (
	"encoding/json"
	"time"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/eventbox"
)

// ShapeKey identifies the set of model parameters that must be
// identical for two Work Items to share one model call. encoding/json
// marshals map keys in sorted order, which makes this a stable,
// collision-free key for any JSON-able kwargs map.
type ShapeKey string

// ShapeKeyFor computes the ShapeKey for a set of generation kwargs.
func ShapeKeyFor(kwargs map[string]interface{}) ShapeKey {
	raw, err := json.Marshal(kwargs)
	if err != nil {
		// kwargs came from validated request parsing; a marshal failure
		// here means a caller stuffed an unencodable value in directly.
		// Fall back to a key unique to this item rather than panic, at
		// the cost of it never batching with anything else.
		return ShapeKey(err.Error())
	}
	return ShapeKey(raw)
}

// WorkItem is the immutable record produced by the request layer and
// carried through the queue to a worker (§3 Work Item).
type WorkItem struct {
	Kind        adapter.Type
	Text        string
	Pair        adapter.Pair
	Kwargs      map[string]interface{}
	Shape       ShapeKey
	InputHash   string
	Box         *eventbox.EventBox
	SubmittedAt time.Time
}

// Batch is the transient grouping a worker assembles from Work Items
// sharing one ShapeKey (§3 Batch).
type Batch struct {
	Items     []*WorkItem
	Shape     ShapeKey
	StartedAt time.Time
}
