package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/disconnect"
	"github.com/webis-de/llmserve/pkg/envelope"
	"github.com/webis-de/llmserve/pkg/eventbox"
	"github.com/webis-de/llmserve/pkg/orderedpipe"
	"github.com/webis-de/llmserve/pkg/queue"
)

// wsWriteTimeout bounds a single outbound frame write, mirroring the
// teacher's ConnectionManager write-timeout pattern.
const wsWriteTimeout = 10 * time.Second

// wsHandler implements WS /websocket (§6): a full-duplex connection
// where inbound frames have the same shape as POST / bodies and
// outbound frames are response envelopes delivered in strict submission
// order via an Ordered Pipe (§4.5).
func (s *Server) wsHandler(c *echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	pipe := orderedpipe.New()
	watcher := disconnect.NewConnectionWatcher()
	log := slog.With("connection_id", connID)

	go s.drainPipe(ctx, conn, pipe, log)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("websocket read loop exiting", "error", err)
			break
		}

		index := pipe.NextIndex()
		s.dispatchFrame(ctx, data, index, pipe, watcher, log)
	}

	watcher.Disconnect()
	pipe.Close()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	return nil
}

// dispatchFrame parses one inbound frame and submits it to the worker
// pool, wiring its Event Box's result into the pipe slot reserved for
// this frame's submission order.
func (s *Server) dispatchFrame(ctx context.Context, data []byte, index int, pipe *orderedpipe.Pipe, watcher *disconnect.ConnectionWatcher, log *slog.Logger) {
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		env := envelope.Validation([]envelope.ValidationIssue{{Message: "frame is not valid JSON"}}, s.meta())
		pipe.Add(index, env)
		return
	}

	req, issues := parseRequest(s.adapter.Kind(), body)
	if issues != nil {
		env := envelope.Validation(toValidationIssues(issues), s.meta())
		pipe.Add(index, env)
		return
	}

	box := eventbox.New()
	watcher.Track(box)

	item := &queue.WorkItem{Kind: s.adapter.Kind(), Kwargs: req.Kwargs, Box: box}
	switch s.adapter.Kind() {
	case adapter.TypeMetric:
		if len(req.Pairs) != 1 {
			pipe.Add(index, envelope.Validation([]envelope.ValidationIssue{{Message: "exactly one pair per frame"}}, s.meta()))
			return
		}
		item.Pair = req.Pairs[0]
	default:
		if len(req.Texts) != 1 {
			pipe.Add(index, envelope.Validation([]envelope.ValidationIssue{{Message: "exactly one text per frame"}}, s.meta()))
			return
		}
		item.Text = req.Texts[0]
	}

	if err := s.pool.Enqueue(ctx, item); err != nil {
		pipe.Add(index, envelope.Application(err.Error(), s.meta()))
		return
	}

	go func() {
		box.Wait(ctx)
		pipe.Add(index, box.MakeResponse(s.meta()))
		log.Debug("frame completed", "index", index)
	}()
}

// drainPipe reads completed replies off the Ordered Pipe in submission
// order and writes them to the connection, exactly as fast as each
// slot becomes available.
func (s *Server) drainPipe(ctx context.Context, conn *websocket.Conn, pipe *orderedpipe.Pipe, log *slog.Logger) {
	for payload := range pipe.Drain(ctx) {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Warn("failed to marshal websocket reply", "error", err)
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			log.Debug("failed to write websocket reply", "error", err)
			return
		}
	}
}
