// Package api exposes the worker pool over HTTP and WebSocket per the
// adapter-facing external interface (§6).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/disconnect"
	"github.com/webis-de/llmserve/pkg/envelope"
	"github.com/webis-de/llmserve/pkg/queue"
	"github.com/webis-de/llmserve/pkg/store"
)

// Server is the HTTP/WebSocket front door onto a *queue.WorkerPool. One
// Server per adapter process.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	pool       *queue.WorkerPool
	adapter    adapter.Adapter
	dbClient   *store.Client // nil when the persistent cache is disabled
}

// NewServer wires an echo router to a running worker pool and installs
// every route named in §6, plus any auxiliary routes the adapter
// registers through its optional RouterHook.
func NewServer(pool *queue.WorkerPool, a adapter.Adapter, dbClient *store.Client) *Server {
	e := echo.New()
	s := &Server{echo: e, pool: pool, adapter: a, dbClient: dbClient}

	e.Use(middleware.BodyLimit(2 * 1024 * 1024))
	e.Use(securityHeaders())

	e.POST("/", s.generateHandler)
	e.POST("/validate", s.validateHandler)
	e.GET("/health", s.healthHandler)
	e.GET("/statistics", s.statisticsHandler)
	e.GET("/schema", s.schemaHandler)
	e.GET("/websocket", s.wsHandler)

	if hook, ok := a.(adapter.RouterHookProvider); ok {
		hook.RouterHook(routerAdapter{s})
	}

	return s
}

// MountHandler installs a raw http.Handler at path for every method
// (§4.10: the MCP bridge's streamable-HTTP transport needs both GET, for
// its SSE stream, and POST, for client messages, on the same path).
func (s *Server) MountHandler(path string, h http.Handler) {
	s.echo.Any(path+"*", echo.WrapHandler(h))
}

// Start starts the HTTP server on addr and blocks the calling goroutine
// until the server stops (ListenAndServe), same as the teacher's Start.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by tests to bind an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// routerAdapter satisfies adapter.Router on top of echo, letting an
// adapter install auxiliary endpoints (§6, e.g. /tokenizer/count)
// without depending on echo directly.
type routerAdapter struct{ s *Server }

func (r routerAdapter) GET(path string, handler func(ctx context.Context, body []byte) (interface{}, error)) {
	r.s.echo.GET(path, wrapAuxHandler(handler))
}

func (r routerAdapter) POST(path string, handler func(ctx context.Context, body []byte) (interface{}, error)) {
	r.s.echo.POST(path, wrapAuxHandler(handler))
}

func wrapAuxHandler(handler func(ctx context.Context, body []byte) (interface{}, error)) echo.HandlerFunc {
	return func(c *echo.Context) error {
		body, _ := io.ReadAll(c.Request().Body)
		data, err := handler(c.Request().Context(), body)
		if err != nil {
			var userErr *adapter.UserError
			var env *envelope.Envelope
			if errors.As(err, &userErr) {
				env = envelope.User(userErr.Message, nil)
			} else {
				env = envelope.Application(err.Error(), nil)
			}
			return c.JSON(env.HTTPStatus(), env)
		}
		env := envelope.Success(data, nil)
		return c.JSON(env.HTTPStatus(), env)
	}
}

func decodeBody(c *echo.Context) (map[string]interface{}, error) {
	var body map[string]interface{}
	if c.Request().ContentLength == 0 {
		return map[string]interface{}{}, nil
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		body = map[string]interface{}{}
	}
	return body, nil
}

// multiSignaler fans one liveness watcher's disconnect signal out to
// every Event Box created for a single batched POST / body (§4.4: one
// request, one watcher, shared by every element of its batch).
type multiSignaler []disconnect.Signaler

func (m multiSignaler) SetDisconnected() {
	for _, sig := range m {
		sig.SetDisconnected()
	}
}

// watchDisconnect starts the 1s liveness poll for a unary HTTP request
// (§4.4) and returns a stop function to call once the handler is done.
//
// The watcher's own stop channel is deliberately independent of
// r.Context(): net/http cancels a request's Context both when the
// handler returns and when the client disconnects, so deriving stop
// from it would make "the handler is done" indistinguishable from "the
// client is gone" and the watcher would return silently on a real
// disconnect instead of signaling it. IsRequestAlive(r), consulted only
// from the poll tick, is what actually detects the disconnect.
func watchDisconnect(r *http.Request, sigs ...disconnect.Signaler) func() {
	stop := make(chan struct{})
	go disconnect.WatchHTTP(stop, disconnect.DefaultPollInterval, func() bool { return disconnect.IsRequestAlive(r) }, multiSignaler(sigs))
	return func() { close(stop) }
}
