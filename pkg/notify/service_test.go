package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceNilReceiverIsNoOp(t *testing.T) {
	var s *Service

	assert.NotPanics(t, func() {
		s.NotifyPoolStarted(context.Background(), 4, 8)
		s.NotifyPoolStopped(context.Background(), "test shutdown")
		s.NotifyBackpressure(context.Background(), 100, 50, 3)
	})
}

func TestNewServiceReturnsNilWhenURLEmpty(t *testing.T) {
	assert.Nil(t, NewService(""))
}

func TestNewServiceReturnsServiceWhenURLSet(t *testing.T) {
	assert.NotNil(t, NewService("https://hooks.slack.example/T000/B000/xxx"))
}

func TestServicePostsToWebhook(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	svc.NotifyPoolStarted(context.Background(), 2, 4)
	svc.NotifyPoolStopped(context.Background(), "shutdown requested")
	svc.NotifyBackpressure(context.Background(), 200, 100, 5)

	assert.Equal(t, 3, hits)
}
