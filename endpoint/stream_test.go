package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medicloudhq/portal/sse"
)

func TestStreamDashboard_DeliversBroadcasts(t *testing.T) {
	r, _ := setupEndpointTest(t)
	r.GET("/dashboard/stream", StreamDashboard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/dashboard/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	// Give the handler time to register with the broadcaster.
	time.Sleep(100 * time.Millisecond)
	sse.Dashboard.Broadcast("refresh")
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not return after the client disconnected")
	}

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.Contains(t, body, "data: connected\n\n")
	assert.Contains(t, body, "data: refresh\n\n")
}

func TestStreamDashboard_ReturnsWhenClientDisconnects(t *testing.T) {
	r, _ := setupEndpointTest(t)
	r.GET("/dashboard/stream", StreamDashboard)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/dashboard/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	assert.Contains(t, w.Body.String(), "data: connected\n\n")
}
