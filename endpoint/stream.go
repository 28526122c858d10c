package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/medicloudhq/portal/sse"
)

// StreamDashboard godoc
// @Summary      Dashboard event stream
// @Description  Server-sent events stream that emits "refresh" whenever bookings change
// @Tags         Dashboard
// @Produce      text/event-stream
// @Success      200 {string} string "SSE stream"
// @Router       /dashboard/stream [get]
func StreamDashboard(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientChan := make(chan string)

	sse.Dashboard.Register(clientChan)
	defer sse.Dashboard.Unregister(clientChan)

	fmt.Fprintf(c.Writer, "data: %s\n\n", "connected")
	c.Writer.Flush()

	for {
		select {
		case message, ok := <-clientChan:
			if !ok {
				// Broadcast evicted this client as unresponsive.
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", message)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
