package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mgm-billing/internal/events"
)

const keepAliveInterval = 30 * time.Second

type EventsHTTPHandler struct {
	subscriber events.Subscriber
}

func NewEventsHTTPHandler(subscriber events.Subscriber) *EventsHTTPHandler {
	return &EventsHTTPHandler{
		subscriber: subscriber,
	}
}

// Stream relays bus events to the client as server-sent events.
// ?types=bill.created,exchange.created narrows the feed.
func (h *EventsHTTPHandler) Stream(c *gin.Context) {
	var types []string
	if raw := strings.TrimSpace(c.Query("types")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	feed, err := h.subscriber.Subscribe(c.Request.Context(), types...)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("Event stream unavailable"))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
