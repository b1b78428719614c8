package registration_api

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"net/http"
	"time"
)

type Subscriber interface {
	Subscribe(ctx context.Context, userID string) <-chan models.RegistrationEvent
}

// SSEHandler streams the caller's registration changes as Server-Sent Events
type SSEHandler struct {
	Logger    *logger.Logger
	Emitter   Subscriber
	Heartbeat time.Duration
}

// HandleProfileStream handles GET /profile/stream
func (h *SSEHandler) HandleProfileStream(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.Emitter.Subscribe(ctx, user.UserID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q}\n\n", user.UserID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to registration events for user: %s", user.UserID))

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for user: %s", user.UserID))
				return
			}

			jsonData, err := json.Marshal(evt)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize registration event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, jsonData)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from registration events for: %s", user.UserID))
			return
		}
	}
}

// Helper function to set up SSE headers
func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
