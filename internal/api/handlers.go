package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type handlers struct {
	provider    SnapshotProvider
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// handleStatus serves a single point-in-time JSON snapshot of cached
// market state. Grounded on the teacher's /api/snapshot handler.
func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("encode status snapshot failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// handleStream serves a Server-Sent-Events feed of order state
// transitions, replacing the teacher's websocket hub with the simpler
// one-directional protocol this read-only surface needs.
func (h *handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("encode stream event failed", "error", err)
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
