package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/soarflow/pkg/broadcast"
	"github.com/dukex/soarflow/pkg/models"
	"github.com/gofiber/fiber/v3"
)

// StreamLogs relays the live events of a run as server-sent events. The
// subscription is attached before the run is looked up, so a run finishing
// concurrently still yields its completion event. The stream ends with the
// completion event, read back from the stored run if the live one was
// dropped, or when the client goes away. Nothing that happened before the
// request is replayed.
func (h *APIHandlers) StreamLogs(c fiber.Ctx) error {
	runID := param(c, "id")

	sub := h.broadcaster.Attach(runID)

	run, err := h.tracker.GetRun(c.Context(), runID)
	if err != nil {
		h.broadcaster.Detach(sub)

		return handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	var finished *models.RunEvent

	if run.Status.IsTerminal() {
		event := completeEvent(run)
		finished = &event
	}

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.broadcaster.Detach(sub)

		if finished != nil {
			_ = writeEvent(w, *finished)

			return
		}

		h.relay(w, runID, sub)
	})
}

// relay forwards events until the run completes. A subscriber that falls
// behind loses events, the completion event included, so every keep-alive
// tick also checks the stored run and ends the stream once it is terminal.
func (h *APIHandlers) relay(w *bufio.Writer, runID string, sub *broadcast.Subscription) {
	interval := h.KeepAlive
	if interval <= 0 {
		interval = 15 * time.Second
	}

	keepAlive := time.NewTicker(interval)
	defer keepAlive.Stop()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}

			if done := h.forward(w, event); done {
				return
			}
		case <-keepAlive.C:
			if h.finishStored(w, runID, sub) {
				return
			}

			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return
			}

			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

// forward writes one event and reports whether the stream is over.
func (h *APIHandlers) forward(w *bufio.Writer, event models.RunEvent) bool {
	if err := writeEvent(w, event); err != nil {
		h.logger.Debug("Log stream client went away", "error", err)

		return true
	}

	return event.Event == models.RunEventComplete
}

// finishStored ends the stream when the stored run is terminal. Events still
// queued are written first; the stored completion is sent only when the live
// one was lost.
func (h *APIHandlers) finishStored(w *bufio.Writer, runID string, sub *broadcast.Subscription) bool {
	run, err := h.tracker.GetRun(context.Background(), runID)
	if err != nil || !run.Status.IsTerminal() {
		return false
	}

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return true
			}

			if h.forward(w, event) {
				return true
			}
		default:
			h.logger.Debug("Log stream lost the live completion", "run_id", runID, "dropped", sub.Dropped())

			_ = writeEvent(w, completeEvent(run))

			return true
		}
	}
}

func completeEvent(run *models.RunRecord) models.RunEvent {
	finishedAt := run.StartedAt
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}

	return models.CompleteEvent(run.ID, run.Status, finishedAt)
}

func writeEvent(w *bufio.Writer, event models.RunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, payload); err != nil {
		return err
	}

	return w.Flush()
}
