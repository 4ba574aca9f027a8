package draft

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
)

// TypeRelease is the task type for scheduled claim releases.
const TypeRelease = "draft:release"

type releasePayload struct {
	DraftID string `json:"draft_id"`
}

// NewReleaseTask builds the asynq task that reopens an expired claim.
func NewReleaseTask(draftID string) (*asynq.Task, error) {
	payload, err := json.Marshal(releasePayload{DraftID: draftID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRelease, payload), nil
}

// ReleaseHandler processes scheduled release tasks on the worker.
type ReleaseHandler struct {
	Store  *Store
	Events *events.Bus
	Logger zerolog.Logger
}

// ProcessTask reopens the draft if the claim is still held and has expired.
// A claim that was already released or renewed turns the task into a no-op.
func (h *ReleaseHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload releasePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode release payload: %w", err)
	}
	released, err := h.Store.Release(ctx, payload.DraftID, false)
	if err != nil {
		return fmt.Errorf("release draft %s: %w", payload.DraftID, err)
	}
	if !released {
		h.Logger.Debug().Str("draft_id", payload.DraftID).Msg("claim already gone, nothing to release")
		return nil
	}
	h.Logger.Info().Str("draft_id", payload.DraftID).Msg("expired draft claim released")
	if h.Events != nil {
		if _, err := h.Events.Emit(ctx, events.TopicDraftReleased, payload.DraftID, map[string]any{"expired": true}); err != nil {
			h.Logger.Error().Err(err).Str("draft_id", payload.DraftID).Msg("emit draft released event")
		}
	}
	return nil
}
