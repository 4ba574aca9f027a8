package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/obs"
)

// TypeAudit is the task type for post-checkout record audits.
const TypeAudit = "order:audit"

type auditPayload struct {
	OrderID string `json:"order_id"`
}

// NewAuditTask builds the asynq task that re-reads a freshly written order
// through the normalizer. A clean write produces zero warnings; anything
// else points at a writer bug worth catching early.
func NewAuditTask(orderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(auditPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAudit, payload), nil
}

// AuditHandler processes audit tasks on the worker.
type AuditHandler struct {
	Records    Records
	Normalizer Normalizer
	Logger     zerolog.Logger
}

// ProcessTask loads the order and reports normalization problems. Malformed
// records are logged and counted, not retried; the record will not repair
// itself.
func (h *AuditHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload auditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode audit payload: %w", err)
	}
	raw, err := h.Records.Get(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.Logger.Warn().Str("order_id", payload.OrderID).Msg("audit target vanished")
			return nil
		}
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}
	o, err := h.Normalizer.Order(raw)
	if err != nil {
		obs.IncOrderSkipped()
		h.Logger.Error().Str("order_id", payload.OrderID).Err(err).Msg("stored order fails normalization")
		return nil
	}
	for _, w := range o.Warnings {
		obs.IncNormalizationWarning(w.Field)
		h.Logger.Warn().
			Str("order_id", o.ID).
			Str("field", w.Field).
			Str("detail", w.Message).
			Msg("normalization warning on stored order")
	}
	if len(o.Warnings) == 0 {
		h.Logger.Debug().Str("order_id", o.ID).Msg("order audit clean")
	}
	return nil
}
