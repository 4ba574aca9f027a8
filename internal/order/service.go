package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/obs"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

var (
	// ErrInvalidTransition indicates a production status change outside the
	// validated workflow.
	ErrInvalidTransition = errors.New("order: invalid production transition")
	// ErrOrderClosed indicates a mutation on a delivered or canceled order.
	ErrOrderClosed = errors.New("order: workflow already closed")
	// ErrInvalidPayment indicates a non-positive payment amount.
	ErrInvalidPayment = errors.New("order: payment amount must be positive")
)

// Records is the persistence surface the service needs. *Store satisfies it.
type Records interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (RawOrder, error)
	List(ctx context.Context, status *string, limit, offset int32) ([]RawOrder, error)
	Count(ctx context.Context, status *string) (int64, error)
	UpdatePayment(ctx context.Context, id string, paid int64, status string) error
	UpdateProduction(ctx context.Context, id, status string, cancelReason *string) error
}

// Service owns order reads and workflow mutations. Every record loaded from
// storage passes through a Normalizer before callers see it. Finishings,
// when set, supplies the catalog resolver bound to the request context.
type Service struct {
	Records    Records
	Events     *events.Bus
	Finishings func(ctx context.Context) func(id string) (pricing.FinishingOption, bool)
	Logger     zerolog.Logger
}

func (s *Service) normalizer(ctx context.Context) Normalizer {
	var n Normalizer
	if s.Finishings != nil {
		n.FinishingLookup = s.Finishings(ctx)
	}
	return n
}

// Get loads and normalizes one order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	raw, err := s.Records.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	o, err := s.normalizer(ctx).Order(raw)
	if err != nil {
		return Order{}, err
	}
	s.reportWarnings(o)
	return o, nil
}

// List loads a page of normalized orders. Malformed records are skipped and
// counted rather than failing the whole page.
func (s *Service) List(ctx context.Context, status string, limit, offset int32) ([]Order, int64, error) {
	var filter *string
	if status != "" {
		filter = &status
	}
	raws, err := s.Records.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Records.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	orders := make([]Order, 0, len(raws))
	for _, raw := range raws {
		o, err := s.normalizer(ctx).Order(raw)
		if err != nil {
			obs.IncOrderSkipped()
			s.Logger.Warn().Str("order_id", raw.ID).Err(err).Msg("skipping malformed order record")
			continue
		}
		s.reportWarnings(o)
		orders = append(orders, o)
	}
	return orders, total, nil
}

// RecordPayment adds a payment to the order and re-resolves the payment
// state from the new total paid. Overpayment is accepted and reported as
// PAID with zero remaining.
func (s *Service) RecordPayment(ctx context.Context, id string, amount pricing.Money) (Order, error) {
	if amount <= 0 {
		return Order{}, ErrInvalidPayment
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.ProductionStatus == ProductionCanceled {
		return Order{}, fmt.Errorf("order %s is canceled: %w", id, ErrOrderClosed)
	}
	paid := o.PaidAmount + amount
	state := pricing.ResolvePayment(o.GrandTotal, paid)
	if err := s.Records.UpdatePayment(ctx, id, paid, string(state.Status)); err != nil {
		return Order{}, err
	}
	o.PaidAmount = paid
	o.RemainingAmount = state.Remaining
	o.PaymentStatus = state.Status
	if state.Status == pricing.PaymentPaid && s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderPaid, o.ID, map[string]any{
			"order_number": o.OrderNumber,
			"grand_total":  o.GrandTotal,
			"paid_amount":  paid,
		}); err != nil {
			s.Logger.Error().Err(err).Str("order_id", o.ID).Msg("emit order paid event")
		}
	}
	return o, nil
}

// AdvanceProduction moves the order one step forward in the workflow.
func (s *Service) AdvanceProduction(ctx context.Context, id string, next ProductionStatus) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.ProductionStatus.Terminal() {
		return Order{}, fmt.Errorf("order %s is %s: %w", id, o.ProductionStatus, ErrOrderClosed)
	}
	if !o.ProductionStatus.CanAdvanceTo(next) {
		return Order{}, fmt.Errorf("%s -> %s: %w", o.ProductionStatus, next, ErrInvalidTransition)
	}
	if err := s.Records.UpdateProduction(ctx, id, string(next), nil); err != nil {
		return Order{}, err
	}
	o.ProductionStatus = next
	return o, nil
}

// Cancel closes the order with a reason. Delivered and already canceled
// orders cannot be canceled.
func (s *Service) Cancel(ctx context.Context, id, reason string) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.ProductionStatus.Terminal() {
		return Order{}, fmt.Errorf("order %s is %s: %w", id, o.ProductionStatus, ErrOrderClosed)
	}
	if err := s.Records.UpdateProduction(ctx, id, string(ProductionCanceled), &reason); err != nil {
		return Order{}, err
	}
	o.ProductionStatus = ProductionCanceled
	o.CancelReason = reason
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCanceled, o.ID, map[string]any{
			"order_number": o.OrderNumber,
			"reason":       reason,
		}); err != nil {
			s.Logger.Error().Err(err).Str("order_id", o.ID).Msg("emit order canceled event")
		}
	}
	return o, nil
}

func (s *Service) reportWarnings(o Order) {
	for _, w := range o.Warnings {
		obs.IncNormalizationWarning(w.Field)
		s.Logger.Warn().
			Str("order_id", o.ID).
			Str("field", w.Field).
			Msg(w.Message)
	}
}
