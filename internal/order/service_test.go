package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

type memRecords struct {
	orders map[string]RawOrder

	paidAmount    map[string]int64
	paymentStatus map[string]string
	production    map[string]string
	cancelReason  map[string]string
}

func newMemRecords(raws ...RawOrder) *memRecords {
	m := &memRecords{
		orders:        map[string]RawOrder{},
		paidAmount:    map[string]int64{},
		paymentStatus: map[string]string{},
		production:    map[string]string{},
		cancelReason:  map[string]string{},
	}
	for _, raw := range raws {
		m.orders[raw.ID] = raw
	}
	return m
}

func (m *memRecords) Create(_ context.Context, o Order) (Order, error) {
	m.orders[o.ID] = RawFromOrder(o)
	return o, nil
}

func (m *memRecords) Get(_ context.Context, id string) (RawOrder, error) {
	raw, ok := m.orders[id]
	if !ok {
		return RawOrder{}, ErrNotFound
	}
	if paid, ok := m.paidAmount[id]; ok {
		raw.PaidAmount = moneyP(paid)
	}
	if status, ok := m.paymentStatus[id]; ok {
		raw.PaymentStatus = strP(status)
	}
	if status, ok := m.production[id]; ok {
		raw.ProductionStatusSnake = strP(status)
	}
	return raw, nil
}

func (m *memRecords) List(_ context.Context, _ *string, _, _ int32) ([]RawOrder, error) {
	out := make([]RawOrder, 0, len(m.orders))
	for _, raw := range m.orders {
		out = append(out, raw)
	}
	return out, nil
}

func (m *memRecords) Count(_ context.Context, _ *string) (int64, error) {
	return int64(len(m.orders)), nil
}

func (m *memRecords) UpdatePayment(_ context.Context, id string, paid int64, status string) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	m.paidAmount[id] = paid
	m.paymentStatus[id] = status
	return nil
}

func (m *memRecords) UpdateProduction(_ context.Context, id, status string, reason *string) error {
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	m.production[id] = status
	if reason != nil {
		m.cancelReason[id] = *reason
	}
	return nil
}

type memEventStore struct {
	events []events.Event
}

func (m *memEventStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	ev := events.Event{
		ID:          int64(len(m.events) + 1),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

func rawFixture(id string, grand, paid int64) RawOrder {
	return RawOrder{
		ID:                    id,
		OrderNumber:           strP("ORD-20260901-0001"),
		ProductionStatusSnake: strP(string(ProductionPending)),
		PaymentStatus:         strP(string(pricing.PaymentUnpaid)),
		Subtotal:              moneyP(grand),
		GrandTotal:            moneyP(grand),
		PaidAmount:            moneyP(paid),
	}
}

func newService(records Records, store events.Store) *Service {
	svc := &Service{
		Records: records,
		Logger:  zerolog.Nop(),
	}
	if store != nil {
		svc.Events = &events.Bus{Store: store}
	}
	return svc
}

func TestGetBindsLookupToCallerContext(t *testing.T) {
	type ctxKey struct{}
	records := newMemRecords(rawFixture("o1", 50_000, 0))

	var seen context.Context
	svc := newService(records, nil)
	svc.Finishings = func(ctx context.Context) func(id string) (pricing.FinishingOption, bool) {
		seen = ctx
		return func(string) (pricing.FinishingOption, bool) {
			return pricing.FinishingOption{}, false
		}
	}

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	if _, err := svc.Get(ctx, "o1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if seen == nil || seen.Value(ctxKey{}) != "req-1" {
		t.Fatal("finishing lookup must be built from the caller's context")
	}
}

func TestRecordPaymentPartial(t *testing.T) {
	records := newMemRecords(rawFixture("o1", 600000, 0))
	svc := newService(records, nil)

	o, err := svc.RecordPayment(context.Background(), "o1", 200000)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if o.PaidAmount != 200000 {
		t.Fatalf("paid = %d, want 200000", o.PaidAmount)
	}
	if o.RemainingAmount != 400000 {
		t.Fatalf("remaining = %d, want 400000", o.RemainingAmount)
	}
	if o.PaymentStatus != pricing.PaymentPartial {
		t.Fatalf("status = %s, want PARTIAL", o.PaymentStatus)
	}
}

func TestRecordPaymentSettlesAndEmits(t *testing.T) {
	records := newMemRecords(rawFixture("o1", 600000, 500000))
	eventStore := &memEventStore{}
	svc := newService(records, eventStore)

	o, err := svc.RecordPayment(context.Background(), "o1", 150000)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if o.PaymentStatus != pricing.PaymentPaid {
		t.Fatalf("status = %s, want PAID", o.PaymentStatus)
	}
	if o.RemainingAmount != 0 {
		t.Fatalf("remaining = %d, want 0 for overpayment", o.RemainingAmount)
	}
	if len(eventStore.events) != 1 || eventStore.events[0].Topic != events.TopicOrderPaid {
		t.Fatalf("events = %+v, want one order.paid", eventStore.events)
	}
}

func TestRecordPaymentRejectsNonPositive(t *testing.T) {
	svc := newService(newMemRecords(rawFixture("o1", 100, 0)), nil)
	if _, err := svc.RecordPayment(context.Background(), "o1", 0); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("err = %v, want ErrInvalidPayment", err)
	}
}

func TestRecordPaymentOnCanceledOrder(t *testing.T) {
	raw := rawFixture("o1", 100, 0)
	raw.ProductionStatusSnake = strP(string(ProductionCanceled))
	svc := newService(newMemRecords(raw), nil)
	if _, err := svc.RecordPayment(context.Background(), "o1", 100); !errors.Is(err, ErrOrderClosed) {
		t.Fatalf("err = %v, want ErrOrderClosed", err)
	}
}

func TestAdvanceProductionFollowsWorkflow(t *testing.T) {
	records := newMemRecords(rawFixture("o1", 100, 0))
	svc := newService(records, nil)

	o, err := svc.AdvanceProduction(context.Background(), "o1", ProductionInProgress)
	if err != nil {
		t.Fatalf("AdvanceProduction: %v", err)
	}
	if o.ProductionStatus != ProductionInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", o.ProductionStatus)
	}

	if _, err := svc.AdvanceProduction(context.Background(), "o1", ProductionDelivered); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition for IN_PROGRESS -> DELIVERED", err)
	}
}

func TestCancelRejectsTerminalOrders(t *testing.T) {
	records := newMemRecords(rawFixture("o1", 100, 0))
	eventStore := &memEventStore{}
	svc := newService(records, eventStore)

	o, err := svc.Cancel(context.Background(), "o1", "customer walked away")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.ProductionStatus != ProductionCanceled || o.CancelReason == "" {
		t.Fatalf("order = %+v, want CANCELED with reason", o)
	}
	if len(eventStore.events) != 1 || eventStore.events[0].Topic != events.TopicOrderCanceled {
		t.Fatalf("events = %+v, want one order.canceled", eventStore.events)
	}

	if _, err := svc.Cancel(context.Background(), "o1", "again"); !errors.Is(err, ErrOrderClosed) {
		t.Fatalf("err = %v, want ErrOrderClosed on second cancel", err)
	}
}

func TestListSkipsMalformedRecords(t *testing.T) {
	good := rawFixture("o1", 100, 0)
	broken := RawOrder{ID: "o2"} // no order number
	svc := newService(newMemRecords(good, broken), nil)

	orders, total, err := svc.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("len(orders) = %d, want 1 with the broken record skipped", len(orders))
	}
	if total != 2 {
		t.Fatalf("total = %d, want raw count 2", total)
	}
}
