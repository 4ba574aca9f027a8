package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/checkout"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
)

type memStore struct {
	drafts map[string]*Draft
	seq    int
}

func newMemStore() *memStore {
	return &memStore{drafts: map[string]*Draft{}}
}

func (m *memStore) Create(_ context.Context, payload json.RawMessage, label, createdBy string) (Draft, error) {
	m.seq++
	d := &Draft{
		ID:        fmt.Sprintf("d%d", m.seq),
		Status:    StatusPending,
		Payload:   payload,
		Label:     label,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	m.drafts[d.ID] = d
	return *d, nil
}

func (m *memStore) Get(_ context.Context, id string) (Draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return Draft{}, ErrNotFound
	}
	return *d, nil
}

func (m *memStore) List(_ context.Context) ([]Draft, error) {
	var out []Draft
	for _, d := range m.drafts {
		if d.Status == StatusPending || d.Status == StatusActive {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) Claim(_ context.Context, id, cashier string, ttl time.Duration) (Draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return Draft{}, ErrNotFound
	}
	if d.Status == StatusActive {
		return Draft{}, fmt.Errorf("held by %s: %w", d.ClaimedBy, ErrAlreadyClaimed)
	}
	if d.Status != StatusPending {
		return Draft{}, ErrClosed
	}
	now := time.Now()
	expires := now.Add(ttl)
	d.Status = StatusActive
	d.ClaimedBy = cashier
	d.ClaimedAt = &now
	d.ExpiresAt = &expires
	return *d, nil
}

func (m *memStore) Release(_ context.Context, id string, force bool) (bool, error) {
	d, ok := m.drafts[id]
	if !ok || d.Status != StatusActive {
		return false, nil
	}
	if !force && d.ExpiresAt != nil && d.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	d.Status = StatusPending
	d.ClaimedBy = ""
	d.ClaimedAt = nil
	d.ExpiresAt = nil
	return true, nil
}

func (m *memStore) Close(_ context.Context, id string, status Status) error {
	d, ok := m.drafts[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != StatusPending && d.Status != StatusActive {
		return ErrClosed
	}
	d.Status = status
	return nil
}

type memScheduler struct {
	tasks []*asynq.Task
}

func (m *memScheduler) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type stubCheckout struct {
	calls int
	fail  error
}

func (s *stubCheckout) Checkout(_ context.Context, _ checkout.Request, cashier string) (order.Order, error) {
	s.calls++
	if s.fail != nil {
		return order.Order{}, s.fail
	}
	return order.Order{ID: "o1", OrderNumber: "ORD-20260901-0001", CreatedBy: cashier}, nil
}

func newDraftService() (*Service, *memStore, *memScheduler, *stubCheckout) {
	store := newMemStore()
	sched := &memScheduler{}
	co := &stubCheckout{}
	svc := &Service{
		Records:  store,
		Tasks:    sched,
		Checkout: co,
		Logger:   zerolog.Nop(),
	}
	return svc, store, sched, co
}

func saveDraft(t *testing.T, svc *Service) Draft {
	t.Helper()
	d, err := svc.Save(context.Background(), checkout.Request{
		Customer: order.Customer{Name: "Budi"},
		Items:    []checkout.Item{{ProductID: "spanduk"}},
	}, "spanduk budi", "kasir-1")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return d
}

func TestClaimSchedulesRelease(t *testing.T) {
	svc, _, sched, _ := newDraftService()
	d := saveDraft(t, svc)

	claimed, err := svc.Claim(context.Background(), d.ID, "kasir-1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.Status != StatusActive || claimed.ClaimedBy != "kasir-1" {
		t.Fatalf("claimed = %+v", claimed)
	}
	if len(sched.tasks) != 1 || sched.tasks[0].Type() != TypeRelease {
		t.Fatalf("tasks = %v, want one %s", sched.tasks, TypeRelease)
	}
}

func TestClaimRace(t *testing.T) {
	svc, _, _, _ := newDraftService()
	d := saveDraft(t, svc)

	if _, err := svc.Claim(context.Background(), d.ID, "kasir-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := svc.Claim(context.Background(), d.ID, "kasir-2"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("err = %v, want ErrAlreadyClaimed", err)
	}
}

func TestStatusWireValues(t *testing.T) {
	svc, _, _, _ := newDraftService()

	d := saveDraft(t, svc)
	if string(d.Status) != "PENDING" {
		t.Fatalf("new draft status = %q, want PENDING", d.Status)
	}

	claimed, err := svc.Claim(context.Background(), d.ID, "kasir-1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if string(claimed.Status) != "ACTIVE" {
		t.Fatalf("claimed status = %q, want ACTIVE", claimed.Status)
	}
}

func TestReleaseOnlyByHolder(t *testing.T) {
	svc, store, _, _ := newDraftService()
	d := saveDraft(t, svc)
	if _, err := svc.Claim(context.Background(), d.ID, "kasir-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := svc.Release(context.Background(), d.ID, "kasir-2"); !errors.Is(err, ErrNotClaimedByCaller) {
		t.Fatalf("err = %v, want ErrNotClaimedByCaller", err)
	}
	if err := svc.Release(context.Background(), d.ID, "kasir-1"); err != nil {
		t.Fatalf("holder release: %v", err)
	}
	if store.drafts[d.ID].Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", store.drafts[d.ID].Status)
	}
}

func TestFinalizeClaimedDraft(t *testing.T) {
	svc, store, _, co := newDraftService()
	d := saveDraft(t, svc)
	if _, err := svc.Claim(context.Background(), d.ID, "kasir-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	o, err := svc.Finalize(context.Background(), d.ID, "kasir-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if o.ID != "o1" || co.calls != 1 {
		t.Fatalf("order = %+v, calls = %d", o, co.calls)
	}
	if store.drafts[d.ID].Status != StatusFinalized {
		t.Fatalf("status = %s, want FINALIZED", store.drafts[d.ID].Status)
	}

	if _, err := svc.Finalize(context.Background(), d.ID, "kasir-1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("second finalize err = %v, want ErrClosed", err)
	}
}

func TestFinalizeRequiresClaim(t *testing.T) {
	svc, _, _, co := newDraftService()
	d := saveDraft(t, svc)

	if _, err := svc.Finalize(context.Background(), d.ID, "kasir-1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed on an unclaimed draft", err)
	}
	if co.calls != 0 {
		t.Fatalf("checkout ran %d times on a failed finalize", co.calls)
	}
}

func TestExpiredReleaseTaskReopensDraft(t *testing.T) {
	svc, store, _, _ := newDraftService()
	d := saveDraft(t, svc)
	if _, err := svc.Claim(context.Background(), d.ID, "kasir-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	expired := time.Now().Add(-time.Minute)
	store.drafts[d.ID].ExpiresAt = &expired

	released, err := store.Release(context.Background(), d.ID, false)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !released {
		t.Fatal("expired claim was not released")
	}
	if store.drafts[d.ID].Status != StatusPending {
		t.Fatalf("status = %s, want PENDING after expiry release", store.drafts[d.ID].Status)
	}
}
