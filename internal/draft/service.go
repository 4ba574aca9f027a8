package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/checkout"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/lock"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/obs"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
)

// DefaultClaimTTL is how long a cashier holds a draft before the worker
// reopens it.
const DefaultClaimTTL = 30 * time.Minute

// Records is the persistence surface the service needs. *Store satisfies it.
type Records interface {
	Create(ctx context.Context, payload json.RawMessage, label, createdBy string) (Draft, error)
	Get(ctx context.Context, id string) (Draft, error)
	List(ctx context.Context) ([]Draft, error)
	Claim(ctx context.Context, id, cashier string, ttl time.Duration) (Draft, error)
	Release(ctx context.Context, id string, force bool) (bool, error)
	Close(ctx context.Context, id string, status Status) error
}

// Scheduler enqueues deferred tasks. *asynq.Client satisfies it.
type Scheduler interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Checkouter runs a finalized draft through checkout.
type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request, cashier string) (order.Order, error)
}

// Service owns the draft lifecycle: pending drafts can be claimed by one
// cashier at a time, claims expire through a scheduled worker task, and a
// claimed draft finalizes into a real order.
type Service struct {
	Records  Records
	Tasks    Scheduler
	Checkout Checkouter
	Events   *events.Bus
	Locker   lock.Locker
	ClaimTTL time.Duration
	Logger   zerolog.Logger
}

func (s *Service) claimTTL() time.Duration {
	if s.ClaimTTL > 0 {
		return s.ClaimTTL
	}
	return DefaultClaimTTL
}

// Save stores a checkout request as a reusable draft.
func (s *Service) Save(ctx context.Context, req checkout.Request, label, createdBy string) (Draft, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Draft{}, fmt.Errorf("encode draft payload: %w", err)
	}
	return s.Records.Create(ctx, payload, label, createdBy)
}

// List returns the editable drafts.
func (s *Service) List(ctx context.Context) ([]Draft, error) {
	return s.Records.List(ctx)
}

// Claim takes the draft for one cashier and schedules the automatic release.
func (s *Service) Claim(ctx context.Context, id, cashier string) (Draft, error) {
	d, err := s.Records.Claim(ctx, id, cashier, s.claimTTL())
	if err != nil {
		outcome := "error"
		if isClaimRace(err) {
			outcome = "lost"
		}
		obs.IncDraftClaim(outcome)
		return Draft{}, err
	}
	obs.IncDraftClaim("won")

	if s.Tasks != nil {
		task, err := NewReleaseTask(d.ID)
		if err == nil {
			_, err = s.Tasks.Enqueue(task, asynq.ProcessIn(s.claimTTL()), asynq.MaxRetry(3))
		}
		if err != nil {
			s.Logger.Error().Err(err).Str("draft_id", d.ID).Msg("schedule claim release")
		}
	}
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicDraftClaimed, d.ID, map[string]any{"claimed_by": cashier}); err != nil {
			s.Logger.Error().Err(err).Str("draft_id", d.ID).Msg("emit draft claimed event")
		}
	}
	return d, nil
}

// Release gives up the caller's claim immediately.
func (s *Service) Release(ctx context.Context, id, cashier string) error {
	d, err := s.Records.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status != StatusActive {
		return ErrClosed
	}
	if d.ClaimedBy != cashier {
		return fmt.Errorf("held by %s: %w", d.ClaimedBy, ErrNotClaimedByCaller)
	}
	released, err := s.Records.Release(ctx, id, true)
	if err != nil {
		return err
	}
	if released && s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicDraftReleased, id, map[string]any{"claimed_by": cashier}); err != nil {
			s.Logger.Error().Err(err).Str("draft_id", id).Msg("emit draft released event")
		}
	}
	return nil
}

// Finalize turns a claimed draft into a persisted order. A short Redis lock
// guards against the same draft being finalized from two terminals at once.
func (s *Service) Finalize(ctx context.Context, id, cashier string) (order.Order, error) {
	var created order.Order
	run := func(ctx context.Context) error {
		d, err := s.Records.Get(ctx, id)
		if err != nil {
			return err
		}
		if d.Status != StatusActive {
			return ErrClosed
		}
		if d.ClaimedBy != cashier {
			return fmt.Errorf("held by %s: %w", d.ClaimedBy, ErrNotClaimedByCaller)
		}
		var req checkout.Request
		if err := json.Unmarshal(d.Payload, &req); err != nil {
			return fmt.Errorf("decode draft payload: %w", err)
		}
		created, err = s.Checkout.Checkout(ctx, req, cashier)
		if err != nil {
			return err
		}
		return s.Records.Close(ctx, id, StatusFinalized)
	}
	if s.Locker.R != nil {
		if err := s.Locker.WithLock(ctx, "draft:finalize:"+id, 15*time.Second, run); err != nil {
			return order.Order{}, err
		}
		return created, nil
	}
	if err := run(ctx); err != nil {
		return order.Order{}, err
	}
	return created, nil
}

// Discard closes a draft without creating an order.
func (s *Service) Discard(ctx context.Context, id string) error {
	return s.Records.Close(ctx, id, StatusDiscarded)
}

func isClaimRace(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed)
}
