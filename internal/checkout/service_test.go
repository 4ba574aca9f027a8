package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/catalog"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

type stubCatalog struct {
	products   map[string]catalog.Product
	finishings map[string]pricing.FinishingOption
}

func (s *stubCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) FinishingLookup(context.Context) func(string) (pricing.FinishingOption, bool) {
	return func(id string) (pricing.FinishingOption, bool) {
		opt, ok := s.finishings[id]
		return opt, ok
	}
}

type stubOrders struct {
	created *order.Order
}

func (s *stubOrders) Create(_ context.Context, o order.Order) (order.Order, error) {
	o.ID = "o1"
	o.OrderNumber = "ORD-20260901-0001"
	s.created = &o
	return o, nil
}

func newCheckoutService(cat *stubCatalog) (*Service, *stubOrders) {
	orders := &stubOrders{}
	return &Service{
		Catalog: cat,
		Orders:  orders,
		Logger:  zerolog.Nop(),
	}, orders
}

type stubScheduler struct {
	tasks []*asynq.Task
}

func (s *stubScheduler) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func intPtr(v int) *int { return &v }

func TestCheckoutAreaProductWithFinishing(t *testing.T) {
	cat := &stubCatalog{
		products: map[string]catalog.Product{
			"spanduk": {
				ID:     "spanduk",
				Name:   "Spanduk Flexi 280gr",
				Active: true,
				Rules:  pricing.Rules{Model: pricing.ModelArea, BasePrice: 25000},
			},
		},
		finishings: map[string]pricing.FinishingOption{
			"mata-ayam": {ID: "mata-ayam", Name: "Mata Ayam", Price: 2000, PerUnit: true},
		},
	}
	svc, orders := newCheckoutService(cat)

	o, err := svc.Checkout(context.Background(), Request{
		Customer: order.Customer{Name: "Budi"},
		Items: []Item{{
			ProductID:    "spanduk",
			Qty:          intPtr(2),
			Length:       3,
			Width:        1,
			FinishingIDs: []string{"mata-ayam"},
		}},
		PaidAmount: 50000,
	}, "kasir-1")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// 25000 x 3 x 1 = 75000/unit, x2 = 150000, + eyelets 2000 x 2 = 154000
	if got := o.Items[0].UnitPrice; got != 75000 {
		t.Fatalf("unit price = %d, want 75000", got)
	}
	if o.GrandTotal != 154000 {
		t.Fatalf("grand total = %d, want 154000", o.GrandTotal)
	}
	if o.PaymentStatus != pricing.PaymentPartial || o.RemainingAmount != 104000 {
		t.Fatalf("payment = %s remaining %d, want PARTIAL / 104000", o.PaymentStatus, o.RemainingAmount)
	}
	if o.ProductionStatus != order.ProductionPending {
		t.Fatalf("production = %s, want PENDING", o.ProductionStatus)
	}
	if orders.created == nil || orders.created.CreatedBy != "kasir-1" {
		t.Fatalf("created = %+v, want created_by kasir-1", orders.created)
	}
}

func TestCheckoutRejectsBelowMinimumOrder(t *testing.T) {
	cat := &stubCatalog{
		products: map[string]catalog.Product{
			"brosur": {
				ID:     "brosur",
				Name:   "Brosur A5",
				Active: true,
				Rules: pricing.Rules{
					Model:    pricing.ModelAdvanced,
					MinOrder: 100,
					Tiers: []pricing.Tier{
						{MinQty: 100, MaxQty: 499, Price: 2000},
						{MinQty: 500, MaxQty: 0, Price: 1000},
					},
				},
			},
		},
	}
	svc, _ := newCheckoutService(cat)

	_, err := svc.Checkout(context.Background(), Request{
		Customer: order.Customer{Name: "Sari"},
		Items:    []Item{{ProductID: "brosur", Qty: intPtr(50)}},
	}, "")
	if !errors.Is(err, pricing.ErrBelowMinimumOrder) {
		t.Fatalf("err = %v, want ErrBelowMinimumOrder", err)
	}
}

func TestCheckoutClampsDiscount(t *testing.T) {
	cat := &stubCatalog{
		products: map[string]catalog.Product{
			"stiker": {
				ID:     "stiker",
				Name:   "Stiker Vinyl",
				Active: true,
				Rules:  pricing.Rules{Model: pricing.ModelUnit, BasePrice: 10000},
			},
		},
	}
	svc, _ := newCheckoutService(cat)

	o, err := svc.Checkout(context.Background(), Request{
		Customer: order.Customer{Name: "Andi"},
		Items:    []Item{{ProductID: "stiker", Qty: intPtr(2)}},
		Discount: 999999,
	}, "")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if o.Discount != 20000 {
		t.Fatalf("discount = %d, want clamped to subtotal 20000", o.Discount)
	}
	if o.GrandTotal != 0 {
		t.Fatalf("grand total = %d, want 0", o.GrandTotal)
	}
	if o.PaymentStatus != pricing.PaymentPaid {
		t.Fatalf("status = %s, want PAID on a zero-total order", o.PaymentStatus)
	}
}

func TestCheckoutRejectsInactiveProduct(t *testing.T) {
	cat := &stubCatalog{
		products: map[string]catalog.Product{
			"old": {ID: "old", Name: "Discontinued", Active: false, Rules: pricing.Rules{Model: pricing.ModelUnit, BasePrice: 1000}},
		},
	}
	svc, _ := newCheckoutService(cat)

	_, err := svc.Checkout(context.Background(), Request{
		Customer: order.Customer{Name: "Tono"},
		Items:    []Item{{ProductID: "old", Qty: intPtr(1)}},
	}, "")
	if !errors.Is(err, ErrInactiveProduct) {
		t.Fatalf("err = %v, want ErrInactiveProduct", err)
	}
}

func TestCheckoutUnknownFinishing(t *testing.T) {
	cat := &stubCatalog{
		products: map[string]catalog.Product{
			"kartu": {ID: "kartu", Name: "Kartu Nama", Active: true, Rules: pricing.Rules{Model: pricing.ModelUnit, BasePrice: 50000}},
		},
	}
	svc, _ := newCheckoutService(cat)

	_, err := svc.Checkout(context.Background(), Request{
		Customer: order.Customer{Name: "Rina"},
		Items:    []Item{{ProductID: "kartu", Qty: intPtr(1), FinishingIDs: []string{"ghost"}}},
	}, "")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v, want catalog.ErrNotFound", err)
	}
}

func TestCheckoutSchedulesAudit(t *testing.T) {
	cat := &stubCatalog{
		products: map[string]catalog.Product{
			"stiker": {ID: "stiker", Name: "Stiker Vinyl A3", Active: true, Rules: pricing.Rules{Model: pricing.ModelUnit, BasePrice: 15000}},
		},
	}
	svc, _ := newCheckoutService(cat)
	sched := &stubScheduler{}
	svc.Tasks = sched

	o, err := svc.Checkout(context.Background(), Request{
		Customer: order.Customer{Name: "Sari"},
		Items:    []Item{{ProductID: "stiker", Qty: intPtr(3)}},
	}, "kasir-2")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(sched.tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(sched.tasks))
	}
	if got := sched.tasks[0].Type(); got != order.TypeAudit {
		t.Fatalf("task type = %q, want %q", got, order.TypeAudit)
	}
	if o.ID == "" {
		t.Fatal("expected created order id")
	}
}
