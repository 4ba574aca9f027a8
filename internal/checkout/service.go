package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/catalog"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/obs"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// ErrInactiveProduct indicates a checkout line referencing a product that is
// hidden from sale.
var ErrInactiveProduct = errors.New("checkout: product is not for sale")

// Catalog is the product knowledge the checkout needs.
type Catalog interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
	FinishingLookup(ctx context.Context) func(id string) (pricing.FinishingOption, bool)
}

// Orders persists the finished order.
type Orders interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
}

// Scheduler enqueues deferred tasks. *asynq.Client satisfies it.
type Scheduler interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Item is one requested checkout line. Quantity and price fields keep the
// historical duplicate names; the pricing builder resolves them.
type Item struct {
	ProductID    string                       `json:"productId" validate:"required"`
	Qty          *int                         `json:"qty,omitempty"`
	Quantity     *int                         `json:"quantity,omitempty"`
	Length       float64                      `json:"length,omitempty"`
	Width        float64                      `json:"width,omitempty"`
	Material     string                       `json:"material,omitempty"`
	Size         string                       `json:"size,omitempty"`
	Finishing    []pricing.FinishingSelection `json:"finishing,omitempty"`
	FinishingIDs []string                     `json:"finishingIds,omitempty"`
	Notes        string                       `json:"notes,omitempty"`
}

// Request is one full checkout submission.
type Request struct {
	Customer   order.Customer `json:"customer" validate:"required"`
	Items      []Item         `json:"items" validate:"required,min=1,dive"`
	Discount   pricing.Money  `json:"discount"`
	ServiceFee pricing.Money  `json:"serviceFee"`
	PaidAmount pricing.Money  `json:"paidAmount"`
	IsTempo    bool           `json:"isTempo"`
	Notes      string         `json:"notes,omitempty"`
}

// Service prices a checkout request against the catalog, aggregates the
// totals and persists the resulting order.
type Service struct {
	Catalog Catalog
	Orders  Orders
	Events  *events.Bus
	Tasks   Scheduler
	Logger  zerolog.Logger
}

// Checkout runs the full pipeline for one submission. The cashier identity
// is captured as created_by on the stored order.
func (s *Service) Checkout(ctx context.Context, req Request, cashier string) (order.Order, error) {
	items := make([]pricing.LineItem, 0, len(req.Items))
	lookup := s.Catalog.FinishingLookup(ctx)
	for i, reqItem := range req.Items {
		item, err := s.priceItem(ctx, reqItem, lookup)
		if err != nil {
			obs.IncPricingError(errorKind(err))
			return order.Order{}, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}

	totals := pricing.Aggregate(items, req.Discount, req.ServiceFee)
	if totals.DiscountClamped {
		obs.IncDiscountClamped()
		s.Logger.Warn().
			Int64("requested", req.Discount).
			Int64("applied", totals.Discount).
			Msg("discount clamped to valid range")
	}
	payment := pricing.ResolvePayment(totals.GrandTotal, req.PaidAmount)
	paid := req.PaidAmount
	if paid < 0 {
		paid = 0
	}

	o := order.Order{
		Items:            items,
		Subtotal:         totals.Subtotal,
		Discount:         totals.Discount,
		ServiceFee:       totals.ServiceFee,
		GrandTotal:       totals.GrandTotal,
		PaidAmount:       paid,
		RemainingAmount:  payment.Remaining,
		PaymentStatus:    payment.Status,
		ProductionStatus: order.ProductionPending,
		Customer:         req.Customer,
		IsTempo:          req.IsTempo,
		Notes:            req.Notes,
		CreatedBy:        cashier,
	}
	created, err := s.Orders.Create(ctx, o)
	if err != nil {
		return order.Order{}, fmt.Errorf("persist order: %w", err)
	}
	obs.IncOrderCreated()
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, created.ID, map[string]any{
			"order_number": created.OrderNumber,
			"grand_total":  created.GrandTotal,
			"items":        len(created.Items),
		}); err != nil {
			s.Logger.Error().Err(err).Str("order_id", created.ID).Msg("emit order created event")
		}
	}
	if s.Tasks != nil {
		task, err := order.NewAuditTask(created.ID)
		if err == nil {
			_, err = s.Tasks.Enqueue(task, asynq.ProcessIn(time.Minute), asynq.MaxRetry(2))
		}
		if err != nil {
			s.Logger.Error().Err(err).Str("order_id", created.ID).Msg("enqueue order audit")
		}
	}
	return created, nil
}

func (s *Service) priceItem(ctx context.Context, reqItem Item, lookup func(string) (pricing.FinishingOption, bool)) (pricing.LineItem, error) {
	product, err := s.Catalog.Product(ctx, reqItem.ProductID)
	if err != nil {
		return pricing.LineItem{}, err
	}
	if !product.Active {
		return pricing.LineItem{}, fmt.Errorf("product %s: %w", product.ID, ErrInactiveProduct)
	}

	finishings := make([]pricing.FinishingOption, 0, len(reqItem.FinishingIDs))
	for _, id := range reqItem.FinishingIDs {
		opt, ok := lookup(id)
		if !ok {
			return pricing.LineItem{}, fmt.Errorf("finishing %s: %w", id, catalog.ErrNotFound)
		}
		finishings = append(finishings, opt)
	}

	sel := pricing.Selection{
		Length:    reqItem.Length,
		Width:     reqItem.Width,
		Material:  reqItem.Material,
		Size:      reqItem.Size,
		Finishing: reqItem.Finishing,
	}
	raw := pricing.RawItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Qty:         reqItem.Qty,
		Quantity:    reqItem.Quantity,
		Notes:       reqItem.Notes,
	}
	return pricing.BuildLineItem(product.Rules, sel, raw, finishings)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, pricing.ErrPriceNotFound):
		return "price_not_found"
	case errors.Is(err, pricing.ErrBelowMinimumOrder):
		return "below_minimum_order"
	case errors.Is(err, pricing.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, catalog.ErrNotFound):
		return "catalog_miss"
	case errors.Is(err, ErrInactiveProduct):
		return "inactive_product"
	default:
		return "other"
	}
}
