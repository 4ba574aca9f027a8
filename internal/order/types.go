package order

import (
	"fmt"
	"time"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// ProductionStatus tracks an order through the print shop workflow.
type ProductionStatus string

const (
	ProductionPending    ProductionStatus = "PENDING"
	ProductionInProgress ProductionStatus = "IN_PROGRESS"
	ProductionReady      ProductionStatus = "READY"
	ProductionDelivered  ProductionStatus = "DELIVERED"
	ProductionCanceled   ProductionStatus = "CANCELED"
)

// productionTransitions is the validated forward workflow. Cancel is allowed
// from any non-terminal state and handled separately.
var productionTransitions = map[ProductionStatus]ProductionStatus{
	ProductionPending:    ProductionInProgress,
	ProductionInProgress: ProductionReady,
	ProductionReady:      ProductionDelivered,
}

// CanAdvanceTo reports whether next is the legal forward step from s.
func (s ProductionStatus) CanAdvanceTo(next ProductionStatus) bool {
	return productionTransitions[s] == next
}

// Terminal reports whether the status ends the workflow.
func (s ProductionStatus) Terminal() bool {
	return s == ProductionDelivered || s == ProductionCanceled
}

// Customer is the snapshot captured at checkout, not a live reference.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Order is the canonical in-memory order shape. Every persisted or legacy
// record passes through the Normalizer before it becomes one of these.
type Order struct {
	ID               string                 `json:"id"`
	OrderNumber      string                 `json:"order_number"`
	Items            []pricing.LineItem     `json:"items"`
	Subtotal         pricing.Money          `json:"subtotal"`
	Discount         pricing.Money          `json:"discount"`
	ServiceFee       pricing.Money          `json:"service_fee"`
	GrandTotal       pricing.Money          `json:"grand_total"`
	PaidAmount       pricing.Money          `json:"paid_amount"`
	RemainingAmount  pricing.Money          `json:"remaining_amount"`
	PaymentStatus    pricing.PaymentStatus  `json:"payment_status"`
	ProductionStatus ProductionStatus       `json:"production_status"`
	Customer         Customer               `json:"customer"`
	IsTempo          bool                   `json:"is_tempo,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	CancelReason     string                 `json:"cancel_reason,omitempty"`
	CreatedBy        string                 `json:"created_by,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Warnings         []NormalizationWarning `json:"-"`
}

// NormalizationWarning flags a suspicious but tolerated value found while
// reconstructing a record (case-mismatched status, finishing id/name
// disagreement, coerced quantity). Warnings are logged and counted, never
// fatal, and never rewrite the stored value.
type NormalizationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func warn(field, format string, args ...any) NormalizationWarning {
	return NormalizationWarning{Field: field, Message: fmt.Sprintf(format, args...)}
}
