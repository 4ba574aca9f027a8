package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// ErrMalformedRecord indicates a stored record is missing its identity
// fields. The normalizer never fabricates identifiers.
var ErrMalformedRecord = errors.New("order: malformed record")

// RawOrder is the tagged raw shape of a persisted order. Historical writers
// used different field names for the same logical value; every candidate is
// modeled explicitly and only the Normalizer reads them. Raw records are
// never handed to pricing or aggregation code.
type RawOrder struct {
	ID                    string          `json:"id,omitempty"`
	OrderNumber           *string         `json:"order_number,omitempty"`
	OrderNumberLegacy     *string         `json:"orderNumber,omitempty"`
	ProductionStatusSnake *string         `json:"production_status,omitempty"`
	ProductionStatusCamel *string         `json:"productionStatus,omitempty"`
	PaymentStatus         *string         `json:"payment_status,omitempty"`
	Subtotal              *pricing.Money  `json:"subtotal,omitempty"`
	Discount              *pricing.Money  `json:"discount,omitempty"`
	ServiceFee            *pricing.Money  `json:"service_fee,omitempty"`
	GrandTotal            *pricing.Money  `json:"grand_total,omitempty"`
	GrandTotalLegacy      *pricing.Money  `json:"grandTotal,omitempty"`
	PaidAmount            *pricing.Money  `json:"paid_amount,omitempty"`
	PaidAmountLegacy      *pricing.Money  `json:"paidAmount,omitempty"`
	CustomerName          *string         `json:"customer_name,omitempty"`
	CustomerNameLegacy    *string         `json:"customerName,omitempty"`
	CustomerPhone         *string         `json:"customer_phone,omitempty"`
	CustomerPhoneLegacy   *string         `json:"customerPhone,omitempty"`
	IsTempo               *bool           `json:"is_tempo,omitempty"`
	IsTempoLegacy         *bool           `json:"isTempo,omitempty"`
	Notes                 *string         `json:"notes,omitempty"`
	CancelReason          *string         `json:"cancel_reason,omitempty"`
	CreatedBy             *string         `json:"created_by,omitempty"`
	CreatedAt             *time.Time      `json:"created_at,omitempty"`
	UpdatedAt             *time.Time      `json:"updated_at,omitempty"`
	Items                 []RawItem       `json:"items,omitempty"`
	Payload               json.RawMessage `json:"-"`
}

// RawItemMeta carries embedded specs written by newer clients.
type RawItemMeta struct {
	Specs *pricing.Specs `json:"specs,omitempty"`
}

// RawItem is the tagged raw shape of one persisted line item.
type RawItem struct {
	ID                string                  `json:"id,omitempty"`
	ProductID         *string                 `json:"product_id,omitempty"`
	ProductIDLegacy   *string                 `json:"productId,omitempty"`
	ProductName       *string                 `json:"product_name,omitempty"`
	ProductNameLegacy *string                 `json:"productName,omitempty"`
	Qty               *int                    `json:"qty,omitempty"`
	Quantity          *int                    `json:"quantity,omitempty"`
	UnitPrice         *pricing.Money          `json:"unit_price,omitempty"`
	Price             *pricing.Money          `json:"price,omitempty"`
	Subtotal          *pricing.Money          `json:"subtotal,omitempty"`
	TotalPrice        *pricing.Money          `json:"totalPrice,omitempty"`
	Length            *float64                `json:"length,omitempty"`
	Width             *float64                `json:"width,omitempty"`
	Variant           *string                 `json:"variant,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
	Dimensions        json.RawMessage         `json:"dimensions,omitempty"`
	Meta              *RawItemMeta            `json:"meta,omitempty"`
	Finishings        []pricing.FinishingCost `json:"finishings,omitempty"`

	// PayloadUnreadable is set by the store when the persisted item payload
	// is not valid JSON. The scalar columns still populate the fields above.
	PayloadUnreadable bool `json:"-"`
}

// Normalizer reconstructs canonical orders from raw records. The zero value
// is usable; FinishingLookup optionally cross-checks finishing references
// against the catalog by id.
type Normalizer struct {
	FinishingLookup func(id string) (pricing.FinishingOption, bool)
}

var knownProductionStatuses = map[string]bool{
	string(ProductionPending):    true,
	string(ProductionInProgress): true,
	string(ProductionReady):      true,
	string(ProductionDelivered):  true,
	string(ProductionCanceled):   true,
}

var knownPaymentStatuses = map[string]bool{
	string(pricing.PaymentUnpaid):  true,
	string(pricing.PaymentPartial): true,
	string(pricing.PaymentPaid):    true,
}

// Order merges every candidate source for each logical field with documented
// priority and returns the canonical order. Records without a primary key or
// order number fail with ErrMalformedRecord.
func (n Normalizer) Order(raw RawOrder) (Order, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return Order{}, fmt.Errorf("missing order id: %w", ErrMalformedRecord)
	}
	number := firstString(raw.OrderNumber, raw.OrderNumberLegacy)
	if strings.TrimSpace(number) == "" {
		return Order{}, fmt.Errorf("order %s missing order number: %w", raw.ID, ErrMalformedRecord)
	}

	var warnings []NormalizationWarning

	production := firstStringDefault(string(ProductionPending), raw.ProductionStatusSnake, raw.ProductionStatusCamel)
	if !knownProductionStatuses[production] {
		if knownProductionStatuses[strings.ToUpper(production)] {
			// Preserved verbatim pending a product decision on case handling.
			warnings = append(warnings, warn("production_status", "case mismatch: %q", production))
		} else {
			warnings = append(warnings, warn("production_status", "unknown value: %q", production))
		}
	}
	payment := firstStringDefault(string(pricing.PaymentUnpaid), raw.PaymentStatus)
	if !knownPaymentStatuses[payment] {
		if knownPaymentStatuses[strings.ToUpper(payment)] {
			warnings = append(warnings, warn("payment_status", "case mismatch: %q", payment))
		} else {
			warnings = append(warnings, warn("payment_status", "unknown value: %q", payment))
		}
	}

	items := make([]pricing.LineItem, 0, len(raw.Items))
	var itemsSubtotal pricing.Money
	for _, rawItem := range raw.Items {
		item, itemWarnings := n.Item(rawItem)
		warnings = append(warnings, itemWarnings...)
		itemsSubtotal += item.Subtotal
		items = append(items, item)
	}

	subtotal := itemsSubtotal
	if raw.Subtotal != nil {
		subtotal = *raw.Subtotal
	}
	discount := moneyOrZero(raw.Discount)
	serviceFee := moneyOrZero(raw.ServiceFee)
	grand := subtotal + serviceFee - discount
	if grand < 0 {
		grand = 0
	}
	if stored := firstMoney(raw.GrandTotal, raw.GrandTotalLegacy); stored != nil {
		grand = *stored
	}
	paid := moneyOrZero(firstMoney(raw.PaidAmount, raw.PaidAmountLegacy))
	remaining := grand - paid
	if remaining < 0 {
		remaining = 0
	}

	o := Order{
		ID:               raw.ID,
		OrderNumber:      number,
		Items:            items,
		Subtotal:         subtotal,
		Discount:         discount,
		ServiceFee:       serviceFee,
		GrandTotal:       grand,
		PaidAmount:       paid,
		RemainingAmount:  remaining,
		PaymentStatus:    pricing.PaymentStatus(payment),
		ProductionStatus: ProductionStatus(production),
		Customer: Customer{
			Name:  firstString(raw.CustomerName, raw.CustomerNameLegacy),
			Phone: firstString(raw.CustomerPhone, raw.CustomerPhoneLegacy),
		},
		IsTempo:      boolOrFalse(firstBool(raw.IsTempo, raw.IsTempoLegacy)),
		Notes:        firstString(raw.Notes),
		CancelReason: firstString(raw.CancelReason),
		CreatedBy:    firstString(raw.CreatedBy),
		Warnings:     warnings,
	}
	if raw.CreatedAt != nil {
		o.CreatedAt = *raw.CreatedAt
	}
	if raw.UpdatedAt != nil {
		o.UpdatedAt = *raw.UpdatedAt
	}
	return o, nil
}

// Item reconstructs one canonical line item. The field precedence follows
// the documented merge table; quantities resolved to a non-positive value
// fall back to 1 with a warning instead of failing the read path. Every
// field has a usable default, so item reads never fail.
func (n Normalizer) Item(raw RawItem) (pricing.LineItem, []NormalizationWarning) {
	var warnings []NormalizationWarning

	if raw.PayloadUnreadable {
		warnings = append(warnings, warn("payload", "unreadable item payload json"))
	}

	qty := 1
	switch {
	case raw.Qty != nil:
		qty = *raw.Qty
	case raw.Quantity != nil:
		qty = *raw.Quantity
	}
	if qty <= 0 {
		warnings = append(warnings, warn("quantity", "non-positive quantity %d read as 1", qty))
		qty = 1
	}

	var unit pricing.Money
	switch {
	case raw.UnitPrice != nil:
		unit = *raw.UnitPrice
	case raw.Price != nil:
		unit = *raw.Price
	}

	var subtotal pricing.Money
	switch {
	case raw.Subtotal != nil:
		subtotal = *raw.Subtotal
	case raw.TotalPrice != nil:
		subtotal = *raw.TotalPrice
	default:
		subtotal = unit * pricing.Money(qty)
	}

	specs := n.resolveSpecs(raw, &warnings)
	if specs.Notes == "" && raw.Notes != nil && strings.TrimSpace(*raw.Notes) != "" {
		specs.Notes = *raw.Notes
	}

	finishings := n.resolveFinishings(raw.Finishings, qty, &warnings)

	item := pricing.LineItem{
		ID:          raw.ID,
		ProductID:   firstString(raw.ProductID, raw.ProductIDLegacy),
		ProductName: firstString(raw.ProductName, raw.ProductNameLegacy),
		Quantity:    qty,
		UnitPrice:   unit,
		Subtotal:    subtotal,
		Length:      floatOrZero(raw.Length),
		Width:       floatOrZero(raw.Width),
		Variant:     firstString(raw.Variant),
		Finishings:  finishings,
		Notes:       firstString(raw.Notes),
		Specs:       specs,
	}
	if item.ID == "" {
		warnings = append(warnings, warn("id", "line item has no id"))
	}
	if item.Length == 0 {
		item.Length = specs.Inputs.Length
	}
	if item.Width == 0 {
		item.Width = specs.Inputs.Width
	}
	return item, warnings
}

// resolveSpecs prefers the dimensions JSON column, then embedded meta specs,
// then an empty object.
func (n Normalizer) resolveSpecs(raw RawItem, warnings *[]NormalizationWarning) pricing.Specs {
	if len(raw.Dimensions) > 0 {
		var specs pricing.Specs
		if err := json.Unmarshal(raw.Dimensions, &specs); err == nil {
			return specs
		}
		*warnings = append(*warnings, warn("dimensions", "unreadable dimensions json"))
	}
	if raw.Meta != nil && raw.Meta.Specs != nil {
		return *raw.Meta.Specs
	}
	return pricing.Specs{}
}

// resolveFinishings prefers id-based catalog lookup when an id is present,
// falls back to the stored name, and flags id/name disagreements.
func (n Normalizer) resolveFinishings(raw []pricing.FinishingCost, qty int, warnings *[]NormalizationWarning) []pricing.FinishingCost {
	if len(raw) == 0 {
		return nil
	}
	out := make([]pricing.FinishingCost, 0, len(raw))
	for _, f := range raw {
		if f.ID != "" && n.FinishingLookup != nil {
			if opt, ok := n.FinishingLookup(f.ID); ok {
				if f.Name != "" && f.Name != opt.Name {
					*warnings = append(*warnings, warn("finishings", "finishing %s name %q disagrees with catalog %q", f.ID, f.Name, opt.Name))
				}
				f.Name = opt.Name
			} else if f.Name == "" {
				*warnings = append(*warnings, warn("finishings", "finishing id %s not in catalog", f.ID))
			}
		}
		if f.Total == 0 && f.Price != 0 {
			f.Total = f.Price
			if f.PerUnit {
				f.Total = f.Price * pricing.Money(qty)
			}
		}
		out = append(out, f)
	}
	return out
}

// RawFromOrder converts a canonical order back into its raw shape. Feeding
// the result through Order again is a no-op; the auditor and the idempotence
// tests rely on this round-trip.
func RawFromOrder(o Order) RawOrder {
	raw := RawOrder{
		ID:                    o.ID,
		OrderNumber:           strPtr(o.OrderNumber),
		ProductionStatusSnake: strPtr(string(o.ProductionStatus)),
		PaymentStatus:         strPtr(string(o.PaymentStatus)),
		Subtotal:              moneyPtr(o.Subtotal),
		Discount:              moneyPtr(o.Discount),
		ServiceFee:            moneyPtr(o.ServiceFee),
		GrandTotal:            moneyPtr(o.GrandTotal),
		PaidAmount:            moneyPtr(o.PaidAmount),
		CustomerName:          strPtr(o.Customer.Name),
		CustomerPhone:         strPtr(o.Customer.Phone),
		IsTempo:               &o.IsTempo,
	}
	if o.Notes != "" {
		raw.Notes = strPtr(o.Notes)
	}
	if o.CancelReason != "" {
		raw.CancelReason = strPtr(o.CancelReason)
	}
	if o.CreatedBy != "" {
		raw.CreatedBy = strPtr(o.CreatedBy)
	}
	if !o.CreatedAt.IsZero() {
		created := o.CreatedAt
		raw.CreatedAt = &created
	}
	if !o.UpdatedAt.IsZero() {
		updated := o.UpdatedAt
		raw.UpdatedAt = &updated
	}
	for _, item := range o.Items {
		raw.Items = append(raw.Items, RawFromItem(item))
	}
	return raw
}

// RawFromItem converts a canonical line item back into its raw shape.
func RawFromItem(item pricing.LineItem) RawItem {
	specs := item.Specs
	raw := RawItem{
		ID:          item.ID,
		ProductID:   strPtr(item.ProductID),
		ProductName: strPtr(item.ProductName),
		Qty:         &item.Quantity,
		UnitPrice:   moneyPtr(item.UnitPrice),
		Subtotal:    moneyPtr(item.Subtotal),
		Meta:        &RawItemMeta{Specs: &specs},
		Finishings:  item.Finishings,
	}
	if item.Length > 0 {
		raw.Length = &item.Length
	}
	if item.Width > 0 {
		raw.Width = &item.Width
	}
	if item.Variant != "" {
		raw.Variant = strPtr(item.Variant)
	}
	if item.Notes != "" {
		raw.Notes = strPtr(item.Notes)
	}
	return raw
}

func firstString(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return ""
}

func firstStringDefault(def string, candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return def
}

func firstMoney(candidates ...*pricing.Money) *pricing.Money {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func firstBool(candidates ...*bool) *bool {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

func moneyOrZero(v *pricing.Money) pricing.Money {
	if v == nil {
		return 0
	}
	return *v
}

func boolOrFalse(v *bool) bool {
	return v != nil && *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func strPtr(s string) *string { return &s }

func moneyPtr(v pricing.Money) *pricing.Money { return &v }
