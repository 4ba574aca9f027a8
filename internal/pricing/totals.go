package pricing

// Totals is the structured order-level breakdown. Downstream consumers read
// the discount from here instead of re-deriving it from two totals.
type Totals struct {
	Subtotal   Money `json:"subtotal"`
	Discount   Money `json:"discount"`
	ServiceFee Money `json:"serviceFee"`
	GrandTotal Money `json:"grandTotal"`

	// DiscountClamped reports that the requested discount fell outside
	// [0, subtotal] and was clamped. Callers log it; it is never fatal.
	DiscountClamped bool `json:"-"`
}

// Aggregate sums line items and applies one global discount and an optional
// service fee. The discount is clamped to [0, subtotal] and the grand total
// never goes negative.
func Aggregate(items []LineItem, discount, serviceFee Money) Totals {
	var subtotal Money
	for _, it := range items {
		subtotal += it.Subtotal
	}
	clamped := false
	if discount < 0 {
		discount = 0
		clamped = true
	}
	if discount > subtotal {
		discount = subtotal
		clamped = true
	}
	if serviceFee < 0 {
		serviceFee = 0
	}
	grand := subtotal + serviceFee - discount
	if grand < 0 {
		grand = 0
	}
	return Totals{
		Subtotal:        subtotal,
		Discount:        discount,
		ServiceFee:      serviceFee,
		GrandTotal:      grand,
		DiscountClamped: clamped,
	}
}
