package pricing

// PaymentStatus classifies how much of an order has been paid.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// Payment is the resolved payment state for a grand total and paid amount.
type Payment struct {
	Remaining Money         `json:"remaining"`
	Status    PaymentStatus `json:"status"`
}

// ResolvePayment classifies the payment state. It is idempotent: the same
// inputs always yield the same result. Recording an additional payment is
// modeled as adding the increment to paidAmount and resolving again.
func ResolvePayment(grandTotal, paidAmount Money) Payment {
	if paidAmount < 0 {
		paidAmount = 0
	}
	remaining := grandTotal - paidAmount
	if remaining < 0 {
		remaining = 0
	}
	status := PaymentUnpaid
	switch {
	case paidAmount >= grandTotal:
		status = PaymentPaid
	case paidAmount > 0:
		status = PaymentPartial
	}
	return Payment{Remaining: remaining, Status: status}
}
