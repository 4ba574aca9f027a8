package pricing

import "errors"

var (
	// ErrInvalidInput is returned for non-positive quantities or dimensions and
	// for missing required selections. Invalid values are rejected, never
	// silently coerced.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrPriceNotFound indicates no matrix cell matched the requested
	// material and size pair.
	ErrPriceNotFound = errors.New("pricing: no matching price")
	// ErrBelowMinimumOrder indicates the requested quantity is under the
	// product's minimum order. The minimum is a hard gate, quantities are not
	// rounded up.
	ErrBelowMinimumOrder = errors.New("pricing: quantity below minimum order")
)
