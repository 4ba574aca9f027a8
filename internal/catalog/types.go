package catalog

import (
	"time"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

// Product is one sellable item with its pricing rule tables. Rules live in a
// single JSON column so new models ship without schema changes.
type Product struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Category  string        `json:"category,omitempty"`
	Unit      string        `json:"unit,omitempty"`
	Rules     pricing.Rules `json:"rules"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Finishing is one standalone finishing add-on from the catalog (cutting,
// eyelets, lamination done as a separate line charge).
type Finishing struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category,omitempty"`
	Price    pricing.Money `json:"price"`
	PerUnit  bool          `json:"per_unit"`
	MinQty   int           `json:"min_qty,omitempty"`
	Active   bool          `json:"active"`
}

// Option converts a catalog finishing row into the shape the pricing builder
// consumes.
func (f Finishing) Option() pricing.FinishingOption {
	return pricing.FinishingOption{
		ID:      f.ID,
		Name:    f.Name,
		Price:   f.Price,
		PerUnit: f.PerUnit,
		MinQty:  f.MinQty,
	}
}
