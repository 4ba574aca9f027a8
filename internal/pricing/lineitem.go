package pricing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FinishingOption is a catalog add-on applied to a whole line (lamination,
// cutting, stitching). Price is flat unless PerUnit is set; MinQty gates the
// option to lines of at least that quantity.
type FinishingOption struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Price   Money  `json:"price"`
	PerUnit bool   `json:"perUnit,omitempty"`
	MinQty  int    `json:"minQty,omitempty"`
}

// FinishingCost is one applied finishing with its resolved line cost.
type FinishingCost struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Price   Money  `json:"price"`
	PerUnit bool   `json:"perUnit,omitempty"`
	Total   Money  `json:"total"`
}

// SpecInputs preserves the raw selection inputs for redisplay and re-editing.
type SpecInputs struct {
	Length   float64 `json:"length,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Material string  `json:"material,omitempty"`
	Size     string  `json:"size,omitempty"`
}

// Specs is the merged descriptive metadata persisted with a line item. Notes
// are kept here under their own key in addition to the item-level field so
// they survive round-trips through storage.
type Specs struct {
	VariantInfo string     `json:"variant_info,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Finishing   []string   `json:"finishing,omitempty"`
	Inputs      SpecInputs `json:"inputs"`
}

// Description resolves the display text for the specs: variant_info wins,
// then summary, then dimensions derived from the raw inputs.
func (s Specs) Description() string {
	if strings.TrimSpace(s.VariantInfo) != "" {
		return s.VariantInfo
	}
	if strings.TrimSpace(s.Summary) != "" {
		return s.Summary
	}
	if s.Inputs.Length > 0 && s.Inputs.Width > 0 {
		return fmt.Sprintf("%sm x %sm", trimFloat(s.Inputs.Length), trimFloat(s.Inputs.Width))
	}
	return ""
}

// RawItem is the loosely shaped line payload accepted from clients and from
// legacy records. Duplicate fields (qty vs quantity, unitPrice vs price,
// totalPrice vs subtotal) are resolved by the builder, never read directly by
// downstream code.
type RawItem struct {
	ID          string          `json:"id,omitempty"`
	ProductID   string          `json:"productId,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Qty         *int            `json:"qty,omitempty"`
	Quantity    *int            `json:"quantity,omitempty"`
	UnitPrice   *Money          `json:"unitPrice,omitempty"`
	Price       *Money          `json:"price,omitempty"`
	TotalPrice  *Money          `json:"totalPrice,omitempty"`
	Subtotal    *Money          `json:"subtotal,omitempty"`
	Length      float64         `json:"length,omitempty"`
	Width       float64         `json:"width,omitempty"`
	Variant     string          `json:"variant,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Finishings  []FinishingCost `json:"finishings,omitempty"`
	Specs       Specs           `json:"specs,omitempty"`
}

// LineItem is the canonical priced line. Subtotal is always recomputed from
// its parts; a cached subtotal on the raw input is never trusted.
type LineItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   Money           `json:"unitPrice"`
	Subtotal    Money           `json:"subtotal"`
	Length      float64         `json:"length,omitempty"`
	Width       float64         `json:"width,omitempty"`
	Variant     string          `json:"variant,omitempty"`
	Finishings  []FinishingCost `json:"finishings,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Specs       Specs           `json:"specs"`
	Breakdown   Breakdown       `json:"breakdown"`
}

// ResolveQuantity picks the single canonical quantity for a raw line:
// explicit qty wins over explicit quantity, absence of both defaults to 1.
// An explicit non-positive value is rejected, not coerced.
func ResolveQuantity(qty, quantity *int) (int, error) {
	pick := func(v int) (int, error) {
		if v <= 0 {
			return 0, fmt.Errorf("quantity must be positive, got %d: %w", v, ErrInvalidInput)
		}
		return v, nil
	}
	if qty != nil {
		return pick(*qty)
	}
	if quantity != nil {
		return pick(*quantity)
	}
	return 1, nil
}

// ResolveRawUnitPrice backfills a unit price from a legacy line: an explicit
// positive unitPrice wins, then price, then the cached line total divided by
// the canonical quantity, then zero.
func ResolveRawUnitPrice(raw RawItem, qty int) Money {
	if raw.UnitPrice != nil && *raw.UnitPrice > 0 {
		return *raw.UnitPrice
	}
	if raw.Price != nil && *raw.Price > 0 {
		return *raw.Price
	}
	if qty > 0 {
		if raw.TotalPrice != nil && *raw.TotalPrice > 0 {
			return *raw.TotalPrice / Money(qty)
		}
		if raw.Subtotal != nil && *raw.Subtotal > 0 {
			return *raw.Subtotal / Money(qty)
		}
	}
	return 0
}

// BuildLineItem prices a fresh line: the canonical quantity is resolved once
// from the raw payload, the unit price comes from the strategy resolver and
// the subtotal is recomputed from parts.
func BuildLineItem(r Rules, sel Selection, raw RawItem, finishings []FinishingOption) (LineItem, error) {
	qty, err := ResolveQuantity(raw.Qty, raw.Quantity)
	if err != nil {
		return LineItem{}, err
	}
	sel.Qty = qty
	unit, bd, err := ResolveUnitPrice(r, sel)
	if err != nil {
		return LineItem{}, err
	}
	costs, err := applyFinishings(finishings, qty)
	if err != nil {
		return LineItem{}, err
	}
	item := assemble(raw, qty, unit, costs, bd)
	if sel.Length > 0 {
		item.Length = sel.Length
		item.Specs.Inputs.Length = sel.Length
	}
	if sel.Width > 0 {
		item.Width = sel.Width
		item.Specs.Inputs.Width = sel.Width
	}
	if sel.Material != "" && item.Variant == "" {
		item.Variant = sel.Material
	}
	if sel.Material != "" {
		item.Specs.Inputs.Material = sel.Material
	}
	if sel.Size != "" {
		item.Specs.Inputs.Size = sel.Size
	}
	return item, nil
}

// RebuildLineItem reprices a legacy line without a catalog lookup, using the
// documented field precedence for quantity and unit price. The subtotal is
// still recomputed, never copied from the input.
func RebuildLineItem(raw RawItem) (LineItem, error) {
	qty, err := ResolveQuantity(raw.Qty, raw.Quantity)
	if err != nil {
		return LineItem{}, err
	}
	unit := ResolveRawUnitPrice(raw, qty)
	costs := make([]FinishingCost, 0, len(raw.Finishings))
	for _, f := range raw.Finishings {
		costs = append(costs, finishingCost(FinishingOption{ID: f.ID, Name: f.Name, Price: f.Price, PerUnit: f.PerUnit}, qty))
	}
	return assemble(raw, qty, unit, costs, Breakdown{UnitPrice: unit}), nil
}

func applyFinishings(opts []FinishingOption, qty int) ([]FinishingCost, error) {
	costs := make([]FinishingCost, 0, len(opts))
	for _, opt := range opts {
		if opt.MinQty > 0 && qty < opt.MinQty {
			return nil, fmt.Errorf("finishing %q requires at least %d pcs: %w", opt.Name, opt.MinQty, ErrInvalidInput)
		}
		costs = append(costs, finishingCost(opt, qty))
	}
	return costs, nil
}

func finishingCost(opt FinishingOption, qty int) FinishingCost {
	total := opt.Price
	if opt.PerUnit {
		total = opt.Price * Money(qty)
	}
	return FinishingCost{ID: opt.ID, Name: opt.Name, Price: opt.Price, PerUnit: opt.PerUnit, Total: total}
}

// assemble enforces the subtotal invariant: unitPrice x quantity plus every
// finishing cost plus the breakdown's finishing add-on total.
func assemble(raw RawItem, qty int, unit Money, costs []FinishingCost, bd Breakdown) LineItem {
	subtotal := unit * Money(qty)
	for _, c := range costs {
		subtotal += c.Total
	}
	subtotal += bd.FinishingTotal

	item := LineItem{
		ID:          raw.ID,
		ProductID:   raw.ProductID,
		ProductName: raw.ProductName,
		Quantity:    qty,
		UnitPrice:   unit,
		Subtotal:    subtotal,
		Length:      raw.Length,
		Width:       raw.Width,
		Variant:     raw.Variant,
		Finishings:  costs,
		Notes:       raw.Notes,
		Specs:       mergeSpecs(raw, costs),
		Breakdown:   bd,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return item
}

// mergeSpecs folds the raw specs, dimensions, finishing names and the
// free-text note into one specs object so nothing is lost between layers.
func mergeSpecs(raw RawItem, costs []FinishingCost) Specs {
	specs := raw.Specs
	if specs.Inputs.Length == 0 && raw.Length > 0 {
		specs.Inputs.Length = raw.Length
	}
	if specs.Inputs.Width == 0 && raw.Width > 0 {
		specs.Inputs.Width = raw.Width
	}
	names := make([]string, 0, len(costs))
	for _, c := range costs {
		names = append(names, c.Name)
	}
	specs.Finishing = unionStrings(specs.Finishing, names)
	if strings.TrimSpace(raw.Notes) != "" {
		specs.Notes = raw.Notes
	}
	if specs.Summary == "" && specs.VariantInfo == "" && specs.Inputs.Length > 0 && specs.Inputs.Width > 0 {
		specs.Summary = fmt.Sprintf("%sm x %sm", trimFloat(specs.Inputs.Length), trimFloat(specs.Inputs.Width))
	}
	return specs
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
