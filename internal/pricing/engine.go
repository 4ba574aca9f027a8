package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Money represents a monetary value in whole rupiah.
type Money = int64

// Model tags the strategy used to compute a product's unit price.
type Model string

const (
	ModelUnit     Model = "UNIT"
	ModelLinear   Model = "LINEAR"
	ModelArea     Model = "AREA"
	ModelMatrix   Model = "MATRIX"
	ModelAdvanced Model = "ADVANCED"
)

// ParseModel validates a stored pricing model tag.
func ParseModel(s string) (Model, error) {
	switch Model(strings.TrimSpace(s)) {
	case ModelUnit, ModelLinear, ModelArea, ModelMatrix, ModelAdvanced:
		return Model(strings.TrimSpace(s)), nil
	}
	return "", fmt.Errorf("unknown pricing model %q: %w", s, ErrInvalidInput)
}

// MatrixCell is one entry of a material x size price table.
type MatrixCell struct {
	Material string `json:"material"`
	Size     string `json:"size"`
	Price    Money  `json:"price"`
}

// Tier maps a quantity range to a wholesale unit price. MaxQty zero means the
// range is open-ended. Tiers are ascending and non-overlapping.
type Tier struct {
	MinQty int   `json:"minQty"`
	MaxQty int   `json:"maxQty"`
	Price  Money `json:"price"`
}

// GroupTypeTextInput marks finishing groups whose price add-on applies per
// unit and must be multiplied by quantity.
const GroupTypeTextInput = "text_input"

// FinishingGroupOption is one selectable add-on inside a finishing group.
type FinishingGroupOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	PriceAdd Money  `json:"priceAdd"`
}

// FinishingGroup describes a configurable add-on group on an advanced
// product (lamination type, eyelets, custom text, ...).
type FinishingGroup struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Type     string                 `json:"type"`
	Required bool                   `json:"required"`
	Options  []FinishingGroupOption `json:"options"`
}

// Rules carries the pricing rule tables of one product. It is the only
// product knowledge the resolver needs.
type Rules struct {
	Model     Model            `json:"model"`
	BasePrice Money            `json:"basePrice"`
	Matrix    []MatrixCell     `json:"matrix,omitempty"`
	Tiers     []Tier           `json:"tiers,omitempty"`
	MinOrder  int              `json:"minOrder,omitempty"`
	Finishing []FinishingGroup `json:"finishing,omitempty"`
}

// FinishingSelection names one chosen option inside a finishing group.
type FinishingSelection struct {
	GroupID  string `json:"groupId"`
	OptionID string `json:"optionId,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Selection carries the caller's inputs for one resolution: the canonical
// quantity, dimensions in meters, the chosen material/size variant and the
// chosen finishing group options.
type Selection struct {
	Qty       int
	Length    float64
	Width     float64
	Material  string
	Size      string
	Finishing []FinishingSelection
}

// Breakdown explains how a unit price was assembled. FinishingTotal is an
// absolute amount for the whole line: per-unit add-ons are already
// multiplied by quantity.
type Breakdown struct {
	Model          Model  `json:"model"`
	UnitPrice      Money  `json:"unitPrice"`
	TierPrice      Money  `json:"tierPrice,omitempty"`
	FinishingTotal Money  `json:"finishingTotal,omitempty"`
	Dimensions     string `json:"dimensions,omitempty"`
}

// ResolveUnitPrice computes the unit price for the product rules and
// selection. The returned breakdown carries the finishing add-on total for
// advanced products; callers add it on top of unitPrice x quantity.
func ResolveUnitPrice(r Rules, sel Selection) (Money, Breakdown, error) {
	if sel.Qty <= 0 {
		return 0, Breakdown{}, fmt.Errorf("quantity must be positive, got %d: %w", sel.Qty, ErrInvalidInput)
	}
	bd := Breakdown{Model: r.Model}
	switch r.Model {
	case ModelUnit:
		bd.UnitPrice = r.BasePrice
	case ModelLinear:
		if !positiveDim(sel.Length) {
			return 0, Breakdown{}, fmt.Errorf("length must be positive: %w", ErrInvalidInput)
		}
		bd.UnitPrice = roundRupiah(float64(r.BasePrice) * sel.Length)
		bd.Dimensions = formatDims(sel.Length, 0)
	case ModelArea:
		if !positiveDim(sel.Length) || !positiveDim(sel.Width) {
			return 0, Breakdown{}, fmt.Errorf("length and width must be positive: %w", ErrInvalidInput)
		}
		bd.UnitPrice = roundRupiah(float64(r.BasePrice) * sel.Length * sel.Width)
		bd.Dimensions = formatDims(sel.Length, sel.Width)
	case ModelMatrix:
		price, ok := matrixLookup(r.Matrix, sel.Material, sel.Size)
		if !ok {
			return 0, Breakdown{}, fmt.Errorf("no price for material %q size %q: %w", sel.Material, sel.Size, ErrPriceNotFound)
		}
		bd.UnitPrice = price
	case ModelAdvanced:
		tierPrice, err := tierLookup(r, sel.Qty)
		if err != nil {
			return 0, Breakdown{}, err
		}
		finishing, err := finishingTotal(r.Finishing, sel.Finishing, sel.Qty)
		if err != nil {
			return 0, Breakdown{}, err
		}
		bd.UnitPrice = tierPrice
		bd.TierPrice = tierPrice
		bd.FinishingTotal = finishing
	default:
		return 0, Breakdown{}, fmt.Errorf("unknown pricing model %q: %w", r.Model, ErrInvalidInput)
	}
	return bd.UnitPrice, bd, nil
}

func matrixLookup(cells []MatrixCell, material, size string) (Money, bool) {
	for _, c := range cells {
		if c.Material == material && c.Size == size {
			return c.Price, true
		}
	}
	return 0, false
}

func tierLookup(r Rules, qty int) (Money, error) {
	if r.MinOrder > 0 && qty < r.MinOrder {
		return 0, fmt.Errorf("quantity %d under minimum order %d: %w", qty, r.MinOrder, ErrBelowMinimumOrder)
	}
	if len(r.Tiers) == 0 {
		return 0, fmt.Errorf("no wholesale tiers configured: %w", ErrPriceNotFound)
	}
	for _, t := range r.Tiers {
		if qty >= t.MinQty && (t.MaxQty == 0 || qty <= t.MaxQty) {
			return t.Price, nil
		}
	}
	if qty < r.Tiers[0].MinQty {
		return 0, fmt.Errorf("quantity %d under smallest tier minimum %d: %w", qty, r.Tiers[0].MinQty, ErrBelowMinimumOrder)
	}
	return 0, fmt.Errorf("no tier covers quantity %d: %w", qty, ErrPriceNotFound)
}

// finishingTotal sums the chosen option of each finishing group. A
// text_input group's price add is per unit and is multiplied by quantity;
// other group types contribute a flat add. Required groups without a
// selection fail closed.
func finishingTotal(groups []FinishingGroup, selected []FinishingSelection, qty int) (Money, error) {
	chosen := make(map[string]FinishingSelection, len(selected))
	for _, s := range selected {
		chosen[s.GroupID] = s
	}
	var total Money
	for _, g := range groups {
		sel, ok := chosen[g.ID]
		if !ok {
			if g.Required {
				return 0, fmt.Errorf("finishing group %q requires a selection: %w", g.Label, ErrInvalidInput)
			}
			continue
		}
		opt, ok := groupOption(g, sel)
		if !ok {
			return 0, fmt.Errorf("finishing group %q has no option %q: %w", g.Label, sel.OptionID, ErrInvalidInput)
		}
		if g.Type == GroupTypeTextInput {
			total += opt.PriceAdd * Money(qty)
		} else {
			total += opt.PriceAdd
		}
	}
	return total, nil
}

func groupOption(g FinishingGroup, sel FinishingSelection) (FinishingGroupOption, bool) {
	for _, opt := range g.Options {
		if sel.OptionID != "" && opt.ID == sel.OptionID {
			return opt, true
		}
		if sel.OptionID == "" && sel.Label != "" && opt.Label == sel.Label {
			return opt, true
		}
	}
	return FinishingGroupOption{}, false
}

func positiveDim(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}

func roundRupiah(v float64) Money {
	return Money(math.Round(v))
}

func formatDims(length, width float64) string {
	if width > 0 {
		return fmt.Sprintf("%sm x %sm", trimFloat(length), trimFloat(width))
	}
	return fmt.Sprintf("%sm", trimFloat(length))
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
