package order

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

func strP(s string) *string                 { return &s }
func intP(v int) *int                       { return &v }
func moneyP(v pricing.Money) *pricing.Money { return &v }

func TestNormalizeOrderRequiresIdentity(t *testing.T) {
	var n Normalizer
	if _, err := n.Order(RawOrder{OrderNumber: strP("ORD-1")}); !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord for missing id, got %v", err)
	}
	if _, err := n.Order(RawOrder{ID: "o1"}); !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord for missing order number, got %v", err)
	}
}

func TestNormalizeOrderStatusPrecedence(t *testing.T) {
	var n Normalizer
	o, err := n.Order(RawOrder{
		ID:                    "o1",
		OrderNumber:           strP("ORD-20250901-0001"),
		ProductionStatusSnake: strP("READY"),
		ProductionStatusCamel: strP("PENDING"),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if o.ProductionStatus != ProductionReady {
		t.Fatalf("production_status must win over productionStatus, got %s", o.ProductionStatus)
	}
	if o.PaymentStatus != pricing.PaymentUnpaid {
		t.Fatalf("expected UNPAID default, got %s", o.PaymentStatus)
	}
}

func TestNormalizeOrderDefaultsProductionPending(t *testing.T) {
	var n Normalizer
	o, err := n.Order(RawOrder{ID: "o1", OrderNumberLegacy: strP("ORD-1")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if o.ProductionStatus != ProductionPending {
		t.Fatalf("expected PENDING default, got %s", o.ProductionStatus)
	}
	if o.OrderNumber != "ORD-1" {
		t.Fatalf("legacy orderNumber not picked up: %q", o.OrderNumber)
	}
}

func TestNormalizeOrderPreservesStatusCase(t *testing.T) {
	var n Normalizer
	o, err := n.Order(RawOrder{
		ID:                    "o1",
		OrderNumber:           strP("ORD-1"),
		ProductionStatusSnake: strP("pending"),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if string(o.ProductionStatus) != "pending" {
		t.Fatalf("status case must be preserved verbatim, got %q", o.ProductionStatus)
	}
	found := false
	for _, w := range o.Warnings {
		if w.Field == "production_status" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a case-mismatch warning")
	}
}

func TestNormalizeItemQuantityPrecedence(t *testing.T) {
	var n Normalizer
	cases := []struct {
		raw  RawItem
		want int
	}{
		{RawItem{ID: "i1"}, 1},
		{RawItem{ID: "i1", Qty: intP(5)}, 5},
		{RawItem{ID: "i1", Quantity: intP(3)}, 3},
		{RawItem{ID: "i1", Qty: intP(5), Quantity: intP(3)}, 5},
	}
	for i, tc := range cases {
		item, _ := n.Item(tc.raw)
		if item.Quantity != tc.want {
			t.Fatalf("case %d: expected quantity %d, got %d", i, tc.want, item.Quantity)
		}
	}
}

func TestNormalizeItemSubtotalPrecedence(t *testing.T) {
	var n Normalizer
	item, _ := n.Item(RawItem{ID: "i1", Qty: intP(3), UnitPrice: moneyP(10_000)})
	if item.Subtotal != 30_000 {
		t.Fatalf("expected derived subtotal 30000, got %d", item.Subtotal)
	}

	item, _ = n.Item(RawItem{ID: "i1", Qty: intP(3), UnitPrice: moneyP(10_000), TotalPrice: moneyP(28_000)})
	if item.Subtotal != 28_000 {
		t.Fatalf("expected stored totalPrice to win, got %d", item.Subtotal)
	}
}

func TestNormalizeItemSpecsPrecedence(t *testing.T) {
	var n Normalizer
	dims, _ := json.Marshal(pricing.Specs{VariantInfo: "Bahan Korea 3m x 1m", Inputs: pricing.SpecInputs{Length: 3, Width: 1}})
	metaSpecs := pricing.Specs{Summary: "dari meta"}
	item, _ := n.Item(RawItem{
		ID:         "i1",
		Qty:        intP(1),
		Dimensions: dims,
		Meta:       &RawItemMeta{Specs: &metaSpecs},
	})
	if item.Specs.Description() != "Bahan Korea 3m x 1m" {
		t.Fatalf("dimensions column must win, got %q", item.Specs.Description())
	}

	item, _ = n.Item(RawItem{ID: "i1", Qty: intP(1), Meta: &RawItemMeta{Specs: &metaSpecs}})
	if item.Specs.Summary != "dari meta" {
		t.Fatalf("expected embedded meta specs fallback, got %+v", item.Specs)
	}
}

func TestNormalizeItemNotesMergedIntoSpecs(t *testing.T) {
	var n Normalizer
	item, _ := n.Item(RawItem{ID: "i1", Qty: intP(1), Notes: strP("pakai tali")})
	if item.Specs.Notes != "pakai tali" {
		t.Fatalf("notes must survive into specs, got %q", item.Specs.Notes)
	}
}

func TestNormalizeItemFinishingPrefersCatalogID(t *testing.T) {
	n := Normalizer{FinishingLookup: func(id string) (pricing.FinishingOption, bool) {
		if id == "f1" {
			return pricing.FinishingOption{ID: "f1", Name: "Laminasi Glossy"}, true
		}
		return pricing.FinishingOption{}, false
	}}
	item, warnings := n.Item(RawItem{
		ID:         "i1",
		Qty:        intP(1),
		Finishings: []pricing.FinishingCost{{ID: "f1", Name: "Laminasi Doff", Price: 3000}},
	})
	if item.Finishings[0].Name != "Laminasi Glossy" {
		t.Fatalf("id-based lookup must win, got %q", item.Finishings[0].Name)
	}
	mismatch := false
	for _, w := range warnings {
		if w.Field == "finishings" {
			mismatch = true
		}
	}
	if !mismatch {
		t.Fatal("expected an id/name mismatch warning")
	}
}

func TestNormalizeItemFlagsUnreadablePayload(t *testing.T) {
	var n Normalizer
	item, warnings := n.Item(RawItem{ID: "i1", Qty: intP(2), UnitPrice: moneyP(5_000), PayloadUnreadable: true})
	if item.Subtotal != 10_000 {
		t.Fatalf("scalar columns must still price the item, got %d", item.Subtotal)
	}
	flagged := false
	for _, w := range warnings {
		if w.Field == "payload" {
			flagged = true
		}
	}
	if !flagged {
		t.Fatal("expected an unreadable payload warning")
	}
}

func TestNormalizeOrderSubtotalFromItems(t *testing.T) {
	var n Normalizer
	o, err := n.Order(RawOrder{
		ID:          "o1",
		OrderNumber: strP("ORD-1"),
		Items: []RawItem{
			{ID: "good", Qty: intP(2), UnitPrice: moneyP(10_000)},
			{},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	// The empty record still normalizes (qty 1, zero price) rather than
	// being dropped from the read path.
	if len(o.Items) != 2 {
		t.Fatalf("expected both items kept, got %d", len(o.Items))
	}
	if o.Subtotal != 20_000 {
		t.Fatalf("expected subtotal summed from items, got %d", o.Subtotal)
	}
	noID := false
	for _, w := range o.Warnings {
		if w.Field == "id" {
			noID = true
		}
	}
	if !noID {
		t.Fatal("expected a missing line item id warning")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	var n Normalizer
	raw := RawOrder{
		ID:                    "o1",
		OrderNumber:           strP("ORD-20250901-0002"),
		ProductionStatusCamel: strP("IN_PROGRESS"),
		PaymentStatus:         strP("PARTIAL"),
		Discount:              moneyP(5_000),
		PaidAmount:            moneyP(10_000),
		Items: []RawItem{
			{ID: "i1", Quantity: intP(2), Price: moneyP(25_000), Notes: strP("cetak 2 sisi")},
		},
	}
	first, err := n.Order(raw)
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	second, err := n.Order(RawFromOrder(first))
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	first.Warnings = nil
	second.Warnings = nil
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalize is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
