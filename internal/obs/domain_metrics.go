package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters for the POS pipeline. Registered on the default registerer
// so the /metrics endpoint picks them up without extra wiring.
var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kasir",
		Name:      "orders_created_total",
		Help:      "Orders persisted through checkout.",
	})
	pricingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Name:      "pricing_errors_total",
		Help:      "Pricing resolution failures by kind.",
	}, []string{"kind"})
	discountClamped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kasir",
		Name:      "discount_clamped_total",
		Help:      "Checkouts whose discount was clamped into the valid range.",
	})
	normalizationWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Name:      "normalization_warnings_total",
		Help:      "Tolerated anomalies found while reading stored orders.",
	}, []string{"field"})
	ordersSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kasir",
		Name:      "orders_skipped_total",
		Help:      "Stored order records too malformed to normalize.",
	})
	draftClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Name:      "draft_claims_total",
		Help:      "Draft claim attempts by outcome.",
	}, []string{"outcome"})
)

// IncOrderCreated counts a successfully persisted checkout.
func IncOrderCreated() { ordersCreated.Inc() }

// IncPricingError counts a pricing failure with its kind label.
func IncPricingError(kind string) { pricingErrors.WithLabelValues(kind).Inc() }

// IncDiscountClamped counts a discount that had to be clamped.
func IncDiscountClamped() { discountClamped.Inc() }

// IncNormalizationWarning counts a tolerated anomaly on the given field.
func IncNormalizationWarning(field string) { normalizationWarnings.WithLabelValues(field).Inc() }

// IncOrderSkipped counts a record the normalizer refused.
func IncOrderSkipped() { ordersSkipped.Inc() }

// IncDraftClaim counts a draft claim attempt; outcome is "won", "lost" or "error".
func IncDraftClaim(outcome string) { draftClaims.WithLabelValues(outcome).Inc() }
