package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/pricing"
)

const (
	productsCacheKey   = "catalog:products"
	finishingsCacheKey = "catalog:finishings"
)

// Queries is the persistence surface the service needs. *Store satisfies it.
type Queries interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, category string, includeInactive bool) ([]Product, error)
	GetFinishing(ctx context.Context, id string) (Finishing, error)
	ListFinishings(ctx context.Context) ([]Finishing, error)
	CreateFinishing(ctx context.Context, f Finishing) (Finishing, error)
}

// Service owns catalog reads, admin writes and the read-through cache.
type Service struct {
	Queries Queries
	Cache   *Cache
	Logger  zerolog.Logger
}

// Products lists active products, served from cache when the unfiltered list
// is requested.
func (s *Service) Products(ctx context.Context, category string) ([]Product, error) {
	if category == "" {
		var cached []Product
		if hit, err := s.Cache.GetJSON(ctx, productsCacheKey, &cached); err != nil {
			s.Logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if hit {
			return cached, nil
		}
	}
	products, err := s.Queries.ListProducts(ctx, category, false)
	if err != nil {
		return nil, err
	}
	if category == "" {
		if err := s.Cache.SetJSON(ctx, productsCacheKey, products); err != nil {
			s.Logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return products, nil
}

// Product loads one product with its validated pricing rules.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	p, err := s.Queries.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if _, err := pricing.ParseModel(string(p.Rules.Model)); err != nil {
		return Product{}, fmt.Errorf("product %s: %w", p.ID, err)
	}
	return p, nil
}

// CreateProduct validates the rules payload and persists a new product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if err := validateRules(p.Rules); err != nil {
		return Product{}, err
	}
	created, err := s.Queries.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// UpdateProduct validates and replaces a product.
func (s *Service) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if err := validateRules(p.Rules); err != nil {
		return Product{}, err
	}
	updated, err := s.Queries.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// DeactivateProduct hides a product from checkout without deleting history.
func (s *Service) DeactivateProduct(ctx context.Context, id string) (Product, error) {
	p, err := s.Queries.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Active = false
	updated, err := s.Queries.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Finishings lists active finishing options, cache first.
func (s *Service) Finishings(ctx context.Context) ([]Finishing, error) {
	var cached []Finishing
	if hit, err := s.Cache.GetJSON(ctx, finishingsCacheKey, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cached, nil
	}
	finishings, err := s.Queries.ListFinishings(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, finishingsCacheKey, finishings); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return finishings, nil
}

// CreateFinishing persists a new finishing option.
func (s *Service) CreateFinishing(ctx context.Context, f Finishing) (Finishing, error) {
	created, err := s.Queries.CreateFinishing(ctx, f)
	if err != nil {
		return Finishing{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// FinishingLookup returns the id-based resolver the order normalizer and the
// checkout builder use to cross-check finishing references.
func (s *Service) FinishingLookup(ctx context.Context) func(id string) (pricing.FinishingOption, bool) {
	return func(id string) (pricing.FinishingOption, bool) {
		f, err := s.Queries.GetFinishing(ctx, id)
		if err != nil {
			return pricing.FinishingOption{}, false
		}
		return f.Option(), true
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx, productsCacheKey, finishingsCacheKey); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

// validateRules rejects rule tables the resolver could never price.
func validateRules(r pricing.Rules) error {
	if _, err := pricing.ParseModel(string(r.Model)); err != nil {
		return err
	}
	switch r.Model {
	case pricing.ModelMatrix:
		if len(r.Matrix) == 0 {
			return fmt.Errorf("matrix model needs at least one cell: %w", pricing.ErrInvalidInput)
		}
	case pricing.ModelAdvanced:
		if len(r.Tiers) == 0 {
			return fmt.Errorf("advanced model needs at least one tier: %w", pricing.ErrInvalidInput)
		}
		prevMax := 0
		for i, tier := range r.Tiers {
			if tier.MinQty <= 0 || (tier.MaxQty != 0 && tier.MaxQty < tier.MinQty) {
				return fmt.Errorf("tier %d has an invalid range: %w", i, pricing.ErrInvalidInput)
			}
			if i > 0 && (prevMax == 0 || tier.MinQty <= prevMax) {
				return fmt.Errorf("tier %d overlaps the previous tier: %w", i, pricing.ErrInvalidInput)
			}
			prevMax = tier.MaxQty
		}
	default:
		if r.BasePrice < 0 {
			return fmt.Errorf("base price cannot be negative: %w", pricing.ErrInvalidInput)
		}
	}
	return nil
}
