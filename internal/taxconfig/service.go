// Package taxconfig serves the hotel's active tax rules to the folio engine.
package taxconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-folio/internal/pricing"
	"github.com/noah-isme/backend-folio/internal/repo"
)

const cacheKey = "folio:taxconfig:active"

var tracer = otel.Tracer("github.com/noah-isme/backend-folio/internal/taxconfig")

// Querier is the read side of the tax_rules table.
type Querier interface {
	ListActiveTaxRules(ctx context.Context) ([]repo.TaxRule, error)
}

// Service loads active tax rules, caching them in Redis.
type Service struct {
	Q     Querier
	Cache *Cache
	Log   zerolog.Logger
}

// Active returns the validated active tax configuration.
func (s *Service) Active(ctx context.Context) (pricing.TaxConfig, error) {
	if s == nil || s.Q == nil {
		return pricing.TaxConfig{}, errors.New("taxconfig service not configured")
	}
	ctx, span := tracer.Start(ctx, "taxconfig.Active")
	defer span.End()

	var cfg pricing.TaxConfig
	hit, err := s.Cache.GetJSON(ctx, cacheKey, &cfg)
	if err != nil {
		s.Log.Warn().Err(err).Msg("tax config cache read failed")
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if hit {
		return cfg, nil
	}

	rows, err := s.Q.ListActiveTaxRules(ctx)
	if err != nil {
		return pricing.TaxConfig{}, fmt.Errorf("list tax rules: %w", err)
	}
	cfg = FromRows(rows)
	if _, err := cfg.Ordered(); err != nil {
		return pricing.TaxConfig{}, err
	}
	if err := s.Cache.SetJSON(ctx, cacheKey, cfg); err != nil {
		s.Log.Warn().Err(err).Msg("tax config cache write failed")
	}
	return cfg, nil
}

// Invalidate drops the cached configuration after rules change.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.Cache.Delete(ctx, cacheKey)
}

// FromRows converts stored rules into the engine configuration.
func FromRows(rows []repo.TaxRule) pricing.TaxConfig {
	cfg := pricing.TaxConfig{Rules: make([]pricing.TaxRule, 0, len(rows))}
	for _, row := range rows {
		cfg.Rules = append(cfg.Rules, pricing.TaxRule{
			TaxType:     row.TaxType,
			DisplayName: row.DisplayName.String,
			Percent:     row.Percent,
			IsActive:    row.IsActive,
		})
	}
	return cfg
}
