package service

import (
	"context"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
)

// CatalogueService serves read-only lookups the wizard and dashboard need.
type CatalogueService struct {
	Upstream Connector
	Public   PublicAPI
}

// ListTemplates returns the templates in catalogue order.
func (s *CatalogueService) ListTemplates(ctx context.Context, sc SessionContext) ([]domain.Template, error) {
	list, err := s.Upstream(sc).ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Template, len(list))
	for i, t := range list {
		out[i] = templateFromSDK(t)
	}
	return out, nil
}

// ListPortfolios returns the caller's portfolios for the dashboard.
func (s *CatalogueService) ListPortfolios(ctx context.Context, sc SessionContext) ([]domain.Portfolio, error) {
	list, err := s.Upstream(sc).ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Portfolio, len(list))
	for i, p := range list {
		out[i] = portfolioFromSDK(p)
	}
	return out, nil
}

// PublicPortfolio returns the anonymous view of a published portfolio.
func (s *CatalogueService) PublicPortfolio(ctx context.Context, slug string) (*foliosdk.PublicPortfolio, error) {
	if slug == "" {
		return nil, domain.ErrNotFound
	}
	return s.Public.GetPublicPortfolio(ctx, slug)
}
