package foliosdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreatePortfolio creates a new portfolio owned by the session user.
func (s *Session) CreatePortfolio(ctx context.Context, in PortfolioInput) (*Portfolio, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/portfolios", in)
	if err != nil {
		return nil, err
	}

	var p Portfolio
	if err := decodeJSON(resp, &p, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}

	return &p, nil
}

// UpdatePortfolio patches an existing portfolio.
func (s *Session) UpdatePortfolio(ctx context.Context, id string, in PortfolioInput) (*Portfolio, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/api/portfolios/"+url.PathEscape(id), in)
	if err != nil {
		return nil, err
	}

	var p Portfolio
	if err := decodeJSON(resp, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// GetPortfolio fetches a single portfolio.
func (s *Session) GetPortfolio(ctx context.Context, id string) (*Portfolio, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/portfolios/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var p Portfolio
	if err := decodeJSON(resp, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// ListPortfolios lists the session user's portfolios.
func (s *Session) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/portfolios", nil)
	if err != nil {
		return nil, err
	}

	var list []Portfolio
	if err := decodeJSON(resp, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// PublishPortfolio marks a portfolio as published. Publishing twice is not
// an error.
func (s *Session) PublishPortfolio(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/portfolios/"+url.PathEscape(id)+"/publish", struct{}{})
	if err != nil {
		return err
	}

	return checkStatus(resp)
}
