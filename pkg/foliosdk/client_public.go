package foliosdk

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/folio/pkg/jwtx"
)

// GetPublicPortfolio fetches the published view of a portfolio by slug.
func (c *Client) GetPublicPortfolio(ctx context.Context, slug string) (*PublicPortfolio, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/public/portfolios/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}

	var p PublicPortfolio
	if err := decodeJSON(resp, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// GetJWKS retrieves the JSON Web Key Set used to verify access tokens.
func (c *Client) GetJWKS(ctx context.Context) (jwtx.JWKS, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil)
	if err != nil {
		return jwtx.JWKS{}, err
	}

	var jwks jwtx.JWKS
	if err := decodeJSON(resp, &jwks); err != nil {
		return jwtx.JWKS{}, err
	}

	return jwks, nil
}
