package foliosdk

import (
	"context"
	"net/http"
)

// ListTemplates returns the selectable templates in display order.
func (s *Session) ListTemplates(ctx context.Context) ([]Template, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/templates", nil)
	if err != nil {
		return nil, err
	}

	var list []Template
	if err := decodeJSON(resp, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// Generate asks the AI endpoint for content of the given type. The result
// is opaque text; callers decide where it goes.
func (s *Session) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/ai/generate", req)
	if err != nil {
		return nil, err
	}

	var out GenerateResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
