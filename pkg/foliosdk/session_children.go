package foliosdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListProjects returns the projects of a portfolio in server order.
func (s *Session) ListProjects(ctx context.Context, portfolioID string) ([]Project, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/portfolios/"+url.PathEscape(portfolioID)+"/projects", nil)
	if err != nil {
		return nil, err
	}

	var list []Project
	if err := decodeJSON(resp, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// CreateProject adds a project to a persisted portfolio.
func (s *Session) CreateProject(ctx context.Context, portfolioID string, in ProjectInput) (*Project, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/portfolios/"+url.PathEscape(portfolioID)+"/projects", in)
	if err != nil {
		return nil, err
	}

	var p Project
	if err := decodeJSON(resp, &p, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}

	return &p, nil
}

// DeleteProject removes a persisted project.
func (s *Session) DeleteProject(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	return checkStatus(resp)
}

// ListSkills returns the skills of a portfolio in server order.
func (s *Session) ListSkills(ctx context.Context, portfolioID string) ([]Skill, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/portfolios/"+url.PathEscape(portfolioID)+"/skills", nil)
	if err != nil {
		return nil, err
	}

	var list []Skill
	if err := decodeJSON(resp, &list); err != nil {
		return nil, err
	}

	return list, nil
}

// CreateSkill adds a skill to a persisted portfolio.
func (s *Session) CreateSkill(ctx context.Context, portfolioID string, in SkillInput) (*Skill, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/portfolios/"+url.PathEscape(portfolioID)+"/skills", in)
	if err != nil {
		return nil, err
	}

	var sk Skill
	if err := decodeJSON(resp, &sk, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}

	return &sk, nil
}

// DeleteSkill removes a persisted skill.
func (s *Session) DeleteSkill(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/skills/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	return checkStatus(resp)
}
