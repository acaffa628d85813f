package http

import (
	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/service"
)

// CreateDraftRequest starts a wizard. Leave PortfolioID empty for a new
// portfolio.
type CreateDraftRequest struct {
	PortfolioID string `json:"portfolioId,omitempty" example:"01J9ZK3Q4M7X8Y2B5C6D7E8F9G"`
}

// ListDraftsResponse lists the caller's open drafts.
type ListDraftsResponse struct {
	Drafts []string `json:"drafts"`
}

// ProfileRequest maps field names (title, description, bio, username,
// template) to values.
type ProfileRequest map[string]string

// TemplateRequest selects a template. An empty id clears the choice.
type TemplateRequest struct {
	TemplateID string `json:"templateId"`
}

// ProjectRequest is the body for adding a project.
type ProjectRequest struct {
	Title        string   `json:"title" example:"Folio"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ProjectURL   string   `json:"projectUrl,omitempty"`
	GithubURL    string   `json:"githubUrl,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Featured     bool     `json:"featured,omitempty"`
}

func (p ProjectRequest) data() domain.ChildData {
	return domain.ChildData{Project: &domain.Project{
		Title:        p.Title,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		ProjectURL:   p.ProjectURL,
		GithubURL:    p.GithubURL,
		Technologies: p.Technologies,
		Featured:     p.Featured,
	}}
}

// SkillRequest is the body for adding a skill. Proficiency defaults to 5
// when omitted; an explicit value must be between 1 and 10.
type SkillRequest struct {
	Name        string `json:"name" example:"Go"`
	Category    string `json:"category,omitempty"`
	Proficiency *int   `json:"proficiency,omitempty" example:"7"`
}

func (s SkillRequest) data() domain.ChildData {
	return domain.ChildData{Skill: &domain.Skill{
		Name:        s.Name,
		Category:    s.Category,
		Proficiency: domain.ProficiencyOr(s.Proficiency),
	}}
}

// ChildResponse is the draft after an add, plus the child that was added.
type ChildResponse struct {
	Draft service.View `json:"draft"`
	Child domain.Child `json:"child"`
}

// GenerateRequest asks for generated content of one type, e.g. "bio".
type GenerateRequest struct {
	Type string `json:"type" example:"bio"`
}

// GenerateResponse carries the generated text and the draft afterwards.
type GenerateResponse struct {
	Content string       `json:"content"`
	Draft   service.View `json:"draft"`
}

// HealthResponse is returned by the health checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency on /readyz.
type HealthChecks struct {
	Database   string `json:"database"`
	DraftCache string `json:"draftCache"`
	Keys       string `json:"keys"`
}
