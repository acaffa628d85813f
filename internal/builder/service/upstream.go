package service

import (
	"context"

	"github.com/aussiebroadwan/folio/pkg/foliosdk"
)

// SessionContext identifies the caller. It is passed explicitly to every
// operation; services never read ambient auth state.
type SessionContext struct {
	UserID      string
	BearerToken string
}

// PortfolioAPI is the slice of the upstream API the builder drives on the
// caller's behalf. *foliosdk.Session implements it.
type PortfolioAPI interface {
	CreatePortfolio(ctx context.Context, in foliosdk.PortfolioInput) (*foliosdk.Portfolio, error)
	UpdatePortfolio(ctx context.Context, id string, in foliosdk.PortfolioInput) (*foliosdk.Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (*foliosdk.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]foliosdk.Portfolio, error)
	PublishPortfolio(ctx context.Context, id string) error

	ListProjects(ctx context.Context, portfolioID string) ([]foliosdk.Project, error)
	CreateProject(ctx context.Context, portfolioID string, in foliosdk.ProjectInput) (*foliosdk.Project, error)
	DeleteProject(ctx context.Context, id string) error

	ListSkills(ctx context.Context, portfolioID string) ([]foliosdk.Skill, error)
	CreateSkill(ctx context.Context, portfolioID string, in foliosdk.SkillInput) (*foliosdk.Skill, error)
	DeleteSkill(ctx context.Context, id string) error

	ListTemplates(ctx context.Context) ([]foliosdk.Template, error)
	Generate(ctx context.Context, req foliosdk.GenerateRequest) (*foliosdk.GenerateResponse, error)
}

// PublicAPI serves anonymous reads.
type PublicAPI interface {
	GetPublicPortfolio(ctx context.Context, slug string) (*foliosdk.PublicPortfolio, error)
}

// Connector binds the upstream API to a caller.
type Connector func(sc SessionContext) PortfolioAPI

// SDKConnector forwards the caller's bearer token through the SDK client.
func SDKConnector(c *foliosdk.Client) Connector {
	return func(sc SessionContext) PortfolioAPI {
		return c.Session(sc.BearerToken)
	}
}

var _ PortfolioAPI = (*foliosdk.Session)(nil)
var _ PublicAPI = (*foliosdk.Client)(nil)
