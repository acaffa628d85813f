package service

import (
	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
)

func profileFromPortfolio(p *foliosdk.Portfolio) domain.Profile {
	out := domain.Profile{
		Title:       p.Title,
		Description: p.Description,
		Username:    p.Slug,
	}
	if p.TemplateID != "" {
		tid := p.TemplateID
		out.TemplateID = &tid
	}
	return out
}

func projectChild(p *foliosdk.Project) domain.Child {
	return domain.Child{
		Kind:        domain.KindProject,
		Identity:    domain.Persisted(p.ID),
		PortfolioID: p.PortfolioID,
		Order:       p.Order,
		CreatedAt:   p.CreatedAt,
		Project: &domain.Project{
			Title:        p.Title,
			Description:  p.Description,
			ImageURL:     p.ImageURL,
			ProjectURL:   p.ProjectURL,
			GithubURL:    p.GithubURL,
			Technologies: p.Technologies,
			Featured:     p.Featured,
		},
	}
}

func skillChild(s *foliosdk.Skill) domain.Child {
	return domain.Child{
		Kind:        domain.KindSkill,
		Identity:    domain.Persisted(s.ID),
		PortfolioID: s.PortfolioID,
		Order:       s.Order,
		CreatedAt:   s.CreatedAt,
		Skill: &domain.Skill{
			Name:        s.Name,
			Category:    s.Category,
			Proficiency: s.Proficiency,
		},
	}
}

func projectInput(p *domain.Project, order int) foliosdk.ProjectInput {
	return foliosdk.ProjectInput{
		Title:        p.Title,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		ProjectURL:   p.ProjectURL,
		GithubURL:    p.GithubURL,
		Technologies: p.Technologies,
		Featured:     p.Featured,
		Order:        order,
	}
}

func skillInput(s *domain.Skill, order int) foliosdk.SkillInput {
	return foliosdk.SkillInput{
		Name:        s.Name,
		Category:    s.Category,
		Proficiency: s.Proficiency,
		Order:       order,
	}
}

func templateFromSDK(t foliosdk.Template) domain.Template {
	return domain.Template{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		PreviewImage: t.PreviewImage,
		IsPremium:    t.IsPremium,
	}
}

func portfolioFromSDK(p foliosdk.Portfolio) domain.Portfolio {
	return domain.Portfolio{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Slug:        p.Slug,
		TemplateID:  p.TemplateID,
		IsPublished: p.IsPublished,
	}
}
