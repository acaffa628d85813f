package draft

import (
	"slices"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
)

func cloneProfile(p domain.Profile) domain.Profile {
	if p.TemplateID != nil {
		v := *p.TemplateID
		p.TemplateID = &v
	}
	return p
}

func cloneProject(p *domain.Project) *domain.Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Technologies = slices.Clone(p.Technologies)
	return &cp
}

func cloneSkill(s *domain.Skill) *domain.Skill {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func cloneChild(c domain.Child) domain.Child {
	c.Project = cloneProject(c.Project)
	c.Skill = cloneSkill(c.Skill)
	return c
}

func cloneChildren(in []domain.Child) []domain.Child {
	out := make([]domain.Child, len(in))
	for i, c := range in {
		out[i] = cloneChild(c)
	}
	return out
}
