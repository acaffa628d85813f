package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/folio/pkg/idx"
)

// ChildKind tags which collection a child entity belongs to.
type ChildKind string

const (
	KindProject ChildKind = "project"
	KindSkill   ChildKind = "skill"
)

func (k ChildKind) Valid() bool { return k == KindProject || k == KindSkill }

// Identity is either a provisional token minted locally or a server issued
// id. The Persisted flag keeps the two namespaces apart: the same string in
// both states is two different identities.
type Identity struct {
	ID        string `json:"id"`
	Persisted bool   `json:"persisted"`
}

// Provisional wraps a local token.
func Provisional(tok idx.ID) Identity { return Identity{ID: tok.String()} }

// Persisted wraps a server issued id.
func Persisted(id string) Identity { return Identity{ID: id, Persisted: true} }

func (i Identity) IsProvisional() bool { return !i.Persisted }

func (i Identity) String() string {
	if i.Persisted {
		return "persisted:" + i.ID
	}
	return "provisional:" + i.ID
}

// Project is a portfolio showcase entry.
type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ProjectURL   string   `json:"projectUrl,omitempty"`
	GithubURL    string   `json:"githubUrl,omitempty"`
	Technologies []string `json:"technologies"`
	Featured     bool     `json:"featured"`
}

// Validate returns field name to message for every invalid field, or nil.
func (p Project) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(p.Title) == "" {
		errs["title"] = requiredReason
	}
	for field, v := range map[string]string{
		"imageUrl":   p.ImageURL,
		"projectUrl": p.ProjectURL,
		"githubUrl":  p.GithubURL,
	} {
		if v != "" && !isAbsoluteURL(v) {
			errs[field] = "must be a valid URL"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Normalize fills defaults the form leaves empty.
func (p Project) Normalize() Project {
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	return p
}

const (
	MinProficiency     = 1
	MaxProficiency     = 10
	DefaultProficiency = 5
)

// Skill is a named capability with a 1-10 proficiency score.
type Skill struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Proficiency int    `json:"proficiency"`
}

// ProficiencyOr returns p, or DefaultProficiency when the field was omitted.
// An explicit zero is kept so Validate can reject it.
func ProficiencyOr(p *int) int {
	if p == nil {
		return DefaultProficiency
	}
	return *p
}

// Validate returns field name to message for every invalid field, or nil.
func (s Skill) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(s.Name) == "" {
		errs["name"] = requiredReason
	}
	if s.Proficiency < MinProficiency || s.Proficiency > MaxProficiency {
		errs["proficiency"] = "must be between 1 and 10"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Child is one entry of the ordered project or skill collection. Exactly one
// of Project and Skill is set, matching Kind.
type Child struct {
	Kind        ChildKind `json:"kind"`
	Identity    Identity  `json:"identity"`
	PortfolioID string    `json:"portfolioId"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`

	Project *Project `json:"project,omitempty"`
	Skill   *Skill   `json:"skill,omitempty"`
}

// ChildData is the kind-specific payload for a new child.
type ChildData struct {
	Project *Project `json:"project,omitempty"`
	Skill   *Skill   `json:"skill,omitempty"`
}

// Validate checks that the payload matches kind and is itself valid.
func (d ChildData) Validate(kind ChildKind) map[string]string {
	switch kind {
	case KindProject:
		if d.Project == nil || d.Skill != nil {
			return map[string]string{"project": requiredReason}
		}
		return d.Project.Validate()
	case KindSkill:
		if d.Skill == nil || d.Project != nil {
			return map[string]string{"skill": requiredReason}
		}
		return d.Skill.Validate()
	}
	return map[string]string{"kind": "must be project or skill"}
}

// Normalize applies per-kind defaults.
func (d ChildData) Normalize() ChildData {
	if d.Project != nil {
		p := d.Project.Normalize()
		d.Project = &p
	}
	return d
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
