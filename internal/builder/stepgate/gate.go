// Package stepgate enforces the linear wizard: Profile, Projects, Skills,
// Template, Publish. Steps cannot be skipped and moving between them never
// touches draft data.
package stepgate

import (
	"fmt"
	"sync"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
)

type Step int

const (
	StepProfile Step = iota
	StepProjects
	StepSkills
	StepTemplate
	StepPublish
)

// LastStep is the final index.
const LastStep = StepPublish

var stepNames = [...]string{"profile", "projects", "skills", "template", "publish"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

var (
	ErrAtLastStep       = fmt.Errorf("stepgate: already at the last step: %w", domain.ErrNotPermitted)
	ErrAtFirstStep      = fmt.Errorf("stepgate: already at the first step: %w", domain.ErrNotPermitted)
	ErrProfileNotSaved  = fmt.Errorf("stepgate: save your profile before continuing: %w", domain.ErrNotPermitted)
	ErrTemplateRequired = fmt.Errorf("stepgate: choose a template before continuing: %w", domain.ErrNotPermitted)
	ErrNotSaved         = fmt.Errorf("stepgate: portfolio must be saved before publishing: %w", domain.ErrNotPermitted)
)

// Conditions is what the gate needs to know about the draft to leave the
// current step.
type Conditions struct {
	Saved            bool
	SubmitInFlight   bool
	TemplateSelected bool
}

// Gate holds the current step. Safe for concurrent use.
type Gate struct {
	mu      sync.Mutex
	current Step
}

// New returns a gate on the profile step.
func New() *Gate { return &Gate{} }

// At returns a gate positioned on step, clamped to the valid range. Used
// when rebuilding a session from cache.
func At(step Step) *Gate {
	return &Gate{current: min(max(step, StepProfile), LastStep)}
}

// Current returns the active step.
func (g *Gate) Current() Step {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Advance moves forward one step if the current step's exit condition holds.
func (g *Gate) Advance(c Conditions) (Step, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current >= LastStep {
		return g.current, ErrAtLastStep
	}

	switch g.current {
	case StepProfile:
		if !c.Saved || c.SubmitInFlight {
			return g.current, ErrProfileNotSaved
		}
	case StepTemplate:
		if !c.TemplateSelected {
			return g.current, ErrTemplateRequired
		}
	}

	g.current++
	return g.current, nil
}

// Retreat moves back one step. Always allowed except from the first step.
func (g *Gate) Retreat() (Step, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current <= StepProfile {
		return g.current, ErrAtFirstStep
	}
	g.current--
	return g.current, nil
}

// CanPublish allows publishing only once the portfolio has a server
// identity. Publishing again is fine.
func CanPublish(saved bool) error {
	if !saved {
		return ErrNotSaved
	}
	return nil
}

// CheckProfile validates the profile form before it may be submitted.
// The returned error is a *domain.ValidationError.
func CheckProfile(p domain.Profile) error {
	return domain.Invalid(p.Validate())
}

// CheckChild validates a child payload before it is added, after applying
// defaults. The normalised payload is returned for the caller to store.
func CheckChild(kind domain.ChildKind, data domain.ChildData) (domain.ChildData, error) {
	data = data.Normalize()
	if err := domain.Invalid(data.Validate(kind)); err != nil {
		return domain.ChildData{}, err
	}
	return data, nil
}
