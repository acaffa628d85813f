package stepgate_test

import (
	"testing"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/draft"
	"github.com/aussiebroadwan/folio/internal/builder/stepgate"
	"github.com/stretchr/testify/require"
)

func TestProfileStepNeedsSavedParent(t *testing.T) {
	t.Parallel()
	g := stepgate.New()

	_, err := g.Advance(stepgate.Conditions{})
	require.ErrorIs(t, err, stepgate.ErrProfileNotSaved)
	require.Equal(t, stepgate.StepProfile, g.Current())

	_, err = g.Advance(stepgate.Conditions{Saved: true, SubmitInFlight: true})
	require.ErrorIs(t, err, stepgate.ErrProfileNotSaved)

	step, err := g.Advance(stepgate.Conditions{Saved: true})
	require.NoError(t, err)
	require.Equal(t, stepgate.StepProjects, step)
}

func TestTemplateGateBlockedUntilSelected(t *testing.T) {
	t.Parallel()

	store := draft.New()
	g := stepgate.At(stepgate.StepTemplate)

	cond := func() stepgate.Conditions {
		return stepgate.Conditions{Saved: true, TemplateSelected: store.Profile().HasTemplate()}
	}

	_, err := g.Advance(cond())
	require.ErrorIs(t, err, stepgate.ErrTemplateRequired)
	require.Equal(t, domain.KindNotPermitted, domain.Classify(err))

	store.SetProfileField(domain.FieldTemplate, "minimal")
	step, err := g.Advance(cond())
	require.NoError(t, err)
	require.Equal(t, stepgate.StepPublish, step)

	_, err = g.Advance(cond())
	require.ErrorIs(t, err, stepgate.ErrAtLastStep)
}

func TestRetreatNeverBlocked(t *testing.T) {
	t.Parallel()
	g := stepgate.At(stepgate.StepSkills)

	step, err := g.Retreat()
	require.NoError(t, err)
	require.Equal(t, stepgate.StepProjects, step)

	step, err = g.Retreat()
	require.NoError(t, err)
	require.Equal(t, stepgate.StepProfile, step)

	_, err = g.Retreat()
	require.ErrorIs(t, err, stepgate.ErrAtFirstStep)
}

func TestAtClamps(t *testing.T) {
	require.Equal(t, stepgate.StepProfile, stepgate.At(-3).Current())
	require.Equal(t, stepgate.StepPublish, stepgate.At(42).Current())
	require.Equal(t, "template", stepgate.StepTemplate.String())
}

func TestCanPublish(t *testing.T) {
	require.ErrorIs(t, stepgate.CanPublish(false), stepgate.ErrNotSaved)
	require.NoError(t, stepgate.CanPublish(true))
	require.NoError(t, stepgate.CanPublish(true))
}

func TestCheckProfileUsername(t *testing.T) {
	t.Parallel()

	err := stepgate.CheckProfile(domain.Profile{Title: "T", Username: "ab"})
	require.True(t, domain.IsValidation(err))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "username")

	require.NoError(t, stepgate.CheckProfile(domain.Profile{Title: "T", Username: "ab_12"}))
}

func TestCheckChildAppliesDefaults(t *testing.T) {
	t.Parallel()

	data, err := stepgate.CheckChild(domain.KindProject, domain.ChildData{Project: &domain.Project{Title: "X"}})
	require.NoError(t, err)
	require.Equal(t, []string{}, data.Project.Technologies)

	_, err = stepgate.CheckChild(domain.KindSkill, domain.ChildData{Skill: &domain.Skill{Name: "Go", Proficiency: 0}})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "proficiency")

	_, err = stepgate.CheckChild(domain.KindProject, domain.ChildData{Project: &domain.Project{}})
	require.True(t, domain.IsValidation(err))
}
