package draft_test

import (
	"sync"
	"testing"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/draft"
	"github.com/stretchr/testify/require"
)

func project(title string) domain.ChildData {
	return domain.ChildData{Project: &domain.Project{Title: title, Technologies: []string{"go"}}}
}

func persistedProject(id string, order int) domain.Child {
	return domain.Child{
		Kind:        domain.KindProject,
		Identity:    domain.Persisted(id),
		PortfolioID: "p1",
		Order:       order,
		Project:     &domain.Project{Title: id},
	}
}

func ids(children []domain.Child) []string {
	out := make([]string, len(children))
	for i, c := range children {
		out[i] = c.Identity.ID
	}
	return out
}

func TestAddProvisionalTokensAndOrder(t *testing.T) {
	t.Parallel()
	s := draft.New()

	seen := map[domain.Identity]bool{}
	for i := range 50 {
		c, snap, err := s.AddProvisional(domain.KindProject, project("p"))
		require.NoError(t, err)
		require.True(t, c.Identity.IsProvisional())
		require.Empty(t, c.PortfolioID)
		require.Equal(t, i, c.Order)
		require.False(t, seen[c.Identity])
		seen[c.Identity] = true
		require.Len(t, snap.Projects, i+1)
		require.Equal(t, c.Identity, snap.Projects[i].Identity)
	}
	require.Empty(t, s.Snapshot().Skills)
}

func TestOrderIsLengthAtAdd(t *testing.T) {
	t.Parallel()
	s := draft.New()

	a, _, _ := s.AddProvisional(domain.KindSkill, domain.ChildData{Skill: &domain.Skill{Name: "a", Proficiency: 5}})
	_, _, _ = s.AddProvisional(domain.KindSkill, domain.ChildData{Skill: &domain.Skill{Name: "b", Proficiency: 5}})
	_, _, err := s.Remove(domain.KindSkill, a.Identity)
	require.NoError(t, err)

	c, snap, err := s.AddProvisional(domain.KindSkill, domain.ChildData{Skill: &domain.Skill{Name: "c", Proficiency: 5}})
	require.NoError(t, err)

	// removal does not renumber, so orders can repeat
	require.Equal(t, 1, c.Order)
	require.Equal(t, 1, snap.Skills[0].Order)
	require.Equal(t, []string{snap.Skills[0].Identity.ID, c.Identity.ID}, ids(snap.Skills))
}

func TestAppendPersistedRejectsDuplicates(t *testing.T) {
	t.Parallel()
	s := draft.New()

	_, err := s.AppendPersisted(domain.KindProject, persistedProject("x1", 0))
	require.NoError(t, err)

	before := s.Snapshot()
	_, err = s.AppendPersisted(domain.KindProject, persistedProject("x1", 1))
	require.ErrorIs(t, err, draft.ErrDuplicateIdentity)
	require.Equal(t, before, s.Snapshot())

	// same string in the skill collection is a different collection
	_, err = s.AppendPersisted(domain.KindSkill, domain.Child{Identity: domain.Persisted("x1"), Skill: &domain.Skill{Name: "x"}})
	require.NoError(t, err)

	_, err = s.AppendPersisted(domain.KindProject, domain.Child{Identity: domain.Identity{ID: "temp-1"}})
	require.ErrorIs(t, err, draft.ErrNotPersisted)
}

func TestRemoveAndRestoreAtOriginalIndex(t *testing.T) {
	t.Parallel()
	s := draft.New()

	for i, id := range []string{"a", "b", "c"} {
		_, err := s.AppendPersisted(domain.KindProject, persistedProject(id, i))
		require.NoError(t, err)
	}

	rm, snap, err := s.Remove(domain.KindProject, domain.Persisted("b"))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids(snap.Projects))

	snap, err = s.Restore(rm)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids(snap.Projects))

	_, err = s.Restore(rm)
	require.ErrorIs(t, err, draft.ErrDuplicateIdentity)
}

func TestRestoreAfterCollectionShrinks(t *testing.T) {
	t.Parallel()
	s := draft.New()

	for i, id := range []string{"a", "b", "c"} {
		_, err := s.AppendPersisted(domain.KindProject, persistedProject(id, i))
		require.NoError(t, err)
	}

	rm, _, err := s.Remove(domain.KindProject, domain.Persisted("c"))
	require.NoError(t, err)
	_, _, err = s.Remove(domain.KindProject, domain.Persisted("b"))
	require.NoError(t, err)

	snap, err := s.Restore(rm)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids(snap.Projects))
}

func TestOverlappingRestoresKeepOriginalOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remove  []string
		restore []string
	}{
		{name: "restore in removal order", remove: []string{"b", "c"}, restore: []string{"b", "c"}},
		{name: "restore in reverse order", remove: []string{"b", "c"}, restore: []string{"c", "b"}},
		{name: "ends and middle", remove: []string{"a", "d", "b"}, restore: []string{"d", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := draft.New()
			s.LoadExisting(domain.Profile{}, []domain.Child{
				persistedProject("a", 0),
				persistedProject("b", 1),
				persistedProject("c", 2),
				persistedProject("d", 3),
			}, nil)

			removals := map[string]draft.Removal{}
			for _, id := range tt.remove {
				rm, _, err := s.Remove(domain.KindProject, domain.Persisted(id))
				require.NoError(t, err)
				removals[id] = rm
			}

			var snap draft.Snapshot
			for _, id := range tt.restore {
				var err error
				snap, err = s.Restore(removals[id])
				require.NoError(t, err)
			}
			require.Equal(t, []string{"a", "b", "c", "d"}, ids(snap.Projects))
		})
	}
}

func TestRestoreAroundRepeatedOrders(t *testing.T) {
	t.Parallel()
	s := draft.New()

	// removal does not renumber, so x and z end up sharing order 1
	x, _, _ := s.AddProvisional(domain.KindProject, project("x"))
	y, _, _ := s.AddProvisional(domain.KindProject, project("y"))
	_, _, err := s.Remove(domain.KindProject, x.Identity)
	require.NoError(t, err)
	z, _, _ := s.AddProvisional(domain.KindProject, project("z"))
	require.Equal(t, y.Order, z.Order)

	rm, _, err := s.Remove(domain.KindProject, y.Identity)
	require.NoError(t, err)
	snap, err := s.Restore(rm)
	require.NoError(t, err)
	require.Equal(t, []string{y.Identity.ID, z.Identity.ID}, ids(snap.Projects))
}

func TestResolve(t *testing.T) {
	t.Parallel()
	s := draft.New()

	prov, _, err := s.AddProvisional(domain.KindProject, project("local"))
	require.NoError(t, err)
	_, err = s.AppendPersisted(domain.KindProject, persistedProject("temp-from-server", 0))
	require.NoError(t, err)

	got, err := s.Resolve(domain.KindProject, prov.Identity.ID)
	require.NoError(t, err)
	require.Equal(t, prov.Identity, got)

	// a server id that happens to look like a local token is still persisted
	got, err = s.Resolve(domain.KindProject, "temp-from-server")
	require.NoError(t, err)
	require.Equal(t, domain.Persisted("temp-from-server"), got)

	_, err = s.Resolve(domain.KindSkill, "temp-from-server")
	require.ErrorIs(t, err, draft.ErrChildNotFound)
	_, err = s.Resolve("widget", "x")
	require.ErrorIs(t, err, draft.ErrUnknownKind)
}

func TestRemoveMissing(t *testing.T) {
	t.Parallel()
	s := draft.New()

	_, _, err := s.Remove(domain.KindProject, domain.Persisted("nope"))
	require.ErrorIs(t, err, draft.ErrChildNotFound)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = s.Remove("widget", domain.Persisted("nope"))
	require.ErrorIs(t, err, draft.ErrUnknownKind)
}

func TestLoadExistingReplacesEverything(t *testing.T) {
	t.Parallel()
	s := draft.New()

	s.SetProfileField(domain.FieldTitle, "local")
	_, _, err := s.AddProvisional(domain.KindProject, project("local"))
	require.NoError(t, err)

	tmpl := "minimal"
	snap := s.LoadExisting(
		domain.Profile{Title: "server", Username: "jane", TemplateID: &tmpl},
		[]domain.Child{persistedProject("x1", 0)},
		nil,
	)
	require.Equal(t, "server", snap.Profile.Title)
	require.Equal(t, []string{"x1"}, ids(snap.Projects))
	require.Empty(t, snap.Skills)

	// the loaded template is copied, not aliased
	tmpl = "changed"
	require.Equal(t, "minimal", *s.Snapshot().Profile.TemplateID)
}

func TestSetProfileFieldTemplate(t *testing.T) {
	t.Parallel()
	s := draft.New()

	snap := s.SetProfileField(domain.FieldTemplate, "minimal")
	require.True(t, snap.Profile.HasTemplate())

	snap = s.SetProfileField(domain.FieldTemplate, "")
	require.Nil(t, snap.Profile.TemplateID)
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	s := draft.New()

	_, _, err := s.AddProvisional(domain.KindProject, project("x"))
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Projects[0].Project.Title = "mutated"
	snap.Projects[0].Project.Technologies[0] = "rust"

	fresh := s.Snapshot()
	require.Equal(t, "x", fresh.Projects[0].Project.Title)
	require.Equal(t, []string{"go"}, fresh.Projects[0].Project.Technologies)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	s := draft.New()

	var (
		mu  sync.Mutex
		got []uint64
	)
	cancel := s.Subscribe(func(snap draft.Snapshot) {
		mu.Lock()
		got = append(got, snap.Version)
		mu.Unlock()
	})

	s.SetProfileField(domain.FieldTitle, "a")
	_, _, _ = s.AddProvisional(domain.KindProject, project("x"))
	_, _, err := s.Remove(domain.KindProject, domain.Persisted("missing"))
	require.Error(t, err)

	cancel()
	cancel()
	s.SetProfileField(domain.FieldTitle, "b")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint64{1, 2}, got)
	require.Equal(t, uint64(3), s.Snapshot().Version)
}

func TestConcurrentAddsKeepUniqueOrders(t *testing.T) {
	t.Parallel()
	s := draft.New()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.AddProvisional(domain.KindProject, project("x"))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Len(t, snap.Projects, 32)
	for i, c := range snap.Projects {
		require.Equal(t, i, c.Order)
	}
}

func TestFromSnapshot(t *testing.T) {
	t.Parallel()
	s := draft.New()
	s.SetProfileField(domain.FieldUsername, "jane")
	_, _, err := s.AddProvisional(domain.KindProject, project("x"))
	require.NoError(t, err)

	restored := draft.FromSnapshot(s.Snapshot())
	require.Equal(t, s.Snapshot(), restored.Snapshot())

	snap := restored.SetProfileField(domain.FieldTitle, "t")
	require.Equal(t, uint64(3), snap.Version)
}
