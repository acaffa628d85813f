// Package draft holds the in-memory state of one portfolio wizard session:
// the profile form and the ordered project and skill collections.
//
// The store never talks to the network. Callers run upstream requests
// without holding the store lock and apply the outcome afterwards, so the
// draft stays readable while a request is in flight.
package draft

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/pkg/idx"
)

var (
	ErrDuplicateIdentity = errors.New("draft: identity already present")
	ErrUnknownKind       = errors.New("draft: unknown child kind")
	ErrNotPersisted      = errors.New("draft: child has no server identity")
	ErrChildNotFound     = fmt.Errorf("draft: child %w", domain.ErrNotFound)
)

// Snapshot is an immutable copy of the draft. Version increases with every
// mutation so observers can drop stale deliveries.
type Snapshot struct {
	Version  uint64         `json:"version"`
	Profile  domain.Profile `json:"profile"`
	Projects []domain.Child `json:"projects"`
	Skills   []domain.Child `json:"skills"`
}

// Removal remembers where a child sat so a failed upstream delete can put it
// back. Order values may repeat after removals and slice indexes shift as
// neighbours come and go, so the child's insertion position is kept instead.
type Removal struct {
	Kind  domain.ChildKind
	Child domain.Child
	pos   uint64
}

type posKey struct {
	kind domain.ChildKind
	id   domain.Identity
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	profile  domain.Profile
	projects []domain.Child
	skills   []domain.Child
	version  uint64

	// pos is each child's insertion position. Collections are kept sorted
	// by it.
	pos     map[posKey]uint64
	nextPos uint64

	subs    map[int]func(Snapshot)
	nextSub int

	now func() time.Time
}

// New returns an empty draft.
func New() *Store {
	return &Store{
		projects: []domain.Child{},
		skills:   []domain.Child{},
		pos:      make(map[posKey]uint64),
		subs:     make(map[int]func(Snapshot)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FromSnapshot rebuilds a store from a cached snapshot.
func FromSnapshot(s Snapshot) *Store {
	st := New()
	st.profile = cloneProfile(s.Profile)
	st.projects = cloneChildren(s.Projects)
	st.skills = cloneChildren(s.Skills)
	st.version = s.Version
	st.placeAll()
	return st
}

// SetProfileField writes one profile field. No validation happens here;
// validation runs at submission. An empty template value clears the
// selection.
func (s *Store) SetProfileField(field domain.ProfileField, value string) Snapshot {
	snap, _ := s.mutate(func() error {
		switch field {
		case domain.FieldTitle:
			s.profile.Title = value
		case domain.FieldDescription:
			s.profile.Description = value
		case domain.FieldBio:
			s.profile.Bio = value
		case domain.FieldUsername:
			s.profile.Username = value
		case domain.FieldTemplate:
			if value == "" {
				s.profile.TemplateID = nil
			} else {
				v := value
				s.profile.TemplateID = &v
			}
		}
		return nil
	})
	return snap
}

// AddProvisional appends a child under a freshly minted local token. Used
// while the parent has no server identity.
func (s *Store) AddProvisional(kind domain.ChildKind, data domain.ChildData) (domain.Child, Snapshot, error) {
	if !kind.Valid() {
		return domain.Child{}, Snapshot{}, ErrUnknownKind
	}

	var added domain.Child
	snap, _ := s.mutate(func() error {
		coll := s.collection(kind)
		added = domain.Child{
			Kind:      kind,
			Identity:  domain.Provisional(idx.NewProvisional()),
			Order:     len(*coll),
			CreatedAt: s.now(),
			Project:   cloneProject(data.Project),
			Skill:     cloneSkill(data.Skill),
		}
		*coll = append(*coll, added)
		s.place(kind, added.Identity)
		return nil
	})
	return cloneChild(added), snap, nil
}

// AppendPersisted appends a child the upstream API has already created. The
// child keeps the order it was created with.
func (s *Store) AppendPersisted(kind domain.ChildKind, child domain.Child) (Snapshot, error) {
	if !kind.Valid() {
		return Snapshot{}, ErrUnknownKind
	}
	if !child.Identity.Persisted {
		return Snapshot{}, ErrNotPersisted
	}

	child = cloneChild(child)
	child.Kind = kind

	return s.mutate(func() error {
		coll := s.collection(kind)
		if indexOf(*coll, child.Identity) >= 0 {
			return ErrDuplicateIdentity
		}
		*coll = append(*coll, child)
		s.place(kind, child.Identity)
		return nil
	})
}

// Remove filters a child out of its collection immediately. For a
// provisional child that is the whole operation. For a persisted child the
// returned Removal can be handed to Restore if the upstream delete fails.
func (s *Store) Remove(kind domain.ChildKind, id domain.Identity) (Removal, Snapshot, error) {
	if !kind.Valid() {
		return Removal{}, Snapshot{}, ErrUnknownKind
	}

	var rm Removal
	snap, err := s.mutate(func() error {
		coll := s.collection(kind)
		i := indexOf(*coll, id)
		if i < 0 {
			return ErrChildNotFound
		}
		key := posKey{kind, id}
		rm = Removal{Kind: kind, Child: (*coll)[i], pos: s.pos[key]}
		delete(s.pos, key)
		*coll = slices.Delete(*coll, i, i+1)
		return nil
	})
	if err != nil {
		return Removal{}, Snapshot{}, err
	}
	return rm, snap, nil
}

// Restore puts a removed child back where it sat relative to the children
// still present, whatever else was removed or restored in between.
func (s *Store) Restore(rm Removal) (Snapshot, error) {
	if !rm.Kind.Valid() {
		return Snapshot{}, ErrUnknownKind
	}

	return s.mutate(func() error {
		coll := s.collection(rm.Kind)
		if indexOf(*coll, rm.Child.Identity) >= 0 {
			return ErrDuplicateIdentity
		}
		at := slices.IndexFunc(*coll, func(c domain.Child) bool {
			return s.pos[posKey{rm.Kind, c.Identity}] > rm.pos
		})
		if at < 0 {
			at = len(*coll)
		}
		*coll = slices.Insert(*coll, at, cloneChild(rm.Child))
		s.pos[posKey{rm.Kind, rm.Child.Identity}] = rm.pos
		return nil
	})
}

// Resolve maps an id the UI sent back to the identity of a child in the
// collection. A persisted child wins should a server id ever equal a local
// token.
func (s *Store) Resolve(kind domain.ChildKind, id string) (domain.Identity, error) {
	if !kind.Valid() {
		return domain.Identity{}, ErrUnknownKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(*s.collection(kind), domain.Persisted(id)) >= 0 {
		return domain.Persisted(id), nil
	}
	prov := domain.Identity{ID: id}
	if indexOf(*s.collection(kind), prov) >= 0 {
		return prov, nil
	}
	return domain.Identity{}, ErrChildNotFound
}

// LoadExisting replaces the whole draft with server state. Nothing local
// survives, including provisional children.
func (s *Store) LoadExisting(profile domain.Profile, projects, skills []domain.Child) Snapshot {
	snap, _ := s.mutate(func() error {
		s.profile = cloneProfile(profile)
		s.projects = cloneChildren(projects)
		s.skills = cloneChildren(skills)
		s.placeAll()
		return nil
	})
	return snap
}

// Len reports the current size of a collection. New children take this
// value as their order.
func (s *Store) Len(kind domain.ChildKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !kind.Valid() {
		return 0
	}
	return len(*s.collection(kind))
}

// Profile returns a copy of the profile form.
func (s *Store) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfile(s.profile)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive the snapshot after every mutation.
// Deliveries happen outside the store lock, in the mutating goroutine.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// mutate applies fn under the lock. On success it bumps the version and
// notifies subscribers once the lock is released; a failed fn leaves the
// version alone and notifies nobody.
func (s *Store) mutate(fn func() error) (Snapshot, error) {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	s.version++
	snap := s.snapshotLocked()

	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return snap, nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:  s.version,
		Profile:  cloneProfile(s.profile),
		Projects: cloneChildren(s.projects),
		Skills:   cloneChildren(s.skills),
	}
}

// place gives a newly appended child the next position. Callers hold mu.
func (s *Store) place(kind domain.ChildKind, id domain.Identity) {
	s.nextPos++
	s.pos[posKey{kind, id}] = s.nextPos
}

// placeAll renumbers both collections in their current order. Callers hold
// mu, or own the store exclusively.
func (s *Store) placeAll() {
	clear(s.pos)
	for _, c := range s.projects {
		s.place(domain.KindProject, c.Identity)
	}
	for _, c := range s.skills {
		s.place(domain.KindSkill, c.Identity)
	}
}

func (s *Store) collection(kind domain.ChildKind) *[]domain.Child {
	if kind == domain.KindSkill {
		return &s.skills
	}
	return &s.projects
}

func indexOf(coll []domain.Child, id domain.Identity) int {
	return slices.IndexFunc(coll, func(c domain.Child) bool { return c.Identity == id })
}
