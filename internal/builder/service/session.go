package service

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/draft"
	"github.com/aussiebroadwan/folio/internal/builder/reconcile"
	"github.com/aussiebroadwan/folio/internal/builder/stepgate"
	"github.com/aussiebroadwan/folio/internal/builder/store"
)

// View is what the UI renders: the draft plus where the wizard stands.
type View struct {
	ID          string         `json:"id"`
	Step        string         `json:"step"`
	StepIndex   int            `json:"stepIndex"`
	State       string         `json:"state"`
	PortfolioID string         `json:"portfolioId,omitempty"`
	Submitting  bool           `json:"submitting"`
	Published   bool           `json:"published"`
	PreviewURL  string         `json:"previewUrl,omitempty"`
	Draft       draft.Snapshot `json:"draft"`
}

// session is one wizard. The draft, reconciler and gate each guard
// themselves; mu covers the remaining fields and the view subscribers.
type session struct {
	id     string
	userID string

	draft *draft.Store
	rec   *reconcile.Reconciler
	gate  *stepgate.Gate

	mu        sync.Mutex
	published bool
	slug      string
	lastSeen  time.Time
	subs      map[int]func(View)
	nextSub   int

	unsubscribeDraft func()
}

func newSession(id, userID string, d *draft.Store, rec *reconcile.Reconciler, gate *stepgate.Gate, now time.Time) *session {
	s := &session{
		id:       id,
		userID:   userID,
		draft:    d,
		rec:      rec,
		gate:     gate,
		lastSeen: now,
		subs:     make(map[int]func(View)),
	}
	s.unsubscribeDraft = d.Subscribe(func(snap draft.Snapshot) {
		s.broadcast(s.viewWith(snap))
	})
	return s
}

// sessionFromRecord rebuilds a wizard from its cached record.
func sessionFromRecord(rec store.DraftRecord, now time.Time) (*session, error) {
	r := reconcile.New()
	if rec.Saved {
		var err error
		if r, err = reconcile.Resume(rec.PortfolioID); err != nil {
			return nil, err
		}
	}
	s := newSession(rec.ID, rec.UserID, draft.FromSnapshot(rec.Snapshot), r, stepgate.At(stepgate.Step(rec.Step)), now)
	s.published = rec.Published
	s.slug = rec.Slug
	if s.slug == "" {
		s.slug = rec.Snapshot.Profile.Username
	}
	return s, nil
}

func (s *session) view() View {
	return s.viewWith(s.draft.Snapshot())
}

func (s *session) viewWith(snap draft.Snapshot) View {
	state, pid := s.rec.Mode()
	step := s.gate.Current()

	s.mu.Lock()
	published, slug := s.published, s.slug
	s.mu.Unlock()

	v := View{
		ID:          s.id,
		Step:        step.String(),
		StepIndex:   int(step),
		State:       state.String(),
		PortfolioID: pid,
		Submitting:  s.rec.InFlight(),
		Published:   published,
		Draft:       snap,
	}
	if published && slug != "" {
		v.PreviewURL = "/" + slug
	}
	return v
}

func (s *session) record(now time.Time) store.DraftRecord {
	state, pid := s.rec.Mode()

	s.mu.Lock()
	published, slug := s.published, s.slug
	s.mu.Unlock()

	return store.DraftRecord{
		ID:          s.id,
		UserID:      s.userID,
		Saved:       state == reconcile.Saved,
		PortfolioID: pid,
		Step:        int(s.gate.Current()),
		Published:   published,
		Slug:        slug,
		Snapshot:    s.draft.Snapshot(),
		UpdatedAt:   now,
	}
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *session) setPublished(slug string) {
	s.mu.Lock()
	s.published = true
	if slug != "" {
		s.slug = slug
	}
	s.mu.Unlock()
}

func (s *session) setSlug(slug string) {
	if slug == "" {
		return
	}
	s.mu.Lock()
	s.slug = slug
	s.mu.Unlock()
}

func (s *session) subscribe(fn func(View)) func() {
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

// broadcast delivers v to every view subscriber outside the lock.
func (s *session) broadcast(v View) {
	s.mu.Lock()
	subs := make([]func(View), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// close drops every subscriber.
func (s *session) close() {
	s.unsubscribeDraft()
	s.mu.Lock()
	clear(s.subs)
	s.mu.Unlock()
}
