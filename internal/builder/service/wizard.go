package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/draft"
	"github.com/aussiebroadwan/folio/internal/builder/reconcile"
	"github.com/aussiebroadwan/folio/internal/builder/stepgate"
	"github.com/aussiebroadwan/folio/internal/builder/store"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
	"github.com/aussiebroadwan/folio/pkg/idx"
	"github.com/aussiebroadwan/folio/pkg/media"
	"github.com/aussiebroadwan/folio/pkg/slogx"
)

var (
	ErrDraftNotFound    = fmt.Errorf("draft %w", domain.ErrNotFound)
	ErrUnknownField     = errors.New("unknown profile field")
	ErrGenerateType     = errors.New("generate: type is required")
	ErrRemoveRolledBack = errors.New("could not delete on the server; the item was restored")
)

const (
	// DefaultDraftTTL is how long an untouched draft is kept.
	DefaultDraftTTL = 24 * time.Hour

	// DefaultSubmitHold bounds how long a profile submission keeps the
	// draft's shared submission slot if its replica dies mid-request.
	DefaultSubmitHold = time.Minute
)

// WizardService owns the live wizard sessions. Upstream requests run
// without any session lock held; only the draft's own mutations are
// serialised. Profile submissions are also claimed in the shared cache, so
// replicas serving the same draft never both create its portfolio.
type WizardService struct {
	Upstream   Connector
	Cache      store.DraftCache
	Uploader   media.Uploader
	TTL        time.Duration
	SubmitHold time.Duration
	Now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewWizardService wires a service with the default TTL and clock.
func NewWizardService(upstream Connector, cache store.DraftCache, uploader media.Uploader, ttl time.Duration) *WizardService {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &WizardService{
		Upstream:   upstream,
		Cache:      cache,
		Uploader:   uploader,
		TTL:        ttl,
		SubmitHold: DefaultSubmitHold,
		Now:        func() time.Time { return time.Now().UTC() },
		sessions:   make(map[string]*session),
	}
}

// StartDraft opens a new wizard. With a portfolioID the draft is loaded from
// the server and starts Saved; otherwise it starts empty and Unsaved.
func (s *WizardService) StartDraft(ctx context.Context, sc SessionContext, portfolioID string) (View, error) {
	id := idx.New().String()
	ctx = slogx.WithSession(ctx, id)
	log := slogx.FromContext(ctx)

	d := draft.New()
	rec := reconcile.New()

	var existing *foliosdk.Portfolio
	if portfolioID != "" {
		var err error
		if existing, err = s.loadExisting(ctx, sc, portfolioID, d); err != nil {
			log.Warn("failed to load portfolio for editing", slog.String("portfolio_id", portfolioID), slog.Any("error", err))
			return View{}, err
		}
		if rec, err = reconcile.Resume(portfolioID); err != nil {
			return View{}, err
		}
	}

	sess := newSession(id, sc.UserID, d, rec, stepgate.New(), s.Now())
	if existing != nil {
		sess.setSlug(existing.Slug)
		if existing.IsPublished {
			sess.setPublished(existing.Slug)
		}
		if _, err := s.Cache.BindParent(ctx, id, portfolioID, s.TTL); err != nil {
			log.Warn("failed to bind draft to portfolio", slog.String("portfolio_id", portfolioID), slog.Any("error", err))
		}
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.persist(ctx, sess)
	log.Info("draft started", slog.String("portfolio_id", portfolioID))
	return sess.view(), nil
}

func (s *WizardService) loadExisting(ctx context.Context, sc SessionContext, portfolioID string, d *draft.Store) (*foliosdk.Portfolio, error) {
	api := s.Upstream(sc)

	p, err := api.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	projects, err := api.ListProjects(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	skills, err := api.ListSkills(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	pc := make([]domain.Child, len(projects))
	for i := range projects {
		pc[i] = projectChild(&projects[i])
	}
	sk := make([]domain.Child, len(skills))
	for i := range skills {
		sk[i] = skillChild(&skills[i])
	}

	d.LoadExisting(profileFromPortfolio(p), pc, sk)
	return p, nil
}

// GetDraft returns the current view of a draft.
func (s *WizardService) GetDraft(ctx context.Context, sc SessionContext, id string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}
	return sess.view(), nil
}

// ListDrafts returns the ids of the caller's open drafts.
func (s *WizardService) ListDrafts(ctx context.Context, sc SessionContext) ([]string, error) {
	return s.Cache.ListDraftIDs(ctx, sc.UserID)
}

// DiscardDraft drops a draft. Nothing upstream is touched.
func (s *WizardService) DiscardDraft(ctx context.Context, sc SessionContext, id string) error {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	sess.close()

	if err := s.Cache.DeleteDraft(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("failed to delete cached draft", slog.String("session_id", id), slog.Any("error", err))
	}
	return nil
}

// SetProfile writes profile fields without validating their values.
// Unknown field names are rejected before anything is written.
func (s *WizardService) SetProfile(ctx context.Context, sc SessionContext, id string, fields map[string]string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}

	parsed := make(map[domain.ProfileField]string, len(fields))
	bad := map[string]string{}
	for name, v := range fields {
		f, ok := domain.ParseProfileField(name)
		if !ok {
			bad[name] = "unknown field"
			continue
		}
		parsed[f] = v
	}
	if err := domain.Invalid(bad); err != nil {
		return View{}, fmt.Errorf("%w: %w", ErrUnknownField, err)
	}

	for f, v := range parsed {
		sess.draft.SetProfileField(f, v)
	}

	s.persist(ctx, sess)
	return sess.view(), nil
}

// SetTemplate records the template choice. An empty id clears it.
func (s *WizardService) SetTemplate(ctx context.Context, sc SessionContext, id, templateID string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}

	sess.draft.SetProfileField(domain.FieldTemplate, templateID)
	s.persist(ctx, sess)
	return sess.view(), nil
}

// SubmitProfile validates the profile locally, then creates the portfolio
// (Unsaved) or updates it (Saved). Only one submission per draft may be in
// flight, on this replica or any other sharing the cache. A successful
// submission from the profile step moves the wizard on to projects.
func (s *WizardService) SubmitProfile(ctx context.Context, sc SessionContext, id string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}
	ctx = slogx.WithSession(ctx, id)
	log := slogx.FromContext(ctx)

	profile := sess.draft.Profile()
	if err := stepgate.CheckProfile(profile); err != nil {
		return View{}, err
	}

	sub, err := sess.rec.BeginSubmit()
	if err != nil {
		log.Warn("profile submission rejected", slog.Any("error", err))
		return View{}, err
	}

	owner := idx.New().String()
	claimed, err := s.Cache.ClaimSubmit(ctx, id, owner, s.SubmitHold)
	if err != nil {
		sess.rec.Abort()
		log.Error("failed to claim profile submission", slog.Any("error", err))
		return View{}, err
	}
	if !claimed {
		sess.rec.Abort()
		log.Warn("profile submission rejected", slog.String("reason", "claimed by another replica"))
		return View{}, reconcile.ErrSubmitInFlight
	}
	defer func() {
		if err := s.Cache.ReleaseSubmit(context.WithoutCancel(ctx), id, owner); err != nil {
			log.Warn("failed to release profile submission", slog.Any("error", err))
		}
	}()

	// Another replica may have created the parent since this session last
	// looked.
	s.syncParent(ctx, sess)
	sub = sess.rec.Rebase(sub)
	sess.broadcast(sess.view())

	api := s.Upstream(sc)
	in := foliosdk.PortfolioInput{
		Title:       profile.Title,
		Description: profile.Description,
		Slug:        profile.Username,
		TemplateID:  s.templateForSubmit(ctx, api, profile),
	}

	var p *foliosdk.Portfolio
	switch sub.Op {
	case reconcile.OpCreate:
		p, err = api.CreatePortfolio(ctx, in)
	case reconcile.OpUpdate:
		p, err = api.UpdatePortfolio(ctx, sub.PortfolioID, in)
	}
	if err != nil {
		sess.rec.Abort()
		sess.broadcast(sess.view())
		log.Error("profile submission failed", slog.Any("error", err))
		return View{}, err
	}

	if sub.Op == reconcile.OpCreate && p.ID != "" {
		bound, err := s.Cache.BindParent(ctx, id, p.ID, s.TTL)
		switch {
		case err != nil:
			log.Warn("failed to bind draft to portfolio", slog.String("portfolio_id", p.ID), slog.Any("error", err))
		case bound != p.ID:
			// Only possible once a claim has outlived SubmitHold.
			log.Error("draft already bound to another portfolio",
				slog.String("portfolio_id", p.ID),
				slog.String("bound_id", bound),
			)
		}
	}

	if err := sess.rec.Complete(sub, p.ID); err != nil {
		sess.broadcast(sess.view())
		log.Error("profile submission returned no id", slog.Any("error", err))
		return View{}, err
	}

	slug := p.Slug
	if slug == "" {
		slug = profile.Username
	}
	sess.setSlug(slug)

	if sess.gate.Current() == stepgate.StepProfile {
		_, _ = sess.gate.Advance(stepgate.Conditions{Saved: true})
	}

	state, pid := sess.rec.Mode()
	log.Info("profile submitted", slog.String("portfolio_id", pid), slog.String("state", state.String()))

	s.persist(ctx, sess)
	v := sess.view()
	sess.broadcast(v)
	return v, nil
}

// templateForSubmit sends the chosen template, or the first one in the
// catalogue when nothing is chosen yet. The draft's own selection is left
// untouched either way.
func (s *WizardService) templateForSubmit(ctx context.Context, api PortfolioAPI, p domain.Profile) string {
	if p.HasTemplate() {
		return *p.TemplateID
	}
	templates, err := api.ListTemplates(ctx)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to list templates for default", slog.Any("error", err))
		return ""
	}
	if len(templates) == 0 {
		return ""
	}
	return templates[0].ID
}

// AddChild validates and adds a project or skill. Before the parent exists
// the child gets a provisional token and stays local; afterwards it is
// created upstream first and appended with its server id.
func (s *WizardService) AddChild(ctx context.Context, sc SessionContext, id string, kind domain.ChildKind, data domain.ChildData) (View, domain.Child, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, domain.Child{}, err
	}
	ctx = slogx.WithSession(ctx, id)

	data, err = stepgate.CheckChild(kind, data)
	if err != nil {
		return View{}, domain.Child{}, err
	}

	state, portfolioID := sess.rec.Mode()
	if state == reconcile.Unsaved {
		child, _, err := sess.draft.AddProvisional(kind, data)
		if err != nil {
			return View{}, domain.Child{}, err
		}
		s.persist(ctx, sess)
		return sess.view(), child, nil
	}

	child, err := s.createChild(ctx, s.Upstream(sc), portfolioID, kind, data, sess.draft.Len(kind))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to create child", slog.String("kind", string(kind)), slog.Any("error", err))
		return View{}, domain.Child{}, err
	}

	if _, err := sess.draft.AppendPersisted(kind, child); err != nil {
		return View{}, domain.Child{}, err
	}

	s.persist(ctx, sess)
	return sess.view(), child, nil
}

func (s *WizardService) createChild(ctx context.Context, api PortfolioAPI, portfolioID string, kind domain.ChildKind, data domain.ChildData, order int) (domain.Child, error) {
	switch kind {
	case domain.KindProject:
		p, err := api.CreateProject(ctx, portfolioID, projectInput(data.Project, order))
		if err != nil {
			return domain.Child{}, err
		}
		return projectChild(p), nil
	case domain.KindSkill:
		sk, err := api.CreateSkill(ctx, portfolioID, skillInput(data.Skill, order))
		if err != nil {
			return domain.Child{}, err
		}
		return skillChild(sk), nil
	}
	return domain.Child{}, draft.ErrUnknownKind
}

// RemoveChild removes a child optimistically. Provisional children are gone
// at once. For persisted children the upstream delete follows, and on
// failure the child is put back where it was.
func (s *WizardService) RemoveChild(ctx context.Context, sc SessionContext, id string, kind domain.ChildKind, childID string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}
	ctx = slogx.WithSession(ctx, id)
	log := slogx.FromContext(ctx)

	identity, err := sess.draft.Resolve(kind, childID)
	if err != nil {
		return View{}, err
	}
	rm, _, err := sess.draft.Remove(kind, identity)
	if err != nil {
		return View{}, err
	}

	if identity.IsProvisional() {
		s.persist(ctx, sess)
		return sess.view(), nil
	}

	api := s.Upstream(sc)
	switch kind {
	case domain.KindProject:
		err = api.DeleteProject(ctx, identity.ID)
	case domain.KindSkill:
		err = api.DeleteSkill(ctx, identity.ID)
	}
	if err != nil {
		log.Error("upstream delete failed, restoring child",
			slog.String("kind", string(kind)),
			slog.String("child_id", identity.ID),
			slog.Any("error", err),
		)
		if _, rerr := sess.draft.Restore(rm); rerr != nil {
			log.Error("failed to restore child", slog.Any("error", rerr))
		}
		s.persist(ctx, sess)
		return View{}, fmt.Errorf("%w: %w", ErrRemoveRolledBack, err)
	}

	s.persist(ctx, sess)
	return sess.view(), nil
}

// Advance moves to the next step when the gate allows it.
func (s *WizardService) Advance(ctx context.Context, sc SessionContext, id string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}

	state, _ := sess.rec.Mode()
	_, err = sess.gate.Advance(stepgate.Conditions{
		Saved:            state == reconcile.Saved,
		SubmitInFlight:   sess.rec.InFlight(),
		TemplateSelected: sess.draft.Profile().HasTemplate(),
	})
	if err != nil {
		return View{}, err
	}

	s.persist(ctx, sess)
	v := sess.view()
	sess.broadcast(v)
	return v, nil
}

// Retreat moves to the previous step.
func (s *WizardService) Retreat(ctx context.Context, sc SessionContext, id string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}

	if _, err := sess.gate.Retreat(); err != nil {
		return View{}, err
	}

	s.persist(ctx, sess)
	v := sess.view()
	sess.broadcast(v)
	return v, nil
}

// Publish makes the portfolio public. It is refused until the portfolio has
// a server identity; publishing again is harmless.
func (s *WizardService) Publish(ctx context.Context, sc SessionContext, id string) (View, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, err
	}
	ctx = slogx.WithSession(ctx, id)

	state, portfolioID := sess.rec.Mode()
	if err := stepgate.CanPublish(state == reconcile.Saved); err != nil {
		return View{}, err
	}

	if err := s.Upstream(sc).PublishPortfolio(ctx, portfolioID); err != nil {
		slogx.FromContext(ctx).Error("publish failed", slog.Any("error", err))
		return View{}, err
	}

	sess.setPublished(sess.draft.Profile().Username)
	slogx.FromContext(ctx).Info("portfolio published", slog.String("portfolio_id", portfolioID))

	s.persist(ctx, sess)
	v := sess.view()
	sess.broadcast(v)
	return v, nil
}

// Generate asks the content oracle for text of the given type using the
// current profile as context. A bio result is written into the draft.
func (s *WizardService) Generate(ctx context.Context, sc SessionContext, id, typ string) (View, string, error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return View{}, "", err
	}
	if typ == "" {
		return View{}, "", domain.Invalid(map[string]string{"type": "required"})
	}

	out, err := s.Upstream(sc).Generate(ctx, foliosdk.GenerateRequest{
		Type:    typ,
		Context: sess.draft.Profile(),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("content generation failed", slog.String("type", typ), slog.Any("error", err))
		return View{}, "", err
	}

	if typ == string(domain.FieldBio) {
		sess.draft.SetProfileField(domain.FieldBio, out.Content)
		s.persist(ctx, sess)
	}
	return sess.view(), out.Content, nil
}

// UploadImage sends an image to the media host for use in the draft. Only
// the resulting URL is meant to be stored.
func (s *WizardService) UploadImage(ctx context.Context, sc SessionContext, id string, f media.File) (media.Result, error) {
	if _, err := s.lookup(ctx, sc, id); err != nil {
		return media.Result{}, err
	}
	if s.Uploader == nil {
		return media.Result{}, media.ErrNotConfigured
	}
	res, err := s.Uploader.Upload(ctx, f)
	if err != nil {
		slogx.FromContext(ctx).Error("image upload failed", slog.Any("error", err))
		return media.Result{}, err
	}
	return res, nil
}

// Subscribe streams the draft's view after every change until cancel is
// called. The current view is delivered first.
func (s *WizardService) Subscribe(ctx context.Context, sc SessionContext, id string, fn func(View)) (func(), error) {
	sess, err := s.lookup(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	cancel := sess.subscribe(fn)
	fn(sess.view())
	return cancel, nil
}

// Sweep drops sessions idle for longer than the TTL. Cached records expire
// on their own.
func (s *WizardService) Sweep(now time.Time) int {
	s.mu.Lock()
	var stale []*session
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > s.TTL {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.close()
	}
	return len(stale)
}

// Live reports how many sessions are held in memory.
func (s *WizardService) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookup finds a live session or rebuilds it from the cache. A draft owned
// by someone else is reported as not found.
func (s *WizardService) lookup(ctx context.Context, sc SessionContext, id string) (*session, error) {
	now := s.Now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		rec, err := s.Cache.LoadDraft(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDraftNotFound
		}
		if err != nil {
			return nil, err
		}
		if sess, err = sessionFromRecord(rec, now); err != nil {
			return nil, err
		}

		s.mu.Lock()
		if existing, raced := s.sessions[id]; raced {
			sess.close()
			sess = existing
		} else {
			s.sessions[id] = sess
		}
		s.mu.Unlock()
	}

	if sess.userID != sc.UserID {
		return nil, ErrDraftNotFound
	}
	sess.touch(now)

	if state, _ := sess.rec.Mode(); state == reconcile.Unsaved && !sess.rec.InFlight() {
		s.syncParent(ctx, sess)
	}
	return sess, nil
}

// syncParent adopts a parent created for this draft by another replica.
// A cache failure leaves the session as it is.
func (s *WizardService) syncParent(ctx context.Context, sess *session) {
	pid, err := s.Cache.Parent(ctx, sess.id)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to read draft parent", slog.String("session_id", sess.id), slog.Any("error", err))
		return
	}
	if pid == "" {
		return
	}
	adopted, err := sess.rec.Adopt(pid)
	if err != nil || !adopted {
		return
	}
	slogx.FromContext(ctx).Info("adopted portfolio created elsewhere", slog.String("session_id", sess.id), slog.String("portfolio_id", pid))
	sess.broadcast(sess.view())
}

// persist writes the session to the cache. The cache is best effort; a
// failed write is logged and the request still succeeds.
func (s *WizardService) persist(ctx context.Context, sess *session) {
	now := s.Now()
	sess.touch(now)
	if err := s.Cache.SaveDraft(ctx, sess.record(now), s.TTL); err != nil {
		slogx.FromContext(ctx).Warn("failed to cache draft", slog.String("session_id", sess.id), slog.Any("error", err))
	}
}
