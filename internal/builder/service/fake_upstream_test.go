package service_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/memory"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
)

// fakeUpstream is an in-memory portfolio API. Tests flip its fields to
// inject failures.
type fakeUpstream struct {
	mu sync.Mutex

	portfolios map[string]*foliosdk.Portfolio
	projects   map[string][]foliosdk.Project
	skills     map[string][]foliosdk.Skill
	templates  []foliosdk.Template
	nextID     int

	creates       int
	updates       int
	publishes     int
	lastCreate    foliosdk.PortfolioInput
	lastProject   foliosdk.ProjectInput
	requests      []string
	failStatus    map[string]int // "METHOD /path" -> status
	createGate    chan struct{}  // when set, create waits for it
	createEntered chan struct{}
	deleteGate    chan struct{}  // when set, child deletes wait for it
	deleteEntered chan struct{}
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		portfolios: map[string]*foliosdk.Portfolio{},
		projects:   map[string][]foliosdk.Project{},
		skills:     map[string][]foliosdk.Skill{},
		failStatus: map[string]int{},
	}
}

func (f *fakeUpstream) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeUpstream) seed(p foliosdk.Portfolio, projects []foliosdk.Project, skills []foliosdk.Skill) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portfolios[p.ID] = &p
	f.projects[p.ID] = projects
	f.skills[p.ID] = skills
}

func (f *fakeUpstream) fail(route string, status int) {
	f.mu.Lock()
	f.failStatus[route] = status
	f.mu.Unlock()
}

func (f *fakeUpstream) setTemplates(ts ...foliosdk.Template) {
	f.mu.Lock()
	f.templates = ts
	f.mu.Unlock()
}

// holdCreates makes the next portfolio create block until release is called.
func (f *fakeUpstream) holdCreates() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 1)
	f.createGate, f.createEntered = gate, in
	return in, func() {
		f.mu.Lock()
		f.createGate = nil
		f.mu.Unlock()
		close(gate)
	}
}

// holdDeletes makes child deletes block until release is called, before
// any injected failure is applied.
func (f *fakeUpstream) holdDeletes() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 8)
	f.deleteGate, f.deleteEntered = gate, in
	return in, func() {
		f.mu.Lock()
		f.deleteGate = nil
		f.mu.Unlock()
		close(gate)
	}
}

type upstreamStats struct {
	creates, updates, publishes int
	lastCreate                  foliosdk.PortfolioInput
	lastProject                 foliosdk.ProjectInput
}

func (f *fakeUpstream) stats() upstreamStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return upstreamStats{
		creates:     f.creates,
		updates:     f.updates,
		publishes:   f.publishes,
		lastCreate:  f.lastCreate,
		lastProject: f.lastProject,
	}
}

func (f *fakeUpstream) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.requests = append(f.requests, route)
	status, failing := f.failStatus[route]
	gate, entered := f.createGate, f.createEntered
	delGate, delEntered := f.deleteGate, f.deleteEntered
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer good-token" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method == http.MethodDelete && delGate != nil {
		delEntered <- struct{}{}
		<-delGate
	}
	if failing {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "upstream said no"})
		return
	}

	if route == "POST /api/portfolios" && gate != nil {
		entered <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case route == "GET /api/templates":
		writeJSON(w, http.StatusOK, f.templates)

	case route == "GET /api/portfolios":
		out := []foliosdk.Portfolio{}
		for _, p := range f.portfolios {
			out = append(out, *p)
		}
		writeJSON(w, http.StatusOK, out)

	case route == "POST /api/portfolios":
		var in foliosdk.PortfolioInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.creates++
		f.lastCreate = in
		p := &foliosdk.Portfolio{ID: f.id("p"), Title: in.Title, Description: in.Description, Slug: in.Slug, TemplateID: in.TemplateID}
		f.portfolios[p.ID] = p
		writeJSON(w, http.StatusCreated, p)

	case r.Method == http.MethodPatch && len(parts) == 3:
		p, ok := f.portfolios[parts[2]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		var in foliosdk.PortfolioInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.updates++
		p.Title, p.Description, p.Slug, p.TemplateID = in.Title, in.Description, in.Slug, in.TemplateID
		writeJSON(w, http.StatusOK, p)

	case r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "portfolios":
		p, ok := f.portfolios[parts[2]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "publish":
		p, ok := f.portfolios[parts[2]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.publishes++
		p.IsPublished = true
		writeJSON(w, http.StatusOK, p)

	case len(parts) == 4 && parts[3] == "projects" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, f.projects[parts[2]])

	case len(parts) == 4 && parts[3] == "projects" && r.Method == http.MethodPost:
		var in foliosdk.ProjectInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.lastProject = in
		p := foliosdk.Project{
			ID: f.id("x"), PortfolioID: parts[2], Title: in.Title, Technologies: in.Technologies,
			Order: in.Order, CreatedAt: time.Now().UTC(),
		}
		f.projects[parts[2]] = append(f.projects[parts[2]], p)
		writeJSON(w, http.StatusCreated, p)

	case len(parts) == 4 && parts[3] == "skills" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, f.skills[parts[2]])

	case len(parts) == 4 && parts[3] == "skills" && r.Method == http.MethodPost:
		var in foliosdk.SkillInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		s := foliosdk.Skill{
			ID: f.id("s"), PortfolioID: parts[2], Name: in.Name, Proficiency: in.Proficiency,
			Order: in.Order, CreatedAt: time.Now().UTC(),
		}
		f.skills[parts[2]] = append(f.skills[parts[2]], s)
		writeJSON(w, http.StatusCreated, s)

	case r.Method == http.MethodDelete && len(parts) == 3 && (parts[1] == "projects" || parts[1] == "skills"):
		w.WriteHeader(http.StatusNoContent)

	case route == "POST /api/ai/generate":
		var in foliosdk.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, foliosdk.GenerateResponse{Content: "generated " + in.Type})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	upstream *fakeUpstream
	client   *foliosdk.Client
	cache    *memory.DraftCache
	wizard   *service.WizardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	up := newFakeUpstream()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	client := foliosdk.NewClient(srv.URL)
	cache := memory.New()

	return &harness{
		upstream: up,
		client:   client,
		cache:    cache,
		wizard:   service.NewWizardService(service.SDKConnector(client), cache, nil, time.Hour),
	}
}

var alice = service.SessionContext{UserID: "alice", BearerToken: "good-token"}
