package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	builderhttp "github.com/aussiebroadwan/folio/internal/builder/http"
	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/memory"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/sqlite"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
	"github.com/aussiebroadwan/folio/pkg/httpx"
	"github.com/aussiebroadwan/folio/pkg/jwtx"
	"github.com/aussiebroadwan/folio/pkg/media"
	"github.com/aussiebroadwan/folio/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// tokenVerifier accepts "<user>-token" and rejects everything else.
type tokenVerifier struct{}

func (tokenVerifier) Verify(token string) (jwtx.Claims, error) {
	user, ok := strings.CutSuffix(token, "-token")
	if !ok || user == "" {
		return jwtx.Claims{}, jwtx.ErrMalformed
	}
	c := jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: user}}
	if user == "writer" {
		c.Scopes = []string{"portfolio:read", "portfolio:write"}
	}
	return c, nil
}

type readyKeys bool

func (k readyKeys) IsReady() bool { return bool(k) }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// portfolioAPI is a tiny upstream that only knows the caller "alice-token"
// and the routes these tests touch.
type portfolioAPI struct {
	mu        sync.Mutex
	nextID    int
	projects  int
	published bool
}

func (a *portfolioAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer alice-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch route := r.Method + " " + r.URL.Path; {
	case route == "GET /api/templates":
		reply(http.StatusOK, []foliosdk.Template{{ID: "classic", Name: "Classic"}})
	case route == "POST /api/portfolios":
		var in foliosdk.PortfolioInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Slug == "taken" {
			reply(http.StatusConflict, map[string]string{"message": "Slug already in use"})
			return
		}
		a.nextID++
		reply(http.StatusCreated, foliosdk.Portfolio{ID: "p1", Title: in.Title, Slug: in.Slug})
	case route == "POST /api/portfolios/p1/projects":
		var in foliosdk.ProjectInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		a.projects++
		reply(http.StatusCreated, foliosdk.Project{ID: "x1", PortfolioID: "p1", Title: in.Title, Order: in.Order})
	case route == "DELETE /api/projects/x1":
		reply(http.StatusServiceUnavailable, map[string]string{"message": "try later"})
	case route == "POST /api/portfolios/p1/publish":
		a.published = true
		reply(http.StatusOK, map[string]any{})
	case route == "POST /api/ai/generate":
		var in foliosdk.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		reply(http.StatusOK, foliosdk.GenerateResponse{Content: "generated " + in.Type})
	case route == "GET /api/portfolios":
		reply(http.StatusOK, []foliosdk.Portfolio{{ID: "p1", Title: "Jane", Slug: "jane"}})
	case route == "GET /api/public/portfolios/jane":
		reply(http.StatusOK, foliosdk.PublicPortfolio{ID: "p1", Description: "Hello"})
	default:
		reply(http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

type imageHost struct{}

func (imageHost) Upload(_ context.Context, f media.File) (media.Result, error) {
	if err := media.CheckImage(f); err != nil {
		return media.Result{}, err
	}
	return media.Result{URL: "https://cdn.example.com/" + f.Name, PublicID: strings.TrimSuffix(f.Name, filepath.Ext(f.Name))}, nil
}

type testServer struct {
	*httptest.Server
	api *portfolioAPI
}

func newServer(t *testing.T, db, cache pinger, keys readyKeys, opts ...func(*builderhttp.Router)) *testServer {
	t.Helper()

	api := &portfolioAPI{}
	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	client := foliosdk.NewClient(upstream.URL)
	drafts := memory.New()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	router := builderhttp.NewRouter(tokenVerifier{}, keys, "test", db, cache, slogx.Discard())
	router.WizardService = service.NewWizardService(service.SDKConnector(client), drafts, imageHost{}, time.Hour)
	router.CatalogueService = &service.CatalogueService{Upstream: service.SDKConnector(client), Public: client}
	router.MediaService = &service.MediaService{Store: st, Uploader: imageHost{}}
	for _, opt := range opts {
		opt(router)
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, api: api}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, s.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func (s *testServer) newDraft(t *testing.T) service.View {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/v1/drafts", "alice-token", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[service.View](t, body)
}

func TestUnauthenticatedGetsSessionExpired(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)

	for _, token := range []string{"", "garbage"} {
		resp, body := srv.do(t, http.MethodPost, "/v1/drafts", token, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		eb := decode[httpx.ErrorBody](t, body)
		require.Equal(t, "unauthorized", eb.Kind)
		require.Equal(t, "You are logged out. Logging in again...", eb.Message)
		require.Equal(t, httpx.LoginPath, eb.Redirect)
	}
}

func TestRequiredScopes(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true, func(r *builderhttp.Router) {
		r.RequiredScopes = []string{"portfolio:write"}
	})

	resp, body := srv.do(t, http.MethodGet, "/v1/drafts", "alice-token", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "not_permitted", decode[httpx.ErrorBody](t, body).Kind)

	resp, body = srv.do(t, http.MethodGet, "/v1/drafts", "writer-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Empty(t, decode[builderhttp.ListDraftsResponse](t, body).Drafts)
}

func TestWizardFlowOverHTTP(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)
	v := srv.newDraft(t)
	base := "/v1/drafts/" + v.ID

	// provisional project before the portfolio exists
	resp, body := srv.do(t, http.MethodPost, base+"/projects", "alice-token", builderhttp.ProjectRequest{Title: "X"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	added := decode[builderhttp.ChildResponse](t, body)
	require.True(t, added.Child.Identity.IsProvisional())
	require.Equal(t, 0, added.Child.Order)

	// invalid username never leaves the builder
	resp, body = srv.do(t, http.MethodPatch, base+"/profile", "alice-token", map[string]string{"title": "Jane", "username": "ab"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = srv.do(t, http.MethodPost, base+"/profile/submit", "alice-token", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb := decode[httpx.ErrorBody](t, body)
	require.Equal(t, "validation", eb.Kind)
	require.Contains(t, eb.Fields, "username")

	// advancing before a save is refused
	resp, body = srv.do(t, http.MethodPost, base+"/advance", "alice-token", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Save your profile before continuing.", decode[httpx.ErrorBody](t, body).Message)

	resp, _ = srv.do(t, http.MethodPatch, base+"/profile", "alice-token", map[string]string{"username": "ab_12"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.do(t, http.MethodPost, base+"/profile/submit", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	v = decode[service.View](t, body)
	require.Equal(t, "saved", v.State)
	require.Equal(t, "p1", v.PortfolioID)
	require.Equal(t, "projects", v.Step)

	resp, body = srv.do(t, http.MethodPost, base+"/projects", "alice-token", builderhttp.ProjectRequest{Title: "Y"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	added = decode[builderhttp.ChildResponse](t, body)
	require.Equal(t, "x1", added.Child.Identity.ID)
	require.Equal(t, 1, added.Child.Order)

	// a failed delete is rolled back and reported as transient
	resp, body = srv.do(t, http.MethodDelete, base+"/projects/x1", "alice-token", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	eb = decode[httpx.ErrorBody](t, body)
	require.Equal(t, "transient", eb.Kind)
	require.Equal(t, "Could not delete the item. It has been restored.", eb.Message)

	resp, body = srv.do(t, http.MethodGet, base, "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[service.View](t, body).Draft.Projects, 2)

	resp, body = srv.do(t, http.MethodPost, base+"/publish", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "/ab_12", decode[service.View](t, body).PreviewURL)
}

func TestGenerateOverHTTP(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)
	base := "/v1/drafts/" + srv.newDraft(t).ID

	resp, body := srv.do(t, http.MethodPost, base+"/generate", "alice-token", builderhttp.GenerateRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation", decode[httpx.ErrorBody](t, body).Kind)

	resp, body = srv.do(t, http.MethodPost, base+"/generate", "alice-token", builderhttp.GenerateRequest{Type: "bio"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decode[builderhttp.GenerateResponse](t, body)
	require.Equal(t, "generated bio", out.Content)
	require.Equal(t, "generated bio", out.Draft.Draft.Profile.Bio)
}

func TestUpstreamConflictAndExpiry(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)
	v := srv.newDraft(t)
	base := "/v1/drafts/" + v.ID

	resp, _ := srv.do(t, http.MethodPatch, base+"/profile", "alice-token", map[string]string{"title": "Jane", "username": "taken"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := srv.do(t, http.MethodPost, base+"/profile/submit", "alice-token", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	eb := decode[httpx.ErrorBody](t, body)
	require.Equal(t, "conflict", eb.Kind)
	require.Equal(t, "Slug already in use", eb.Message)

	// a token our verifier accepts but upstream rejects
	resp, body = srv.do(t, http.MethodPost, "/v1/drafts", "bob-token", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bobDraft := decode[service.View](t, body)

	resp, _ = srv.do(t, http.MethodPatch, "/v1/drafts/"+bobDraft.ID+"/profile", "bob-token", map[string]string{"title": "Bob", "username": "bobby"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = srv.do(t, http.MethodPost, "/v1/drafts/"+bobDraft.ID+"/profile/submit", "bob-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, httpx.LoginPath, decode[httpx.ErrorBody](t, body).Redirect)

	// drafts are private
	resp, body = srv.do(t, http.MethodGet, base, "bob-token", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", decode[httpx.ErrorBody](t, body).Kind)
}

func TestSkillProficiencyOverHTTP(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)
	base := "/v1/drafts/" + srv.newDraft(t).ID

	resp, body := srv.do(t, http.MethodPost, base+"/skills", "alice-token", map[string]any{"name": "Go"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Equal(t, domain.DefaultProficiency, decode[builderhttp.ChildResponse](t, body).Child.Skill.Proficiency)

	resp, body = srv.do(t, http.MethodPost, base+"/skills", "alice-token", map[string]any{"name": "Go", "proficiency": 0})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	eb := decode[httpx.ErrorBody](t, body)
	require.Equal(t, "validation", eb.Kind)
	require.Contains(t, eb.Fields, "proficiency")

	resp, body = srv.do(t, http.MethodPost, base+"/skills", "alice-token", map[string]any{"name": "Rust", "proficiency": 9})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Equal(t, 9, decode[builderhttp.ChildResponse](t, body).Child.Skill.Proficiency)
}

func TestUnknownProfileFieldAndBadJSON(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)
	v := srv.newDraft(t)

	resp, body := srv.do(t, http.MethodPatch, "/v1/drafts/"+v.ID+"/profile", "alice-token", map[string]string{"slug": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, map[string]string{"slug": "unknown field"}, decode[httpx.ErrorBody](t, body).Fields)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/v1/drafts/"+v.ID+"/skills", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")
	resp, _ = srv.send(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartRequest(t *testing.T, method, url, contentType, name string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequestWithContext(t.Context(), method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer alice-token")
	return req
}

func TestMediaEndpoints(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)

	resp, body := srv.send(t, multipartRequest(t, http.MethodPost, srv.URL+"/v1/media", "text/plain", "notes.txt", []byte("hi")))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "must be an image", decode[httpx.ErrorBody](t, body).Fields["file"])

	resp, body = srv.send(t, multipartRequest(t, http.MethodPost, srv.URL+"/v1/media", "image/png", "avatar.png", []byte("\x89PNG")))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	item := decode[struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}](t, body)
	require.Equal(t, "https://cdn.example.com/avatar.png", item.URL)

	resp, body = srv.do(t, http.MethodGet, "/v1/media", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), item.ID)

	resp, _ = srv.do(t, http.MethodDelete, "/v1/media/"+item.ID, "alice-token", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = srv.do(t, http.MethodDelete, "/v1/media/"+item.ID, "alice-token", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Image not found.", decode[httpx.ErrorBody](t, body).Message)

	v := srv.newDraft(t)
	resp, body = srv.send(t, multipartRequest(t, http.MethodPost, srv.URL+"/v1/drafts/"+v.ID+"/media", "image/jpeg", "shot.jpg", []byte("jpg")))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Equal(t, "https://cdn.example.com/shot.jpg", decode[media.Result](t, body).URL)
}

func TestCatalogueEndpoints(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)

	resp, body := srv.do(t, http.MethodGet, "/v1/templates", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"classic"`)

	resp, body = srv.do(t, http.MethodGet, "/v1/portfolios", "alice-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"jane"`)

	resp, _ = srv.do(t, http.MethodGet, "/v1/public/portfolios/jane", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)

	resp, body := srv.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[builderhttp.HealthResponse](t, body).Status)

	resp, _ = srv.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	down := newServer(t, pinger{}, pinger{err: errors.New("redis: connection refused")}, false)
	resp, body = down.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	h := decode[builderhttp.HealthResponse](t, body)
	require.Equal(t, "degraded", h.Status)
	require.Equal(t, "ok", h.Checks.Database)
	require.Equal(t, "error: redis: connection refused", h.Checks.DraftCache)
	require.Equal(t, "error: no keys loaded", h.Checks.Keys)
}

func TestDraftEventsStream(t *testing.T) {
	srv := newServer(t, pinger{}, pinger{}, true)
	v := srv.newDraft(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/drafts/" + v.ID + "/events?access_token=alice-token"
	conn, resp, err := websocket.DefaultDialer.DialContext(t.Context(), wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first service.View
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, v.ID, first.ID)

	r, _ := srv.do(t, http.MethodPut, "/v1/drafts/"+v.ID+"/template", "alice-token", builderhttp.TemplateRequest{TemplateID: "minimal"})
	require.Equal(t, http.StatusOK, r.StatusCode)

	var next service.View
	require.NoError(t, conn.ReadJSON(&next))
	require.Greater(t, next.Draft.Version, first.Draft.Version)
	require.Equal(t, "minimal", *next.Draft.Profile.TemplateID)

	// someone else's draft is refused before the upgrade
	_, resp2, err := websocket.DefaultDialer.DialContext(t.Context(),
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/drafts/"+v.ID+"/events?access_token=bob-token", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestCloseStreamsEndsOpenStreams(t *testing.T) {
	var rt *builderhttp.Router
	srv := newServer(t, pinger{}, pinger{}, true, func(r *builderhttp.Router) { rt = r })
	v := srv.newDraft(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/drafts/" + v.ID + "/events?access_token=alice-token"

	conn, resp, err := websocket.DefaultDialer.DialContext(t.Context(), wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first service.View
	require.NoError(t, conn.ReadJSON(&first))

	rt.CloseStreams()
	rt.CloseStreams()

	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// new streams are refused once shutdown has begun
	_, resp2, err := websocket.DefaultDialer.DialContext(t.Context(), wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}
