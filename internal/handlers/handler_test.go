// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory stores, a fake designer and a miniredis-backed session store
// and page cache.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/blob"
	"sitefoundry/internal/cache"
	"sitefoundry/internal/editor"
	"sitefoundry/internal/middleware"
	"sitefoundry/internal/models"
	"sitefoundry/internal/queue"
	"sitefoundry/internal/render"
	"sitefoundry/internal/session"
	"sitefoundry/internal/store"
	"sitefoundry/internal/theme"
)

// --- in-memory stores ---

type fakeClients struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Client
	err  error
}

func newFakeClients() *fakeClients {
	return &fakeClients{byID: make(map[uuid.UUID]models.Client)}
}

func (f *fakeClients) get(id uuid.UUID) *models.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil
	}
	return &c
}

func (f *fakeClients) FindByID(_ context.Context, id uuid.UUID) (*models.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.get(id), nil
}

func (f *fakeClients) FindBySlugOrID(_ context.Context, key string) (*models.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.Slug == key {
			return &c, nil
		}
	}
	if id, err := uuid.Parse(key); err == nil {
		if c, ok := f.byID[id]; ok {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeClients) FindByEmail(_ context.Context, email string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.Email != "" && strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeClients) List(_ context.Context) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Client, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeClients) Upsert(_ context.Context, c *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	if prev, ok := f.byID[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeClients) update(id uuid.UUID, fn func(c *models.Client)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&c)
	c.UpdatedAt = time.Now()
	f.byID[id] = c
	return nil
}

func (f *fakeClients) SetPayment(_ context.Context, id uuid.UUID, status models.PaymentStatus) error {
	return f.update(id, func(c *models.Client) { c.PaymentStatus = status })
}

func (f *fakeClients) SetPortalAccess(_ context.Context, id uuid.UUID, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	return f.update(id, func(c *models.Client) {
		c.Email = email
		c.PasswordHash = string(hash)
	})
}

func (f *fakeClients) CheckPassword(c *models.Client, password string) bool {
	if c == nil || c.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

func (f *fakeClients) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeClients) Fingerprints(_ context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, c := range f.byID {
		lead := models.Lead{Name: c.Name}
		if c.Lead != nil {
			lead = *c.Lead
		}
		out[lead.Fingerprint()] = true
	}
	return out, nil
}

type fakeSkeletons struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Skeleton
}

func newFakeSkeletons() *fakeSkeletons {
	return &fakeSkeletons{byID: make(map[uuid.UUID]models.Skeleton)}
}

func (f *fakeSkeletons) List(_ context.Context) ([]models.Skeleton, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Skeleton, 0, len(f.byID))
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSkeletons) FindByID(_ context.Context, id uuid.UUID) (*models.Skeleton, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSkeletons) Upsert(_ context.Context, sk *models.Skeleton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sk.ID == uuid.Nil {
		sk.ID = uuid.New()
	}
	sk.UpdatedAt = time.Now()
	f.byID[sk.ID] = *sk
	return nil
}

func (f *fakeSkeletons) SetApproved(_ context.Context, id uuid.UUID, approved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Approved = approved
	f.byID[id] = s
	return nil
}

func (f *fakeSkeletons) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeTemplates struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.Template
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{byID: make(map[uuid.UUID]models.Template)}
}

func (f *fakeTemplates) List(_ context.Context) ([]models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Template, 0, len(f.byID))
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTemplates) ListApproved(ctx context.Context) ([]models.Template, error) {
	all, _ := f.List(ctx)
	out := all[:0]
	for _, t := range all {
		if t.Approved {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeTemplates) Upsert(_ context.Context, t *models.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.UpdatedAt = time.Now()
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTemplates) SetApproved(_ context.Context, id uuid.UUID, approved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Approved = approved
	f.byID[id] = t
	return nil
}

func (f *fakeTemplates) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
	trial  *models.TrialSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (f *fakeSettings) Get(_ context.Context, key, fallback string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettings) Trial(_ context.Context, def models.TrialSettings) (models.TrialSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trial != nil {
		return *f.trial, nil
	}
	return def, nil
}

func (f *fakeSettings) SetTrial(_ context.Context, t models.TrialSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trial = &t
	return nil
}

// --- AI and browser fakes ---

type fakeDesigner struct {
	html       string
	err        error
	archetypes []models.BrandArchetype
	briefs     []ai.Brief
}

func (f *fakeDesigner) GenerateSite(_ context.Context, b ai.Brief) (string, error) {
	f.briefs = append(f.briefs, b)
	return f.html, f.err
}

func (f *fakeDesigner) GenerateSkeleton(_ context.Context, blueprint string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "<html><body><h1>{{NAME}}</h1><p>" + blueprint + "</p></body></html>", nil
}

func (f *fakeDesigner) SuggestArchetypes(_ context.Context, _ string) ([]models.BrandArchetype, error) {
	return f.archetypes, f.err
}

type fakeProviders struct {
	active    string
	available map[string]bool
}

func (f *fakeProviders) ActiveName() string { return f.active }

func (f *fakeProviders) SetActive(name string) error {
	if !f.available[name] {
		return errors.New("not available")
	}
	f.active = name
	return nil
}

type fakeCapturer struct {
	png []byte
	err error
	doc string
}

func (f *fakeCapturer) Capture(_ context.Context, doc string) ([]byte, error) {
	f.doc = doc
	return f.png, f.err
}

func (f *fakeCapturer) Browser() (string, error) { return "/usr/bin/chromium", nil }

// fakeRewriter appends the instruction as a paragraph.
type fakeRewriter struct {
	err error
}

func (f *fakeRewriter) EditSite(_ context.Context, html, instruction string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return strings.Replace(html, "</body>", "<p>"+instruction+"</p></body>", 1), nil
}

func (f *fakeRewriter) FixResponsiveness(_ context.Context, html string) (string, error) {
	return html, f.err
}

// leadBuilder turns a lead into a draft client without any AI call.
type leadBuilder struct{}

func (leadBuilder) Build(_ context.Context, id string, lead models.Lead) (*models.Client, error) {
	if lead.Name == "falha" {
		return nil, errors.New("build failed")
	}
	l := lead
	return &models.Client{
		ID:          uuid.MustParse(id),
		Name:        lead.Name,
		Slug:        strings.ToLower(strings.ReplaceAll(lead.Name, " ", "-")),
		Status:      models.ClientStatusGenerated,
		SiteContent: "<html><body><h1>" + lead.Name + "</h1></body></html>",
		Lead:        &l,
		TrialHours:  168,
	}, nil
}

// clientPersister saves editor sessions of clients into fakeClients.
type clientPersister struct {
	clients *fakeClients
	err     error
}

func (p *clientPersister) Persist(_ context.Context, target editor.Target, html string, cfg theme.Config) error {
	if p.err != nil {
		return p.err
	}
	return p.clients.update(target.ID, func(c *models.Client) {
		c.SiteContent = html
		c.Theme = cfg
	})
}

// --- environment ---

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Redis     *miniredis.Miniredis
	Renderer  *render.Renderer
	Sessions  *session.Store
	PageCache *cache.PageCache
	Channels  *blob.Channels
	Clients   *fakeClients
	Skeletons *fakeSkeletons
	Templates *fakeTemplates
	Settings  *fakeSettings
	Designer  *fakeDesigner
	Providers *fakeProviders
	Capturer  *fakeCapturer
	Rewriter  *fakeRewriter
	Persister *clientPersister
	Editors   *editor.Manager
	Queue     *queue.Queue
	Processor *queue.Processor
	Admin     *Admin
	Auth      *Auth
	Public    *Public
	Editor    *Editor
	Portal    *Portal
	QueueH    *Queue
}

const testBaseHost = "sites.test"

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	vk := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { vk.Close() })

	renderer, err := render.New(true)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		Redis:     mr,
		Renderer:  renderer,
		Sessions:  session.NewStore(vk, false),
		PageCache: cache.NewPageCache(vk, time.Minute),
		Channels:  blob.NewChannels(blob.NewMemoryStore(), time.Minute, time.Hour),
		Clients:   newFakeClients(),
		Skeletons: newFakeSkeletons(),
		Templates: newFakeTemplates(),
		Settings:  newFakeSettings(),
		Designer:  &fakeDesigner{html: "<html><body><h1>Gerado</h1></body></html>"},
		Providers: &fakeProviders{active: "gemini", available: map[string]bool{"gemini": true, "claude": true}},
		Capturer:  &fakeCapturer{png: []byte("\x89PNG\r\n\x1a\nfake")},
		Rewriter:  &fakeRewriter{},
		Queue:     queue.New(),
	}
	env.Persister = &clientPersister{clients: env.Clients}
	env.Editors = editor.NewManager(env.Rewriter, env.Persister, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.Processor = queue.NewProcessor(env.Queue, leadBuilder{}, queue.SinkFunc(func(ctx context.Context, c *models.Client) error {
		return env.Clients.Upsert(ctx, c)
	}), -1)

	env.Admin = NewAdmin(renderer, env.Clients, env.Skeletons, env.Templates, env.Settings,
		env.Channels, env.PageCache, env.Editors, env.Designer, env.Providers, env.Capturer, nil,
		AdminOptions{
			BaseHost:     testBaseHost,
			DefaultTrial: models.TrialSettings{Value: 7, Unit: models.TrialDays},
			Providers: []AIProviderInfo{
				{Name: "gemini", Label: "Google Gemini", HasKey: true, Model: "gemini-2.5-flash", KeyEnvVar: "GEMINI_API_KEY"},
				{Name: "claude", Label: "Anthropic Claude", HasKey: true, Model: "claude-sonnet-4-5", KeyEnvVar: "CLAUDE_API_KEY"},
				{Name: "openai", Label: "OpenAI", Model: "gpt-4o-mini", KeyEnvVar: "OPENAI_API_KEY"},
			},
		})
	env.Auth = NewAuth(renderer, env.Sessions, env.Settings, AdminCredentials{
		Email:    "ops@agencia.test",
		Password: "segredo-forte",
	})
	env.Public = NewPublic(renderer, env.Clients, env.Channels, env.PageCache, testBaseHost)
	env.Editor = NewEditor(renderer, env.Editors, env.Clients, env.Skeletons, env.Templates, nil)
	env.Portal = NewPortal(renderer, env.Sessions, env.Clients, env.Editor)
	env.QueueH = NewQueue(ctx, renderer, env.Queue, env.Processor, env.Templates, env.Clients)
	return env
}

// addClient stores a client created an hour ago with a one-week trial.
func (env *testEnv) addClient(t *testing.T, mutate func(c *models.Client)) *models.Client {
	t.Helper()
	c := &models.Client{
		ID:            uuid.New(),
		Name:          "Padaria Sol",
		Slug:          "padaria-sol",
		Industry:      "padaria",
		Status:        models.ClientStatusApproved,
		PaymentStatus: models.PaymentPending,
		SiteContent:   `<html><head><title>Padaria</title></head><body><h1>Padaria Sol</h1><img src="https://cdn.test/pao.jpg"></body></html>`,
		TrialHours:    168,
		CreatedAt:     time.Now().Add(-time.Hour),
	}
	if mutate != nil {
		mutate(c)
	}
	if err := env.Clients.Upsert(context.Background(), c); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return c
}

// adminSession returns a fully signed-in admin session.
func adminSession() *session.Data {
	return &session.Data{Role: models.RoleAdmin, Email: "ops@agencia.test", TwoFADone: true}
}

// clientSession returns a portal session for id.
func clientSession(id uuid.UUID) *session.Data {
	return &session.Data{Role: models.RoleClient, Email: "dono@padaria.test", ClientID: id, TwoFADone: true}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return middleware.WithSession(ctx, data)
}

// withChiURLParams adds chi URL parameters, given as key/value pairs.
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON body and an optional session.
func jsonRequest(t *testing.T, method, target string, body any, sess *session.Data) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	if sess != nil {
		r = r.WithContext(ctxWithSession(r.Context(), sess))
	}
	return r
}

// decodeBody decodes a JSON response into a map.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
