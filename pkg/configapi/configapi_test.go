package configapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/internal/session"
	"github.com/wisbric/catalogcore/pkg/cache"
	"github.com/wisbric/catalogcore/pkg/cachekv"
	"github.com/wisbric/catalogcore/pkg/configresolver"
	"github.com/wisbric/catalogcore/pkg/dataset"
	"github.com/wisbric/catalogcore/pkg/upstream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testPepper = "test-pepper"

// newTestHandler builds a Handler over an in-memory store, a real session
// manager and revocation list, and an upstream client whose base URL is
// never dialed — the tests here exercise only store, session and
// dataset-engine logic and call no upstream-backed handler, for the same
// HTTPS constraint documented in pkg/addon's tests.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	store := configresolver.NewInMemoryStore()
	credKey := bytes.Repeat([]byte{0x42}, 32)
	revocation := configresolver.NewRevocationList()

	sessions, err := session.NewManager("0123456789abcdef0123456789abcdef", time.Hour, revocation)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	resolver := configresolver.New(store, configresolver.Config{MaxEntries: 10, TTL: time.Minute, CredentialKey: credKey}, testLogger())

	e := dataset.NewEngine(dataset.Options{
		RatingsURL: "https://unused.invalid/ratings.tsv.gz",
		BasicsURL:  "https://unused.invalid/basics.tsv.gz",
	}, testLogger())

	backend := cachekv.NewInProcessBackend(100)
	facade := cache.NewFacade(backend, "v1", testLogger())
	upstreamClient, err := upstream.NewClient(upstream.Options{
		BaseURL:      "https://upstream.example.invalid",
		AllowedHosts: []string{"upstream.example.invalid"},
		RPS:          1000,
		Timeout:      5 * time.Second,
	}, facade, testLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(upstreamClient.Close)

	return NewHandler(Dependencies{
		Store:         store,
		Resolver:      resolver,
		Sessions:      sessions,
		Revocation:    revocation,
		Upstream:      upstreamClient,
		Engine:        e,
		CredentialKey: credKey,
		Pepper:        testPepper,
		Logger:        testLogger(),
	})
}

func withParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if params != nil {
		req = withParams(req, params)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestLogin_CreatesNewConfigOnFirstUse(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/api/auth/login", LoginRequest{APIKey: "key-1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.IsNewUser {
		t.Fatalf("expected isNewUser = true")
	}
	if resp.Token == "" || resp.UserID == "" {
		t.Fatalf("expected token and userId to be populated, got %+v", resp)
	}
	if len(resp.Configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(resp.Configs))
	}
}

func TestLogin_ReturnsExistingConfigOnRepeatLogin(t *testing.T) {
	h := newTestHandler(t)

	first := doJSON(t, h.HandleLogin, http.MethodPost, "/api/auth/login", LoginRequest{APIKey: "key-2"}, nil)
	var firstResp LoginResponse
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := doJSON(t, h.HandleLogin, http.MethodPost, "/api/auth/login", LoginRequest{APIKey: "key-2"}, nil)
	var secondResp LoginResponse
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if secondResp.IsNewUser {
		t.Fatalf("expected isNewUser = false on repeat login")
	}
	if secondResp.UserID != firstResp.UserID {
		t.Fatalf("userId changed across logins: %q vs %q", firstResp.UserID, secondResp.UserID)
	}
}

func authedRequest(t *testing.T, h *Handler, apiKey string) (*http.Request, string) {
	t.Helper()
	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/api/auth/login", LoginRequest{APIKey: apiKey}, nil)
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sess, err := h.sessions.Verify(resp.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/configs", nil)
	req = req.WithContext(context.WithValue(req.Context(), sessionContextKey, sess))
	return req, resp.UserID
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/configs", nil)
	rec := httptest.NewRecorder()
	h.RequireAuth(http.HandlerFunc(h.HandleListConfigs)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_AcceptsIssuedToken(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.HandleLogin, http.MethodPost, "/api/auth/login", LoginRequest{APIKey: "key-3"}, nil)
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/configs", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	out := httptest.NewRecorder()
	h.RequireAuth(http.HandlerFunc(h.HandleListConfigs)).ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", out.Code, out.Body.String())
	}
}

func TestOwnership_CrossUserAccessIsForbidden(t *testing.T) {
	h := newTestHandler(t)

	reqA, userA := authedRequest(t, h, "key-a")
	_, userB := authedRequest(t, h, "key-b")

	req := withParams(reqA, map[string]string{"userId": userB})
	rec := httptest.NewRecorder()
	h.HandleGetConfig(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body=%s", rec.Code, rec.Body.String())
	}
	if userA == userB {
		t.Fatalf("expected distinct users for this test")
	}
}

func TestUpdateConfig_PersistsCatalogChanges(t *testing.T) {
	h := newTestHandler(t)
	req, userID := authedRequest(t, h, "key-c")

	update := UpdateConfigRequest{
		ConfigName: "renamed",
		Catalogs:   []configresolver.Catalog{{ID: "top-rated", Type: "movie", Name: "Top Rated", Enabled: true}},
	}
	sessReq := httptest.NewRequest(http.MethodPut, "/api/config/"+userID, bytes.NewReader(mustJSON(t, update)))
	sessReq.Header.Set("Content-Type", "application/json")
	sessReq = withParams(sessReq, map[string]string{"userId": userID})
	sessReq = sessReq.WithContext(context.WithValue(sessReq.Context(), sessionContextKey, req.Context().Value(sessionContextKey)))

	out := httptest.NewRecorder()
	h.HandleUpdateConfig(out, sessReq)

	if out.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", out.Code, out.Body.String())
	}
	var summary ConfigSummary
	if err := json.Unmarshal(out.Body.Bytes(), &summary); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if summary.ConfigName != "renamed" || len(summary.Catalogs) != 1 {
		t.Fatalf("update did not persist: %+v", summary)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestPreview_QueriesActiveSnapshot(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h.HandlePreview, http.MethodPost, "/api/preview", PreviewRequest{Type: "movie"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var resp PreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 0 || len(resp.Items) != 0 {
		t.Fatalf("expected empty preview against an unrefreshed engine, got %+v", resp)
	}
}
