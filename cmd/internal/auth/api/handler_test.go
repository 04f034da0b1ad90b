package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"notes/cmd/identity"
	"notes/cmd/internal/auth/session"
	"notes/cmd/security/password"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "user@example.com"
	testPassword = "correct-horse"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	router  http.Handler
	users   *identity.MemoryStore
	grants  *session.MemoryStore
	clock   *testClock
	metrics *Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sessCfg := session.DefaultConfig()
	sessCfg.JWTSecret = []byte("test-jwt-secret")
	sessCfg.CookieSecret = []byte(strings.Repeat("k", 32))
	sessCfg.Password = password.DefaultConfig()
	sessCfg.Password.Cost = bcrypt.MinCost

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := identity.NewMemoryStore()
	grants := session.NewMemoryStore()

	mgr, err := session.NewManager(sessCfg, users, grants, sessCfg.Password, session.WithLogger(log))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	metrics := NewMetrics(prometheus.NewRegistry())

	h, err := NewHandler(log, DefaultConfig(), mgr, WithClock(clock.Now), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	r := chi.NewRouter()
	h.Routes(r)
	r.With(h.RequireAuth).Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id, _ := session.UserIDFromContext(r.Context())
		WriteJSON(w, http.StatusOK, map[string]int64{"id": id})
	})

	return &testEnv{router: r, users: users, grants: grants, clock: clock, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/register", credentialsRequest{Email: testEmail, Password: testPassword}, nil, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rec.Code, rec.Body.String())
	}
}

// login returns the access token and the refresh cookie.
func (e *testEnv) login(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", credentialsRequest{Email: testEmail, Password: testPassword}, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	return accessToken(t, rec), refreshCookie(t, rec)
}

func (e *testEnv) userID(t *testing.T) int64 {
	t.Helper()
	ua, err := e.users.GetUserAuthByEmail(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("GetUserAuthByEmail: %v", err)
	}
	return ua.User.ID
}

func (e *testEnv) grantCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.grants.CountGrants(context.Background(), e.userID(t))
	if err != nil {
		t.Fatalf("CountGrants: %v", err)
	}
	return n
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode token body: %v", err)
	}
	if body.AccessToken == "" {
		t.Fatalf("empty access token in %s", rec.Body.String())
	}
	return body.AccessToken
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookieName {
			found = append(found, c)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one refresh cookie, got %d", len(found))
	}
	return found[0]
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestAuthAPI_RegisterThenLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/register", credentialsRequest{Email: testEmail, Password: testPassword}, nil, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status=%d", rec.Code)
	}
	var msg messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil || msg.Message != "User registered successfully" {
		t.Fatalf("unexpected register body %s", rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/login", credentialsRequest{Email: testEmail, Password: testPassword}, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	accessToken(t, rec)
	c := refreshCookie(t, rec)
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("refresh cookie flags: httpOnly=%v secure=%v sameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if strings.Contains(rec.Body.String(), c.Value) {
		t.Fatalf("refresh token must not appear in the response body")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control=%q", got)
	}
	if got := e.grantCount(t); got != 1 {
		t.Fatalf("grants=%d want=1", got)
	}
}

func TestAuthAPI_RegisterTwice(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	rec := e.do(t, http.MethodPost, "/register", credentialsRequest{Email: testEmail, Password: "other-password"}, nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d want=409", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Already registered" {
		t.Fatalf("error=%q", got)
	}
	if e.users.Count() != 1 {
		t.Fatalf("users=%d want=1", e.users.Count())
	}
}

func TestAuthAPI_RegisterInvalidInput(t *testing.T) {
	e := newTestEnv(t)

	cases := []any{
		"{not json",
		`{"email":"a@b.co","password":"long-enough","admin":true}`,
		`{"email":"a@b.co","password":"long-enough"} {}`,
		credentialsRequest{Email: "nope", Password: testPassword},
		credentialsRequest{Email: testEmail, Password: "short"},
	}
	for _, body := range cases {
		rec := e.do(t, http.MethodPost, "/register", body, nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status=%d want=400", body, rec.Code)
		}
		if errorMessage(t, rec) == "" {
			t.Fatalf("body %v: empty error message", body)
		}
	}
	if e.users.Count() != 0 {
		t.Fatalf("no user may be created")
	}
}

func TestAuthAPI_LoginFailure_NoEnumeration(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	unknown := e.do(t, http.MethodPost, "/login", credentialsRequest{Email: "nobody@example.com", Password: testPassword}, nil, "")
	wrong := e.do(t, http.MethodPost, "/login", credentialsRequest{Email: testEmail, Password: "wrong-password"}, nil, "")

	for _, rec := range []*httptest.ResponseRecorder{unknown, wrong} {
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status=%d want=404", rec.Code)
		}
		if got := errorMessage(t, rec); got != "Invalid email or password" {
			t.Fatalf("error=%q", got)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("failed login must not set cookies")
		}
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", unknown.Body.String(), wrong.Body.String())
	}
}

func TestAuthAPI_RefreshRotatesAndReuseWipes(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	access1, cookie1 := e.login(t)

	e.clock.Advance(2 * time.Second)
	rec := e.do(t, http.MethodGet, "/refreshToken", nil, cookie1, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status=%d body=%s", rec.Code, rec.Body.String())
	}
	access2 := accessToken(t, rec)
	cookie2 := refreshCookie(t, rec)
	if access2 == access1 || cookie2.Value == cookie1.Value {
		t.Fatalf("refresh must issue a new pair")
	}
	if got := e.grantCount(t); got != 1 {
		t.Fatalf("grants after rotation=%d want=1", got)
	}

	e.clock.Advance(time.Second)
	rec = e.do(t, http.MethodGet, "/refreshToken", nil, cookie1, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reuse status=%d want=401", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Invalid token, please log in again" {
		t.Fatalf("error=%q", got)
	}
	if got := e.grantCount(t); got != 0 {
		t.Fatalf("grants after reuse=%d want=0", got)
	}

	if got := testutil.ToFloat64(e.metrics.events.WithLabelValues("refresh", "invalid")); got != 1 {
		t.Fatalf("refresh/invalid counter=%v want=1", got)
	}
	if got := testutil.ToFloat64(e.metrics.events.WithLabelValues("refresh", "ok")); got != 1 {
		t.Fatalf("refresh/ok counter=%v want=1", got)
	}
}

func TestAuthAPI_RefreshIsSingleUse(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	_, cookie := e.login(t)

	e.clock.Advance(time.Second)
	if rec := e.do(t, http.MethodPost, "/refreshToken", nil, cookie, ""); rec.Code != http.StatusOK {
		t.Fatalf("first refresh status=%d", rec.Code)
	}
	e.clock.Advance(time.Second)
	if rec := e.do(t, http.MethodPost, "/refreshToken", nil, cookie, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("second refresh status=%d want=401", rec.Code)
	}
}

func TestAuthAPI_RefreshExpired(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	_, oldCookie := e.login(t)
	e.clock.Advance(time.Hour)
	e.login(t)
	if got := e.grantCount(t); got != 2 {
		t.Fatalf("grants=%d want=2", got)
	}

	e.clock.Advance(7 * 24 * time.Hour)
	rec := e.do(t, http.MethodGet, "/refreshToken", nil, oldCookie, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want=401", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Token expired, please log in again" {
		t.Fatalf("error=%q", got)
	}
	if got := e.grantCount(t); got != 1 {
		t.Fatalf("grants after expiry=%d want=1", got)
	}
}

func TestAuthAPI_RefreshForged(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	e.login(t)
	e.clock.Advance(time.Second)
	e.login(t)

	forger, err := session.NewCodec([]byte("attacker-secret"))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	now := e.clock.Now()
	forged, err := forger.Sign(e.userID(t), session.KindRefresh, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/refreshToken", nil, &http.Cookie{Name: RefreshCookieName, Value: forged}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want=401", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Invalid token, please log in again" {
		t.Fatalf("error=%q", got)
	}
	if got := e.grantCount(t); got != 0 {
		t.Fatalf("grants=%d want=0", got)
	}
}

func TestAuthAPI_RefreshWithoutCookie(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	e.login(t)

	rec := e.do(t, http.MethodGet, "/refreshToken", nil, nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want=401", rec.Code)
	}
	if got := errorMessage(t, rec); got != "No refresh token in cookies" {
		t.Fatalf("error=%q", got)
	}
	if got := e.grantCount(t); got != 1 {
		t.Fatalf("grants=%d want=1", got)
	}
}

func TestAuthAPI_Logout(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	_, cookie := e.login(t)

	rec := e.do(t, http.MethodPost, "/logout", nil, cookie, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d body=%s", rec.Code, rec.Body.String())
	}
	if c := refreshCookie(t, rec); c.MaxAge >= 0 {
		t.Fatalf("logout must expire the cookie, got MaxAge=%d", c.MaxAge)
	}
	if got := e.grantCount(t); got != 0 {
		t.Fatalf("grants=%d want=0", got)
	}

	rec = e.do(t, http.MethodPost, "/logout", nil, nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("logout without cookie status=%d want=401", rec.Code)
	}
}

func TestAuthAPI_RequireAuthAndLogoutAll(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	access, _ := e.login(t)
	e.clock.Advance(time.Second)
	e.login(t)

	for _, bearer := range []string{"", "not-a-token"} {
		rec := e.do(t, http.MethodGet, "/whoami", nil, nil, bearer)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("bearer %q: status=%d want=401", bearer, rec.Code)
		}
		if got := errorMessage(t, rec); got != "Unauthorized" {
			t.Fatalf("error=%q", got)
		}
	}

	rec := e.do(t, http.MethodGet, "/whoami", nil, nil, access)
	if rec.Code != http.StatusOK {
		t.Fatalf("whoami status=%d", rec.Code)
	}
	var who map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &who); err != nil || who["id"] != e.userID(t) {
		t.Fatalf("unexpected whoami body %s", rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/logout/all", nil, nil, access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout/all status=%d", rec.Code)
	}
	if got := e.grantCount(t); got != 0 {
		t.Fatalf("grants=%d want=0", got)
	}
}

func TestAuthAPI_ConcurrentRefreshExactlyOneWins(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)
	_, cookie := e.login(t)
	e.clock.Advance(time.Second)

	const n = 2
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/refreshToken", nil)
			req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
			rec := httptest.NewRecorder()
			e.router.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	var ok, unauthorized int
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusUnauthorized:
			unauthorized++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if ok != 1 || unauthorized != 1 {
		t.Fatalf("ok=%d unauthorized=%d", ok, unauthorized)
	}
}

func TestNewHandler_RequiresManager(t *testing.T) {
	if _, err := NewHandler(nil, DefaultConfig(), nil); err == nil {
		t.Fatalf("expected error for nil manager")
	}
}
