package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetRefreshCookie(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	rr := httptest.NewRecorder()
	exp := time.Now().UTC().Add(30 * time.Minute)
	h.setRefreshCookie(rr, "refresh-token-123", exp)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "refreshToken" || c.Value != "refresh-token-123" {
		t.Fatalf("unexpected cookie: %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie flags: httpOnly=%v secure=%v sameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}
}

func TestExpireRefreshCookie(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	rr := httptest.NewRecorder()
	h.expireRefreshCookie(rr)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Fatalf("expected an expired cookie, got %+v", cookies[0])
	}
}

func TestRefreshTokenFromCookie(t *testing.T) {
	h := &Handler{cfg: DefaultConfig()}

	req := httptest.NewRequest(http.MethodGet, "/refreshToken", nil)
	if got := h.refreshTokenFromCookie(req); got != "" {
		t.Fatalf("expected empty token without cookie, got %q", got)
	}

	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "tok-123"})
	if got := h.refreshTokenFromCookie(req); got != "tok-123" {
		t.Fatalf("unexpected cookie token: %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Bearer abc":      "abc",
		"bearer  abc ":    "abc",
		"Basic abc":       "",
		"Bearer":          "",
		"Token abc extra": "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := bearerToken(req); got != want {
			t.Fatalf("bearerToken(%q)=%q want=%q", header, got, want)
		}
	}
}
