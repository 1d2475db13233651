package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coupondrop/coupon-distribution-service/internal/config"
)

func persistedGen() *Generator {
	return NewGenerator(&config.Config{FingerprintMode: config.FingerprintPersisted})
}

func TestPersistedModeReusesCookie(t *testing.T) {
	g := persistedGen()

	r := httptest.NewRequest("POST", "/claim", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "stable-identity"})

	fp, minted := g.FromRequest(r)
	if minted {
		t.Error("minted a new fingerprint despite an existing cookie")
	}
	if fp != "stable-identity" {
		t.Errorf("fp = %q, want cookie value", fp)
	}
}

func TestPersistedModeMintsWithoutCookie(t *testing.T) {
	g := persistedGen()

	r := httptest.NewRequest("POST", "/claim", nil)
	r.Header.Set("User-Agent", "test-agent")

	fp, minted := g.FromRequest(r)
	if !minted {
		t.Error("expected a minted fingerprint with no cookie")
	}
	if fp == "" {
		t.Fatal("empty fingerprint")
	}

	fp2, _ := g.FromRequest(httptest.NewRequest("POST", "/claim", nil))
	if fp == fp2 {
		t.Error("two mints produced the same fingerprint")
	}
}

func TestFreshModeIgnoresCookie(t *testing.T) {
	g := NewGenerator(&config.Config{FingerprintMode: config.FingerprintFresh})

	r := httptest.NewRequest("POST", "/claim", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "stable-identity"})

	fp, minted := g.FromRequest(r)
	if !minted {
		t.Error("fresh mode must mint every request")
	}
	if fp == "stable-identity" {
		t.Error("fresh mode reused the cookie value")
	}
}

func TestSetCookieAttributes(t *testing.T) {
	g := persistedGen()

	w := httptest.NewRecorder()
	g.SetCookie(w, "some-fp")

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || c.Value != "some-fp" {
		t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("cookie missing cross-site attributes: %+v", c)
	}
	if c.MaxAge != 30*24*60*60 {
		t.Errorf("MaxAge = %d, want 30 days", c.MaxAge)
	}
}

func TestFreshModeSetsNoCookie(t *testing.T) {
	g := NewGenerator(&config.Config{FingerprintMode: config.FingerprintFresh})

	w := httptest.NewRecorder()
	g.SetCookie(w, "some-fp")

	if len(w.Result().Cookies()) != 0 {
		t.Error("fresh mode must not persist a cookie")
	}
}
