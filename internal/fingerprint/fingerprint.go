// Package fingerprint derives the pseudo-unique device identifier used as
// the claim-eligibility key. The identifier is advisory: a client that
// blocks cookies looks like a new device on every request, which is why
// claiming keeps its own ledger check and rate limits on top.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/coupondrop/coupon-distribution-service/internal/config"
)

const (
	CookieName = "device_fp"
	cookieTTL  = 30 * 24 * time.Hour
)

type Generator struct {
	mode         string
	cookieDomain string
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		mode:         cfg.FingerprintMode,
		cookieDomain: cfg.CookieDomain,
	}
}

// FromRequest returns the fingerprint for this request. In persisted mode
// an existing cookie value wins so the same browser keeps one identity;
// otherwise a fresh value is minted and minted=true tells the caller to
// set the cookie. In fresh mode every request mints a new value.
func (g *Generator) FromRequest(r *http.Request) (fp string, minted bool) {
	if g.mode == config.FingerprintPersisted {
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			return c.Value, false
		}
	}
	return mint(r.UserAgent()), true
}

// SetCookie persists a minted fingerprint on the response. Cross-site
// attributes because the claiming frontend lives on another origin.
func (g *Generator) SetCookie(w http.ResponseWriter, fp string) {
	if g.mode != config.FingerprintPersisted {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    fp,
		Path:     "/",
		Domain:   g.cookieDomain,
		MaxAge:   int(cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// mint combines a high-resolution timestamp, a random token and a hash of
// the user agent.
func mint(userAgent string) string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 16)
	token := uuid.NewString()
	ua := sha256.Sum256([]byte(userAgent))
	return fmt.Sprintf("%s-%s-%s", ts, token, hex.EncodeToString(ua[:4]))
}
