package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Policy values for the claim subsystem. The source history tried several
// combinations; the defaults below are the documented reference choice.
const (
	EligibilityFingerprint = "fingerprint"
	EligibilityIP          = "ip"
	EligibilityBoth        = "both"

	FingerprintPersisted = "persisted"
	FingerprintFresh     = "fresh"

	CooldownWindow    = "window"
	CooldownPermanent = "permanent"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Admin session
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`

	// Claim policy
	EligibilityKey  string        `env:"ELIGIBILITY_KEY" envDefault:"fingerprint"`
	FingerprintMode string        `env:"FINGERPRINT_MODE" envDefault:"persisted"`
	CooldownPolicy  string        `env:"COOLDOWN_POLICY" envDefault:"window"`
	Cooldown        time.Duration `env:"COOLDOWN_WINDOW" envDefault:"24h"`

	// Rate limiting (per client IP)
	GlobalRateLimit  int           `env:"GLOBAL_RATE_LIMIT" envDefault:"100"`
	GlobalRateWindow time.Duration `env:"GLOBAL_RATE_WINDOW" envDefault:"15m"`
	ClaimRateLimit   int           `env:"CLAIM_RATE_LIMIT" envDefault:"3"`
	ClaimRateWindow  time.Duration `env:"CLAIM_RATE_WINDOW" envDefault:"1m"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EligibilityKey {
	case EligibilityFingerprint, EligibilityIP, EligibilityBoth:
	default:
		return fmt.Errorf("invalid ELIGIBILITY_KEY %q", c.EligibilityKey)
	}
	switch c.FingerprintMode {
	case FingerprintPersisted, FingerprintFresh:
	default:
		return fmt.Errorf("invalid FINGERPRINT_MODE %q", c.FingerprintMode)
	}
	switch c.CooldownPolicy {
	case CooldownWindow, CooldownPermanent:
	default:
		return fmt.Errorf("invalid COOLDOWN_POLICY %q", c.CooldownPolicy)
	}
	return nil
}
