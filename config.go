package goGate

import (
	"errors"
	"time"
)

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Challenge    ChallengeConfig
	Verification VerificationConfig
	Cooldown     CooldownConfig
	Token        TokenConfig
	Resources    []ResourceConfig
	Admin        AdminConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig defines a public type used by goGate APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	MinOperand       int
	MaxOperand       int
	AllowSubtraction bool
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig defines a public type used by goGate APIs.
//
// VerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationConfig struct {
	MaxAttempts         int
	SessionTTL          time.Duration
	ReissueOnExhaustion bool
	RedisPrefix         string
}

// CooldownConfig defines a public type used by goGate APIs.
//
// CooldownConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CooldownConfig struct {
	Window      time.Duration
	RedisPrefix string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by goGate APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	TTL         time.Duration
	Length      int
	SignedLinks bool
	SigningKey  []byte
	RedisPrefix string
}

// ResourceConfig defines a public type used by goGate APIs.
//
// ResourceConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResourceConfig struct {
	Name    string
	BaseURL string
}

// AdminConfig defines a public type used by goGate APIs.
//
// AdminConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AdminConfig struct {
	StatsUserID string
}

// AuditConfig defines a public type used by goGate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goGate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			MinOperand:       3,
			MaxOperand:       12,
			AllowSubtraction: true,
		},
		Verification: VerificationConfig{
			MaxAttempts:         3,
			SessionTTL:          5 * time.Minute,
			ReissueOnExhaustion: true,
			RedisPrefix:         "gcs",
		},
		Cooldown: CooldownConfig{
			Window:      10 * time.Second,
			RedisPrefix: "gcd",
		},
		Token: TokenConfig{
			TTL:         15 * time.Second,
			Length:      6,
			SignedLinks: false,
			RedisPrefix: "glt",
		},
		Resources: []ResourceConfig{
			{Name: "main"},
			{Name: "vouch"},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	if len(cfg.Resources) > 0 {
		out.Resources = make([]ResourceConfig, len(cfg.Resources))
		copy(out.Resources, cfg.Resources)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Challenge
	if c.Challenge.MinOperand < 0 {
		return errors.New("Challenge MinOperand must be >= 0")
	}
	if c.Challenge.MaxOperand < c.Challenge.MinOperand {
		return errors.New("Challenge MaxOperand must be >= MinOperand")
	}

	// Verification
	if c.Verification.MaxAttempts <= 0 {
		return errors.New("Verification MaxAttempts must be > 0")
	}
	if c.Verification.SessionTTL <= 0 {
		return errors.New("Verification SessionTTL must be > 0")
	}

	// Cooldown
	if c.Cooldown.Window <= 0 {
		return errors.New("Cooldown Window must be > 0")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.Length < 6 {
		return errors.New("Token Length must be >= 6")
	}
	if c.Token.SignedLinks && len(c.Token.SigningKey) < 32 {
		return errors.New("SignedLinks requires SigningKey length >= 256 bits")
	}

	// Resources
	if len(c.Resources) == 0 {
		return errors.New("at least one resource must be configured")
	}
	seen := make(map[string]struct{}, len(c.Resources))
	for _, res := range c.Resources {
		if res.Name == "" {
			return errors.New("resource Name must not be empty")
		}
		if _, dup := seen[res.Name]; dup {
			return errors.New("resource names must be unique")
		}
		seen[res.Name] = struct{}{}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
