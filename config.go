package goChallenge

import (
	"errors"
	"time"
)

// Config defines a public type used by goChallenge APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Verifier  VerifierConfig
	Challenge ChallengeConfig
	Proof     ProofConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
VERIFIER CONFIG
====================================
*/

// VerifierConfig defines a public type used by goChallenge APIs.
//
// VerifierConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifierConfig struct {
	// ContainerKey is the default container element key used when
	// GetOrCreateVerifier is called with an empty key.
	ContainerKey string
	// Mode is the default widget presentation. Visibility is an injected
	// policy; the engine never derives it from the environment.
	Mode PresentationMode
	// TeardownSettle is the minimum pause after teardown before a new render
	// begins, so the provider's own asynchronous cleanup is observable first.
	TeardownSettle time.Duration
	// ContainerSettle is the minimum pause after container creation before
	// the provider is asked to render into it.
	ContainerSettle time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig defines a public type used by goChallenge APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	// CodeDigits is the exact one-time code length accepted by VerifyCode.
	CodeDigits int
	// SessionTTL bounds how long a pending challenge session marker lives.
	SessionTTL time.Duration
	// BypassVerification drops the live-handle requirement for SMS purposes.
	// Intended for local development against provider emulators only.
	BypassVerification bool

	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxSendPerWindow         int
	SendWindow               time.Duration
	MaxVerifyPerWindow       int
	VerifyWindow             time.Duration
}

/*
====================================
PROOF CONFIG
====================================
*/

// ProofConfig defines a public type used by goChallenge APIs.
//
// ProofConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProofConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goChallenge APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goChallenge APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Verifier: VerifierConfig{
			ContainerKey:    "verifier-container",
			Mode:            ModeInvisible,
			TeardownSettle:  100 * time.Millisecond,
			ContainerSettle: 50 * time.Millisecond,
		},
		Challenge: ChallengeConfig{
			CodeDigits:               6,
			SessionTTL:               5 * time.Minute,
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxSendPerWindow:         5,
			SendWindow:               10 * time.Minute,
			MaxVerifyPerWindow:       10,
			VerifyWindow:             10 * time.Minute,
		},
		Proof: ProofConfig{
			Enabled:       false,
			TTL:           10 * time.Minute,
			SigningMethod: "hs256",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Proof.PrivateKey = cloneBytes(cfg.Proof.PrivateKey)
	out.Proof.PublicKey = cloneBytes(cfg.Proof.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Verifier.ContainerKey == "" {
		return errors.New("Verifier ContainerKey must not be empty")
	}
	switch c.Verifier.Mode {
	case ModeVisible, ModeInvisible:
	default:
		return errors.New("Verifier Mode must be visible or invisible")
	}
	if c.Verifier.TeardownSettle < 0 || c.Verifier.TeardownSettle > 5*time.Second {
		return errors.New("Verifier TeardownSettle out of range")
	}
	if c.Verifier.ContainerSettle < 0 || c.Verifier.ContainerSettle > 5*time.Second {
		return errors.New("Verifier ContainerSettle out of range")
	}

	if c.Challenge.CodeDigits < 6 || c.Challenge.CodeDigits > 10 {
		return errors.New("Challenge CodeDigits must be between 6 and 10")
	}
	if c.Challenge.SessionTTL <= 0 {
		return errors.New("Challenge SessionTTL must be positive")
	}
	if c.Challenge.EnableIdentifierThrottle || c.Challenge.EnableIPThrottle {
		if c.Challenge.MaxSendPerWindow <= 0 || c.Challenge.SendWindow <= 0 {
			return errors.New("Challenge send throttle requires MaxSendPerWindow and SendWindow")
		}
		if c.Challenge.MaxVerifyPerWindow <= 0 || c.Challenge.VerifyWindow <= 0 {
			return errors.New("Challenge verify throttle requires MaxVerifyPerWindow and VerifyWindow")
		}
	}

	if c.Proof.Enabled {
		if c.Proof.TTL <= 0 {
			return errors.New("Proof TTL must be positive when proof issuance is enabled")
		}
		switch c.Proof.SigningMethod {
		case "hs256":
			if len(c.Proof.PrivateKey) == 0 {
				return errors.New("Proof hs256 requires a private key")
			}
		case "ed25519":
			if len(c.Proof.PrivateKey) == 0 {
				return errors.New("Proof ed25519 requires a private key")
			}
		default:
			return errors.New("Proof SigningMethod must be hs256 or ed25519")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must not be negative")
	}

	return nil
}
