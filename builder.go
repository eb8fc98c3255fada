package goChallenge

import (
	"errors"

	"github.com/MrEthical07/goChallenge/proof"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goChallenge APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	provider  IdentityProvider
	host      ContainerHost
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithProvider describes the withprovider operation and its observable behavior.
func (b *Builder) WithProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithContainerHost describes the withcontainerhost operation and its observable behavior.
func (b *Builder) WithContainerHost(h ContainerHost) *Builder {
	b.host = h
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build is single-use; a Builder cannot produce two engines.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}
	if b.host == nil {
		return nil, errors.New("container host required")
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		provider: b.provider,
		host:     b.host,
	}

	engine.verifier = newVerifierManager(b.provider, b.host, cfg.Verifier)
	engine.challengeStore = newChallengeSessionStore(b.redis)
	engine.challengeLimiter = newChallengeLimiter(b.redis, cfg.Challenge)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.Proof.Enabled {
		pm, err := proof.NewManager(proof.Config{
			TTL:           cfg.Proof.TTL,
			SigningMethod: proof.SigningMethod(cfg.Proof.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Proof.PrivateKey),
			PublicKey:     cloneBytes(cfg.Proof.PublicKey),
			Issuer:        cfg.Proof.Issuer,
			Leeway:        cfg.Proof.Leeway,
		})
		if err != nil {
			return nil, err
		}
		engine.proof = pm
	}

	b.built = true

	return engine, nil
}
