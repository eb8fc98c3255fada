package goChallenge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goChallenge/proof"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func newTestChallengeEngine(t *testing.T, mutate func(*Config)) (*Engine, *mockProvider, *miniredis.Miniredis) {
	t.Helper()

	mr, client := newTestRedis(t)

	host := NewMemoryContainerHost()
	provider := &mockProvider{host: host}

	cfg := testVerifierConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine := &Engine{
		config:           cfg,
		provider:         provider,
		host:             host,
		verifier:         newVerifierManager(provider, host, cfg.Verifier),
		challengeStore:   newChallengeSessionStore(client),
		challengeLimiter: newChallengeLimiter(client, cfg.Challenge),
		metrics:          NewMetrics(cfg.Metrics),
	}
	return engine, provider, mr
}

func mustVerifierHandle(t *testing.T, engine *Engine) *VerifierHandle {
	t.Helper()
	handle, err := engine.GetOrCreateVerifier(context.Background(), "", "", VerifierCallbacks{})
	if err != nil {
		t.Fatalf("GetOrCreateVerifier failed: %v", err)
	}
	return handle
}

func TestSendAndVerifyCode(t *testing.T) {
	engine, provider, mr := newTestChallengeEngine(t, nil)
	ctx := context.Background()

	handle := mustVerifierHandle(t, engine)

	session, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle)
	if err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}
	if session.SessionID == "" || session.Purpose != PurposeSignin {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.CodeDigits != engine.config.Challenge.CodeDigits {
		t.Fatalf("expected code digits %d, got %d", engine.config.Challenge.CodeDigits, session.CodeDigits)
	}
	if provider.sendCalls != 1 {
		t.Fatalf("expected one provider send, got %d", provider.sendCalls)
	}
	if !mr.Exists("chs:+15550001111") {
		t.Fatal("expected pending session marker in redis")
	}

	result, err := engine.VerifyCode(ctx, "+15550001111", PurposeSignin, "123456")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if result.SessionID != session.SessionID {
		t.Fatalf("expected session %q, got %q", session.SessionID, result.SessionID)
	}
	if provider.lastConfirm != "sms" {
		t.Fatalf("expected sms challenge type, got %q", provider.lastConfirm)
	}
	if mr.Exists("chs:+15550001111") {
		t.Fatal("expected session marker consumed after verify")
	}
	if got := engine.metrics.Value(MetricChallengeVerifySuccess); got != 1 {
		t.Fatalf("expected one verify success metric, got %d", got)
	}
}

func TestSendCodeRequiresLiveVerifier(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, nil)
	ctx := context.Background()

	if _, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, nil); !errors.Is(err, ErrVerifierNotReady) {
		t.Fatalf("expected ErrVerifierNotReady, got %v", err)
	}
	if provider.sendCalls != 0 {
		t.Fatalf("expected no provider send, got %d", provider.sendCalls)
	}

	// A handle from a previous generation is no longer live.
	handle := mustVerifierHandle(t, engine)
	engine.CleanupVerifier(ctx)
	if _, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle); !errors.Is(err, ErrVerifierNotReady) {
		t.Fatalf("expected ErrVerifierNotReady for stale handle, got %v", err)
	}
}

func TestSendCodeBypassVerification(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, func(cfg *Config) {
		cfg.Challenge.BypassVerification = true
	})

	if _, err := engine.SendCode(context.Background(), "+15550001111", PurposeSignup, nil); err != nil {
		t.Fatalf("expected bypass send to succeed: %v", err)
	}
	if provider.sendCalls != 1 {
		t.Fatalf("expected one provider send, got %d", provider.sendCalls)
	}
}

func TestSendCodeRecoveryUsesEmail(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, nil)

	// Recovery never requires a verifier handle.
	session, err := engine.SendCode(context.Background(), "user@example.com", PurposeRecovery, nil)
	if err != nil {
		t.Fatalf("recovery SendCode failed: %v", err)
	}
	if session.Purpose != PurposeRecovery {
		t.Fatalf("unexpected purpose %q", session.Purpose)
	}
	if provider.recoveryCalls != 1 || provider.sendCalls != 0 {
		t.Fatalf("expected recovery email path, got recovery=%d sms=%d", provider.recoveryCalls, provider.sendCalls)
	}
}

func TestSendCodeInvalidRequest(t *testing.T) {
	engine, _, _ := newTestChallengeEngine(t, nil)
	ctx := context.Background()

	if _, err := engine.SendCode(ctx, "", PurposeSignin, nil); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid for empty identifier, got %v", err)
	}
	if _, err := engine.SendCode(ctx, "+15550001111", ChallengePurpose("unknown"), nil); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expected ErrChallengeInvalid for unknown purpose, got %v", err)
	}
}

func TestSendFailureInvalidatesVerifier(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, nil)
	ctx := context.Background()

	handle := mustVerifierHandle(t, engine)

	provider.mu.Lock()
	provider.sendErr = errors.New("quota exceeded")
	provider.mu.Unlock()

	_, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle)
	if !errors.Is(err, ErrChallengeSendFailed) {
		t.Fatalf("expected ErrChallengeSendFailed, got %v", err)
	}
	if engine.VerifierReady() {
		t.Fatal("expected verifier invalidated after send failure")
	}
}

func TestResendSupersedesSession(t *testing.T) {
	engine, _, _ := newTestChallengeEngine(t, nil)
	ctx := context.Background()

	handle := mustVerifierHandle(t, engine)

	first, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle)
	if err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}
	if err := engine.ResendCode(ctx, "+15550001111", PurposeSignin, handle); err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}

	record, err := engine.challengeStore.Get(ctx, "+15550001111")
	if err != nil {
		t.Fatalf("store Get failed: %v", err)
	}
	if record.SessionID == first.SessionID {
		t.Fatal("expected resend to supersede the previous session")
	}
	if record.Resends != 1 {
		t.Fatalf("expected resend count 1, got %d", record.Resends)
	}
	if got := engine.metrics.Value(MetricChallengeResend); got != 1 {
		t.Fatalf("expected one resend metric, got %d", got)
	}
}

func TestVerifyCodeRejectsMalformedCode(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, nil)
	ctx := context.Background()

	cases := []string{"12a45", "12345", "1234567", "", "12 456"}
	for _, code := range cases {
		if _, err := engine.VerifyCode(ctx, "+15550001111", PurposeSignin, code); !errors.Is(err, ErrInvalidCodeFormat) {
			t.Fatalf("code %q: expected ErrInvalidCodeFormat, got %v", code, err)
		}
	}
	if provider.confirmCalls != 0 {
		t.Fatalf("malformed codes must not reach the provider, got %d confirms", provider.confirmCalls)
	}
	if got := engine.metrics.Value(MetricChallengeInvalidFormat); got != uint64(len(cases)) {
		t.Fatalf("expected %d invalid format metrics, got %d", len(cases), got)
	}
}

func TestVerifyCodeProviderRejection(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, nil)

	provider.mu.Lock()
	provider.confirmErr = errors.New("code mismatch")
	provider.mu.Unlock()

	_, err := engine.VerifyCode(context.Background(), "+15550001111", PurposeSignin, "123456")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if provider.confirmCalls != 1 {
		t.Fatalf("expected one provider confirm, got %d", provider.confirmCalls)
	}
}

func TestVerifyCodeWithoutSessionMarker(t *testing.T) {
	engine, _, _ := newTestChallengeEngine(t, nil)

	// No SendCode first; the provider still confirms and the result simply
	// carries no session ID.
	result, err := engine.VerifyCode(context.Background(), "+15550001111", PurposeSignin, "123456")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if result.SessionID != "" {
		t.Fatalf("expected empty session id, got %q", result.SessionID)
	}
}

func TestSendCodeRateLimited(t *testing.T) {
	engine, _, _ := newTestChallengeEngine(t, func(cfg *Config) {
		cfg.Challenge.MaxSendPerWindow = 1
		cfg.Challenge.SendWindow = time.Minute
	})
	ctx := context.Background()

	handle := mustVerifierHandle(t, engine)

	if _, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle); err != nil {
		t.Fatalf("first SendCode failed: %v", err)
	}
	if _, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle); !errors.Is(err, ErrChallengeRateLimited) {
		t.Fatalf("expected ErrChallengeRateLimited, got %v", err)
	}
	if got := engine.metrics.Value(MetricRateLimitHit); got != 1 {
		t.Fatalf("expected one rate limit metric, got %d", got)
	}
}

func TestVerifyCodeRateLimitedPerIP(t *testing.T) {
	engine, _, _ := newTestChallengeEngine(t, func(cfg *Config) {
		cfg.Challenge.EnableIdentifierThrottle = false
		cfg.Challenge.MaxVerifyPerWindow = 1
		cfg.Challenge.VerifyWindow = time.Minute
	})
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	if _, err := engine.VerifyCode(ctx, "+15550001111", PurposeSignin, "123456"); err != nil {
		t.Fatalf("first VerifyCode failed: %v", err)
	}
	if _, err := engine.VerifyCode(ctx, "+15550002222", PurposeSignin, "123456"); !errors.Is(err, ErrChallengeRateLimited) {
		t.Fatalf("expected ErrChallengeRateLimited on shared IP, got %v", err)
	}
}

func TestSendCodeRedisDown(t *testing.T) {
	engine, _, mr := newTestChallengeEngine(t, nil)

	handle := mustVerifierHandle(t, engine)
	mr.Close()

	_, err := engine.SendCode(context.Background(), "+15550001111", PurposeSignin, handle)
	if !errors.Is(err, ErrChallengeUnavailable) {
		t.Fatalf("expected ErrChallengeUnavailable, got %v", err)
	}
}

func TestVerifyCodeIssuesProof(t *testing.T) {
	engine, _, _ := newTestChallengeEngine(t, nil)

	pm, err := proof.NewManager(proof.Config{
		TTL:           10 * time.Minute,
		SigningMethod: proof.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goChallenge-test",
	})
	if err != nil {
		t.Fatalf("proof.NewManager failed: %v", err)
	}
	engine.proof = pm

	result, err := engine.VerifyCode(context.Background(), "+15550001111", PurposeSignup, "654321")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if result.Proof == "" {
		t.Fatal("expected a signed proof token")
	}

	claims, err := pm.Verify(result.Proof)
	if err != nil {
		t.Fatalf("proof verification failed: %v", err)
	}
	if claims.Identifier != "+15550001111" || claims.Purpose != string(PurposeSignup) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestEngineNotReady(t *testing.T) {
	var engine *Engine

	if _, err := engine.SendCode(context.Background(), "+15550001111", PurposeSignin, nil); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.VerifyCode(context.Background(), "+15550001111", PurposeSignin, "123456"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
