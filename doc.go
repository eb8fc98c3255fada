// Package goChallenge provides an OTP challenge engine with a managed
// human-presence verifier lifecycle, Redis-backed challenge sessions, and
// signed verification proofs.
//
// The package is designed for interactive sign-in flows where the identity
// provider requires a rendered challenge widget (a CAPTCHA-like verifier)
// before it will deliver an SMS one-time code. Engine methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goChallenge is the public surface. It exposes [Engine], [Builder], [Config],
// the [IdentityProvider] and [ContainerHost] collaborator interfaces, and
// value types (VerifierHandle, ChallengeSession, VerificationResult). ID and
// code generation helpers live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Reimplement the identity provider's wire protocol. Sending and
//     confirming codes is always delegated through [IdentityProvider].
//   - Auto-retry a widget conflict. A conflict tears state down and reports
//     [ErrVerifierConflict]; the caller decides whether to reload.
//   - Surface raw provider errors. Every failure maps to one of the exported
//     sentinel errors before it leaves an Engine method.
//
// # Lifecycle contract
//
// At most one live verifier widget exists per Engine. GetOrCreateVerifier is
// the hot path: when a handle is already mounted it returns it with no
// provider or host work. A render is exclusive; callers arriving during an
// in-flight render wait for it to settle and observe its result.
package goChallenge
