package goChallenge

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the challenge engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrVerifierNotReady is an exported constant or variable used by the challenge engine.
	ErrVerifierNotReady = errors.New("verifier not ready")
	// ErrVerifierConflict is an exported constant or variable used by the challenge engine.
	ErrVerifierConflict = errors.New("verifier container conflict, retry after reload")
	// ErrVerifierUnavailable is an exported constant or variable used by the challenge engine.
	ErrVerifierUnavailable = errors.New("verifier backend unavailable")
	// ErrVerifierConfig is an exported constant or variable used by the challenge engine.
	ErrVerifierConfig = errors.New("verifier configuration invalid")
	// ErrInvalidCodeFormat is an exported constant or variable used by the challenge engine.
	ErrInvalidCodeFormat = errors.New("invalid code format")
	// ErrVerificationFailed is an exported constant or variable used by the challenge engine.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrChallengeSendFailed is an exported constant or variable used by the challenge engine.
	ErrChallengeSendFailed = errors.New("challenge send failed")
	// ErrChallengeInvalid is an exported constant or variable used by the challenge engine.
	ErrChallengeInvalid = errors.New("challenge request invalid")
	// ErrChallengeRateLimited is an exported constant or variable used by the challenge engine.
	ErrChallengeRateLimited = errors.New("challenge rate limited")
	// ErrChallengeUnavailable is an exported constant or variable used by the challenge engine.
	ErrChallengeUnavailable = errors.New("challenge backend unavailable")
	// ErrProofUnavailable is an exported constant or variable used by the challenge engine.
	ErrProofUnavailable = errors.New("verification proof unavailable")

	// ErrProviderConflict is an exported constant or variable used by the challenge engine.
	//
	// Provider adapters wrap their "widget already rendered" failures with this
	// sentinel so ClassifyFailure reports FailureConflict without message matching.
	ErrProviderConflict = errors.New("provider widget already rendered")
	// ErrProviderConfig is an exported constant or variable used by the challenge engine.
	//
	// Provider adapters wrap missing-configuration failures with this sentinel so
	// ClassifyFailure reports FailureFatal without message matching.
	ErrProviderConfig = errors.New("provider configuration missing")
)
