package goChallenge

import (
	"errors"
	"strings"
)

// FailureClass defines a public type used by goChallenge APIs.
//
// FailureClass instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FailureClass int

const (
	// FailureTransient is an exported constant or variable used by the challenge engine.
	//
	// Expiry and network-level failures. The verifier state is reset so the
	// next GetOrCreateVerifier rebuilds; the caller may retry.
	FailureTransient FailureClass = iota
	// FailureConflict is an exported constant or variable used by the challenge engine.
	//
	// The provider reports a widget already rendered in the target container.
	// Forced cleanup follows; the engine never auto-retries past a conflict.
	FailureConflict
	// FailureFatal is an exported constant or variable used by the challenge engine.
	//
	// Missing required provider configuration. Not retryable.
	FailureFatal
)

// String describes the string operation and its observable behavior.
func (c FailureClass) String() string {
	switch c {
	case FailureConflict:
		return "conflict"
	case FailureFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// ClassifyFailure describes the classifyfailure operation and its observable behavior.
//
// ClassifyFailure maps a provider or lifecycle error onto the retry policy.
// Provider adapters should wrap with ErrProviderConflict or ErrProviderConfig
// where they can; message matching is the fallback for SDKs that expose
// conflicts only as rendered text.
func ClassifyFailure(err error) FailureClass {
	if err == nil {
		return FailureTransient
	}

	switch {
	case errors.Is(err, ErrProviderConflict), errors.Is(err, ErrVerifierConflict):
		return FailureConflict
	case errors.Is(err, ErrProviderConfig), errors.Is(err, ErrVerifierConfig):
		return FailureFatal
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already been rendered"),
		strings.Contains(msg, "already rendered"):
		return FailureConflict
	case strings.Contains(msg, "missing required"),
		strings.Contains(msg, "not configured"),
		strings.Contains(msg, "invalid site key"):
		return FailureFatal
	default:
		return FailureTransient
	}
}
