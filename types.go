package goChallenge

import (
	"context"
	"time"
)

// PresentationMode defines a public type used by goChallenge APIs.
//
// PresentationMode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PresentationMode string

const (
	// ModeVisible is an exported constant or variable used by the challenge engine.
	ModeVisible PresentationMode = "visible"
	// ModeInvisible is an exported constant or variable used by the challenge engine.
	ModeInvisible PresentationMode = "invisible"
)

// widgetSize maps the presentation mode to the provider's size vocabulary.
func (m PresentationMode) widgetSize() string {
	if m == ModeVisible {
		return "normal"
	}
	return "invisible"
}

// ChallengePurpose defines a public type used by goChallenge APIs.
//
// ChallengePurpose instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengePurpose string

const (
	// PurposeSignup is an exported constant or variable used by the challenge engine.
	PurposeSignup ChallengePurpose = "signup"
	// PurposeSignin is an exported constant or variable used by the challenge engine.
	PurposeSignin ChallengePurpose = "signin"
	// PurposeRecovery is an exported constant or variable used by the challenge engine.
	PurposeRecovery ChallengePurpose = "recovery"
)

// RequiresVerifier describes the requiresverifier operation and its observable behavior.
//
// RequiresVerifier reports whether the purpose delivers codes over SMS and
// therefore needs a live verifier handle as human-presence proof.
func (p ChallengePurpose) RequiresVerifier() bool {
	return p == PurposeSignup || p == PurposeSignin
}

func validChallengePurpose(p ChallengePurpose) bool {
	switch p {
	case PurposeSignup, PurposeSignin, PurposeRecovery:
		return true
	default:
		return false
	}
}

// challengeTypeFor translates a purpose into the provider's challenge-type
// vocabulary. Signup keeps its own type, interactive sign-in confirms over
// the generic SMS type, recovery confirms over the password-recovery type.
func challengeTypeFor(p ChallengePurpose) string {
	switch p {
	case PurposeSignup:
		return "signup"
	case PurposeSignin:
		return "sms"
	case PurposeRecovery:
		return "recovery"
	default:
		return ""
	}
}

// VerifierCallbacks defines a public type used by goChallenge APIs.
//
// VerifierCallbacks instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifierCallbacks struct {
	// OnSolved receives the human-presence token once the widget is solved.
	OnSolved func(token string)
	// OnExpired fires when the solved challenge expires. The engine resets its
	// lifecycle state before the callback runs.
	OnExpired func()
	// OnError fires on asynchronous widget errors. The engine resets its
	// lifecycle state before the callback runs.
	OnError func(err error)
}

// VerifierHandle defines a public type used by goChallenge APIs.
//
// VerifierHandle instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifierHandle struct {
	WidgetID    string
	ContainerID string
	Mode        PresentationMode
	CreatedAt   time.Time

	widget ProviderWidget
}

// ChallengeSession defines a public type used by goChallenge APIs.
//
// A session is a UI-state marker for one pending code delivery. It is not a
// security token; the provider owns code validity.
type ChallengeSession struct {
	SessionID  string
	Identifier string
	Purpose    ChallengePurpose
	CodeDigits int
	IssuedAt   time.Time
	Resends    uint16
}

// VerificationResult defines a public type used by goChallenge APIs.
//
// VerificationResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationResult struct {
	Identifier string
	Purpose    ChallengePurpose
	SessionID  string
	VerifiedAt time.Time
	// Proof is a signed verification assertion, present only when proof
	// issuance is enabled in the configuration.
	Proof string
}

// VerifierOptions defines a public type used by goChallenge APIs.
//
// VerifierOptions carries the widget configuration handed to the provider at
// creation time: presentation size and the three lifecycle callbacks.
type VerifierOptions struct {
	Size      string
	OnSolved  func(token string)
	OnExpired func()
	OnError   func(err error)
}

// ProviderWidget defines a public type used by goChallenge APIs.
//
// ProviderWidget is the provider-side widget instance bound to a container.
type ProviderWidget interface {
	// Render mounts the widget and returns the provider-assigned widget ID.
	Render(ctx context.Context) (string, error)
	// Clear removes the widget. Clearing an already-cleared widget may fail;
	// the engine ignores such failures during teardown.
	Clear() error
}

// IdentityProvider defines a public type used by goChallenge APIs.
//
// IdentityProvider is the consumed identity-backend contract. Implementations
// adapt a concrete SDK; the engine never sees provider wire formats.
type IdentityProvider interface {
	// CreateVerifier builds a challenge widget bound to the container element.
	// The widget is not interactive until Render is called.
	CreateVerifier(ctx context.Context, containerID string, opts VerifierOptions) (ProviderWidget, error)
	// SendCode asks the provider to deliver a one-time code to the identifier.
	SendCode(ctx context.Context, identifier string) error
	// ConfirmCode asks the provider to validate a submitted code under the
	// given challenge type.
	ConfirmCode(ctx context.Context, identifier, code, challengeType string) error
	// SendRecoveryEmail triggers the provider's email-based recovery flow.
	SendRecoveryEmail(ctx context.Context, identifier string) error
}

// ContainerHost defines a public type used by goChallenge APIs.
//
// ContainerHost abstracts the widget mount point (a DOM element in browser
// deployments). Only the engine mutates containers it manages.
type ContainerHost interface {
	// Contains reports whether the container exists and still holds a
	// rendered widget.
	Contains(containerID string) bool
	// Ensure creates the container if missing and applies the visibility for
	// the presentation mode.
	Ensure(containerID string, mode PresentationMode) error
	// Reset empties the container's contents and removes provider-applied
	// attributes. Resetting a missing container is a no-op.
	Reset(containerID string)
}
