package goChallenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SendCode describes the sendcode operation and its observable behavior.
//
// SendCode asks the identity provider to deliver a one-time code for the
// identifier. SMS purposes (signup, signin) require the live verifier
// handle as human-presence proof; recovery is email-based and takes a nil
// handle. On success the returned session marker supersedes any pending
// session for the identifier.
//
// SendCode may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) SendCode(ctx context.Context, identifier string, purpose ChallengePurpose, handle *VerifierHandle) (*ChallengeSession, error) {
	return e.sendChallenge(ctx, identifier, purpose, handle, false)
}

// ResendCode describes the resendcode operation and its observable behavior.
//
// ResendCode re-runs the send path with the same preconditions and failure
// modes as SendCode. It is distinguished only for audit and metrics; the
// new code logically supersedes the previous one at the provider.
//
// ResendCode may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) ResendCode(ctx context.Context, identifier string, purpose ChallengePurpose, handle *VerifierHandle) error {
	_, err := e.sendChallenge(ctx, identifier, purpose, handle, true)
	return err
}

func (e *Engine) sendChallenge(ctx context.Context, identifier string, purpose ChallengePurpose, handle *VerifierHandle, resend bool) (*ChallengeSession, error) {
	event := auditEventChallengeSend
	successMetric := MetricChallengeSend
	if resend {
		event = auditEventChallengeResend
		successMetric = MetricChallengeResend
	}

	if e == nil || e.provider == nil || e.challengeStore == nil || e.challengeLimiter == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" || !validChallengePurpose(purpose) {
		e.metricInc(MetricChallengeSendFailure)
		e.emitAudit(ctx, event, false, identifier, "", ErrChallengeInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid_request",
			}
		})
		return nil, ErrChallengeInvalid
	}

	if purpose.RequiresVerifier() && !e.config.Challenge.BypassVerification {
		if e.verifier == nil || !e.verifier.isLive(handle) {
			e.metricInc(MetricChallengeSendFailure)
			e.emitAudit(ctx, event, false, identifier, "", ErrVerifierNotReady, func() map[string]string {
				return map[string]string{
					"purpose": string(purpose),
				}
			})
			return nil, ErrVerifierNotReady
		}
	}

	if err := e.challengeLimiter.CheckSend(ctx, identifier, clientIPFromContext(ctx)); err != nil {
		mapped := mapChallengeLimiterError(err)
		e.metricInc(MetricChallengeSendFailure)
		e.emitAudit(ctx, event, false, identifier, "", mapped, nil)
		if errors.Is(mapped, ErrChallengeRateLimited) {
			e.emitRateLimit(ctx, "challenge_send", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
		}
		return nil, mapped
	}

	var sendErr error
	if purpose == PurposeRecovery {
		sendErr = e.provider.SendRecoveryEmail(ctx, identifier)
	} else {
		sendErr = e.provider.SendCode(ctx, identifier)
	}
	if sendErr != nil {
		if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
			return nil, sendErr
		}
		if purpose.RequiresVerifier() && e.verifier != nil {
			// A failed SMS send consumes the human-presence proof; the next
			// GetOrCreateVerifier rebuilds.
			e.verifier.invalidate()
		}
		e.metricInc(MetricChallengeSendFailure)
		e.emitAudit(ctx, event, false, identifier, "", ErrChallengeSendFailed, func() map[string]string {
			return map[string]string{
				"provider_error": sendErr.Error(),
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrChallengeSendFailed, sendErr)
	}

	session := &ChallengeSession{
		SessionID:  uuid.NewString(),
		Identifier: identifier,
		Purpose:    purpose,
		CodeDigits: e.config.Challenge.CodeDigits,
		IssuedAt:   time.Now(),
	}
	if resend {
		if prev, err := e.challengeStore.Get(ctx, identifier); err == nil && prev != nil {
			session.Resends = prev.Resends + 1
		}
	}

	record := &challengeSessionRecord{
		SessionID: session.SessionID,
		Purpose:   purpose,
		IssuedAt:  session.IssuedAt.Unix(),
		Resends:   session.Resends,
	}
	if err := e.challengeStore.Save(ctx, identifier, record, e.config.Challenge.SessionTTL); err != nil {
		mapped := mapChallengeStoreError(err)
		e.metricInc(MetricChallengeSendFailure)
		e.emitAudit(ctx, event, false, identifier, session.SessionID, mapped, nil)
		return nil, mapped
	}

	e.metricInc(successMetric)
	e.emitAudit(ctx, event, true, identifier, session.SessionID, nil, func() map[string]string {
		return map[string]string{
			"purpose": string(purpose),
		}
	})
	return session, nil
}

// VerifyCode describes the verifycode operation and its observable behavior.
//
// VerifyCode checks the code format locally, then asks the provider to
// confirm it under the purpose's challenge type. A malformed code never
// reaches the provider. On success the pending session marker is consumed
// and, when enabled, a signed verification proof is issued.
//
// VerifyCode may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) VerifyCode(ctx context.Context, identifier string, purpose ChallengePurpose, code string) (*VerificationResult, error) {
	if e == nil || e.provider == nil || e.challengeStore == nil || e.challengeLimiter == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" || !validChallengePurpose(purpose) {
		e.metricInc(MetricChallengeVerifyFailure)
		e.emitAudit(ctx, auditEventChallengeConfirm, false, identifier, "", ErrChallengeInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid_request",
			}
		})
		return nil, ErrChallengeInvalid
	}

	if len(code) != e.config.Challenge.CodeDigits || !isNumericString(code) {
		e.metricInc(MetricChallengeInvalidFormat)
		e.emitAudit(ctx, auditEventChallengeConfirm, false, identifier, "", ErrInvalidCodeFormat, func() map[string]string {
			return map[string]string{
				"reason": "code_format",
			}
		})
		return nil, ErrInvalidCodeFormat
	}

	if err := e.challengeLimiter.CheckVerify(ctx, identifier, clientIPFromContext(ctx)); err != nil {
		mapped := mapChallengeLimiterError(err)
		e.metricInc(MetricChallengeVerifyFailure)
		e.emitAudit(ctx, auditEventChallengeConfirm, false, identifier, "", mapped, nil)
		if errors.Is(mapped, ErrChallengeRateLimited) {
			e.emitRateLimit(ctx, "challenge_verify", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
		}
		return nil, mapped
	}

	if err := e.provider.ConfirmCode(ctx, identifier, code, challengeTypeFor(purpose)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		e.metricInc(MetricChallengeVerifyFailure)
		e.emitAudit(ctx, auditEventChallengeConfirm, false, identifier, "", ErrVerificationFailed, func() map[string]string {
			return map[string]string{
				"provider_error": err.Error(),
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	// The session marker is advisory UI state; a missing or unreachable
	// record does not undo a provider-confirmed code.
	sessionID := ""
	if record, err := e.challengeStore.Consume(ctx, identifier); err == nil && record != nil {
		sessionID = record.SessionID
	}

	result := &VerificationResult{
		Identifier: identifier,
		Purpose:    purpose,
		SessionID:  sessionID,
		VerifiedAt: time.Now(),
	}
	if e.proof != nil {
		token, err := e.proof.Issue(identifier, string(purpose))
		if err != nil {
			e.metricInc(MetricChallengeVerifyFailure)
			e.emitAudit(ctx, auditEventChallengeConfirm, false, identifier, sessionID, ErrProofUnavailable, nil)
			return nil, fmt.Errorf("%w: %v", ErrProofUnavailable, err)
		}
		result.Proof = token
	}

	e.metricInc(MetricChallengeVerifySuccess)
	e.emitAudit(ctx, auditEventChallengeConfirm, true, identifier, sessionID, nil, func() map[string]string {
		return map[string]string{
			"purpose": string(purpose),
		}
	})
	return result, nil
}

func isNumericString(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

func mapChallengeLimiterError(err error) error {
	switch {
	case errors.Is(err, errChallengeRateLimited):
		return ErrChallengeRateLimited
	case errors.Is(err, errChallengeLimiterUnavailable):
		return ErrChallengeUnavailable
	default:
		return ErrChallengeUnavailable
	}
}

func mapChallengeStoreError(err error) error {
	switch {
	case errors.Is(err, errChallengeNotFound):
		return ErrChallengeInvalid
	case errors.Is(err, errChallengeRedisUnavailable):
		return ErrChallengeUnavailable
	default:
		return ErrChallengeUnavailable
	}
}
