package goChallenge

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventVerifierCreate     = "verifier_create"
	auditEventVerifierCleanup    = "verifier_cleanup"
	auditEventVerifierConflict   = "verifier_conflict"
	auditEventChallengeSend      = "challenge_send"
	auditEventChallengeResend    = "challenge_resend"
	auditEventChallengeConfirm   = "challenge_confirm"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by goChallenge APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrVerifierNotReady AuditErrorCode = "verifier_not_ready"
	auditErrConflict         AuditErrorCode = "conflict"
	auditErrConfiguration    AuditErrorCode = "configuration"
	auditErrInvalidFormat    AuditErrorCode = "invalid_code_format"
	auditErrVerifyFailed     AuditErrorCode = "verification_failed"
	auditErrSendFailed       AuditErrorCode = "send_failed"
	auditErrInvalidRequest   AuditErrorCode = "invalid_request"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identifier string,
	refID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Identifier: identifier,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	// refID carries the widget ID for lifecycle events and the challenge
	// session ID for send/confirm events.
	switch eventType {
	case auditEventVerifierCreate, auditEventVerifierCleanup, auditEventVerifierConflict:
		event.WidgetID = refID
	default:
		event.SessionID = refID
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrVerifierNotReady):
		return auditErrVerifierNotReady
	case errors.Is(err, ErrVerifierConflict),
		errors.Is(err, ErrProviderConflict):
		return auditErrConflict
	case errors.Is(err, ErrVerifierConfig),
		errors.Is(err, ErrProviderConfig):
		return auditErrConfiguration
	case errors.Is(err, ErrInvalidCodeFormat):
		return auditErrInvalidFormat
	case errors.Is(err, ErrVerificationFailed):
		return auditErrVerifyFailed
	case errors.Is(err, ErrChallengeSendFailed):
		return auditErrSendFailed
	case errors.Is(err, ErrChallengeInvalid):
		return auditErrInvalidRequest
	case errors.Is(err, ErrChallengeRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrVerifierUnavailable),
		errors.Is(err, ErrChallengeUnavailable),
		errors.Is(err, ErrProofUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
