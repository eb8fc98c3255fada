package goChallenge

import (
	"context"
	"errors"
	"time"
)

// GetOrCreateVerifier describes the getorcreateverifier operation and its observable behavior.
//
// GetOrCreateVerifier returns the live verifier handle, rendering a new
// widget only when none is reusable. An empty containerKey or mode falls
// back to the configured defaults. Callers arriving during an in-flight
// render observe that render's result; no second render starts while one
// is active.
//
// GetOrCreateVerifier may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) GetOrCreateVerifier(ctx context.Context, containerKey string, mode PresentationMode, cbs VerifierCallbacks) (*VerifierHandle, error) {
	if e == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	handle, created, err := e.verifier.getOrCreate(ctx, containerKey, mode, cbs)
	return e.finishVerifierCreate(ctx, handle, created, err, start)
}

// RefreshVerifier describes the refreshverifier operation and its observable behavior.
//
// RefreshVerifier always tears down and recreates, bypassing reuse. Intended
// for retrying past a transient failure the caller has surfaced.
//
// RefreshVerifier may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) RefreshVerifier(ctx context.Context, containerKey string, mode PresentationMode, cbs VerifierCallbacks) (*VerifierHandle, error) {
	if e == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	handle, created, err := e.verifier.forceRefresh(ctx, containerKey, mode, cbs)
	return e.finishVerifierCreate(ctx, handle, created, err, start)
}

func (e *Engine) finishVerifierCreate(ctx context.Context, handle *VerifierHandle, created bool, err error, start time.Time) (*VerifierHandle, error) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		e.metricInc(MetricVerifierFailure)
		if errors.Is(err, ErrVerifierConflict) {
			e.metricInc(MetricVerifierConflict)
			e.emitAudit(ctx, auditEventVerifierConflict, false, "", "", err, nil)
		} else {
			e.emitAudit(ctx, auditEventVerifierCreate, false, "", "", err, nil)
		}
		return nil, err
	}

	if created {
		e.metricInc(MetricVerifierCreate)
		e.metricObserve(MetricVerifierRenderLatency, time.Since(start))
		e.emitAudit(ctx, auditEventVerifierCreate, true, "", handle.WidgetID, nil, func() map[string]string {
			return map[string]string{
				"container": handle.ContainerID,
				"mode":      string(handle.Mode),
			}
		})
	} else {
		// Reuse is the hot path; it is counted but not audited.
		e.metricInc(MetricVerifierReuse)
	}
	return handle, nil
}

// CleanupVerifier describes the cleanupverifier operation and its observable behavior.
//
// CleanupVerifier is idempotent and never fails. It clears the provider
// widget, resets the container, and drops the lifecycle state. An in-flight
// render is allowed to settle first, bounded by ctx.
func (e *Engine) CleanupVerifier(ctx context.Context) {
	if e == nil || e.verifier == nil {
		return
	}
	e.verifier.cleanup(ctx)
	e.metricInc(MetricVerifierCleanup)
	e.emitAudit(ctx, auditEventVerifierCleanup, true, "", "", nil, nil)
}

// VerifierReady describes the verifierready operation and its observable behavior.
//
// VerifierReady is a pure query: true iff a reusable handle exists and no
// render is in flight.
func (e *Engine) VerifierReady() bool {
	if e == nil || e.verifier == nil {
		return false
	}
	return e.verifier.isReady()
}
