package goChallenge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goChallenge/internal"
)

// renderState is the single-slot promise for an in-flight render. Callers
// that arrive while it is pending wait on done and observe the same handle
// or the same failure; only the creator runs provider and host work.
type renderState struct {
	done   chan struct{}
	handle *VerifierHandle
	err    error
}

// verifierManager owns the process-wide widget singleton. Only the manager
// mutates the handle, the container, and the lifecycle flags; everything
// else treats the handle as read-only.
//
// States: empty (no handle), rendering (inflight != nil), ready
// (initialized && handle != nil). initialized and an in-flight render are
// never observable together.
type verifierManager struct {
	provider IdentityProvider
	host     ContainerHost
	config   VerifierConfig

	mu          sync.Mutex
	handle      *VerifierHandle
	initialized bool
	inflight    *renderState
}

func newVerifierManager(provider IdentityProvider, host ContainerHost, cfg VerifierConfig) *verifierManager {
	return &verifierManager{
		provider: provider,
		host:     host,
		config:   cfg,
	}
}

func (m *verifierManager) isReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized && m.inflight == nil && m.handle != nil
}

// isLive reports whether h is the current singleton handle.
func (m *verifierManager) isLive(h *VerifierHandle) bool {
	if h == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized && m.inflight == nil && m.handle == h
}

// getOrCreate returns a ready handle, creating one only when no reusable
// handle exists. The bool result reports whether this call performed the
// render. The reuse path does no provider or host mutation.
func (m *verifierManager) getOrCreate(ctx context.Context, containerKey string, mode PresentationMode, cbs VerifierCallbacks) (*VerifierHandle, bool, error) {
	if containerKey == "" {
		containerKey = m.config.ContainerKey
	}
	if mode == "" {
		mode = m.config.Mode
	}

	m.mu.Lock()
	if rs := m.inflight; rs != nil {
		m.mu.Unlock()
		select {
		case <-rs.done:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
		return rs.handle, false, rs.err
	}
	if m.initialized && m.handle != nil && m.host.Contains(m.handle.ContainerID) {
		h := m.handle
		m.mu.Unlock()
		return h, false, nil
	}
	rs := &renderState{done: make(chan struct{})}
	m.inflight = rs
	m.initialized = false
	m.mu.Unlock()

	handle, err := m.render(ctx, containerKey, mode, cbs)

	m.mu.Lock()
	rs.handle = handle
	rs.err = err
	if err == nil {
		m.handle = handle
		m.initialized = true
	}
	m.inflight = nil
	m.mu.Unlock()
	close(rs.done)

	return handle, err == nil, err
}

// render performs the full create path: teardown, settle, container setup,
// settle, provider create, widget render. Settle delays are ordering
// guarantees, not retries; each lets the preceding asynchronous teardown or
// container mutation become observable before dependent work starts.
func (m *verifierManager) render(ctx context.Context, containerKey string, mode PresentationMode, cbs VerifierCallbacks) (*VerifierHandle, error) {
	m.teardown()
	if err := settle(ctx, m.config.TeardownSettle); err != nil {
		return nil, err
	}

	if err := m.host.Ensure(containerKey, mode); err != nil {
		return nil, m.failRender(err)
	}
	if err := settle(ctx, m.config.ContainerSettle); err != nil {
		return nil, err
	}

	widget, err := m.provider.CreateVerifier(ctx, containerKey, VerifierOptions{
		Size:      mode.widgetSize(),
		OnSolved:  cbs.OnSolved,
		OnExpired: m.wrapExpired(cbs.OnExpired),
		OnError:   m.wrapError(cbs.OnError),
	})
	if err != nil {
		return nil, m.failRender(err)
	}

	widgetID, err := widget.Render(ctx)
	if err != nil {
		return nil, m.failRender(err)
	}
	if widgetID == "" {
		generated, genErr := internal.NewWidgetID()
		if genErr != nil {
			return nil, m.failRender(genErr)
		}
		widgetID = generated
	}

	return &VerifierHandle{
		WidgetID:    widgetID,
		ContainerID: containerKey,
		Mode:        mode,
		CreatedAt:   time.Now(),
		widget:      widget,
	}, nil
}

// failRender tears state down and maps the provider failure onto the error
// taxonomy. A conflict is never retried here; the caller gets
// ErrVerifierConflict once and decides whether to reload.
func (m *verifierManager) failRender(err error) error {
	m.teardown()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch ClassifyFailure(err) {
	case FailureConflict:
		return fmt.Errorf("%w: %v", ErrVerifierConflict, err)
	case FailureFatal:
		return fmt.Errorf("%w: %v", ErrVerifierConfig, err)
	default:
		return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
}

// teardown drops the singleton and best-effort clears the provider widget
// and the container. Every step is individually guarded so one failure
// cannot prevent the rest; teardown itself never fails.
func (m *verifierManager) teardown() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.initialized = false
	m.mu.Unlock()

	if h == nil {
		return
	}
	if h.widget != nil {
		// Clearing an already-cleared widget fails at some providers; ignored.
		_ = h.widget.Clear()
	}
	if m.host != nil {
		m.host.Reset(h.ContainerID)
	}
}

// cleanup is the idempotent external teardown path. It lets an in-flight
// render settle first so its result cannot resurrect state cleared here.
func (m *verifierManager) cleanup(ctx context.Context) {
	for {
		m.mu.Lock()
		rs := m.inflight
		m.mu.Unlock()
		if rs == nil {
			break
		}
		select {
		case <-rs.done:
		case <-ctx.Done():
			// Caller gave up waiting; still drop the current handle so
			// isReady reports false.
			m.teardown()
			return
		}
	}
	m.teardown()
}

func (m *verifierManager) forceRefresh(ctx context.Context, containerKey string, mode PresentationMode, cbs VerifierCallbacks) (*VerifierHandle, bool, error) {
	m.cleanup(ctx)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return m.getOrCreate(ctx, containerKey, mode, cbs)
}

// invalidate drops Ready without touching the provider widget. The stale
// widget is cleared during the next render's teardown.
func (m *verifierManager) invalidate() {
	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()
}

func (m *verifierManager) wrapExpired(next func()) func() {
	return func() {
		m.invalidate()
		if next != nil {
			next()
		}
	}
}

func (m *verifierManager) wrapError(next func(error)) func(error) {
	return func(err error) {
		m.invalidate()
		if next != nil {
			next(err)
		}
	}
}

// settle enforces the minimum-duration gap between teardown, container
// creation, and render.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
