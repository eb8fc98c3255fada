package goChallenge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) all() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventChallengeSend})
	}
	d.Close()

	if got := len(sink.all()); got != 10 {
		t.Fatalf("expected 10 drained events, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}

	// Idempotent close, and emits after close are discarded.
	d.Close()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventChallengeSend})
	if got := len(sink.all()); got != 10 {
		t.Fatalf("expected no events after close, got %d", got)
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event occupies the worker, one fills the buffer; the rest drop
	// without blocking the caller.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventChallengeSend})
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected dropped events")
		}
		time.Sleep(time.Millisecond)
	}

	close(sink.release)
	d.Close()
}

func TestAuditDispatcherDisabled(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, &recordingSink{}); d != nil {
		t.Fatal("expected nil dispatcher when auditing is disabled")
	}
	// A nil dispatcher is emit-safe.
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventChallengeConfirm,
		Success:   true,
		Metadata:  map[string]string{"purpose": "signin"},
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("sink output is not JSON: %v", err)
	}
	if decoded.EventType != auditEventChallengeConfirm || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestEngineEmitsAuditEvents(t *testing.T) {
	engine, provider, _ := newTestChallengeEngine(t, func(cfg *Config) {
		cfg.Audit = AuditConfig{Enabled: true, BufferSize: 32}
	})
	sink := &recordingSink{}
	engine.audit = newAuditDispatcher(engine.config.Audit, sink)

	ctx := WithClientIP(context.Background(), "203.0.113.9")

	handle := mustVerifierHandle(t, engine)
	if _, err := engine.SendCode(ctx, "+15550001111", PurposeSignin, handle); err != nil {
		t.Fatalf("SendCode failed: %v", err)
	}
	if _, err := engine.VerifyCode(ctx, "+15550001111", PurposeSignin, "999999"); err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	engine.Close()

	events := sink.all()
	var sawSend, sawConfirm bool
	for _, ev := range events {
		switch ev.EventType {
		case auditEventChallengeSend:
			sawSend = true
			if !ev.Success || ev.SessionID == "" {
				t.Fatalf("unexpected send event: %+v", ev)
			}
			if ev.IP != "203.0.113.9" {
				t.Fatalf("expected client IP on event, got %q", ev.IP)
			}
		case auditEventChallengeConfirm:
			sawConfirm = true
			if !ev.Success {
				t.Fatalf("unexpected confirm event: %+v", ev)
			}
		}
	}
	if !sawSend || !sawConfirm {
		t.Fatalf("expected send and confirm events, got %+v", events)
	}
	if provider.confirmCalls != 1 {
		t.Fatalf("expected one confirm call, got %d", provider.confirmCalls)
	}
}

func TestVerifierConflictIsAudited(t *testing.T) {
	engine, provider, _ := newTestVerifierEngine(t)
	sink := &recordingSink{}
	engine.config.Audit = AuditConfig{Enabled: true, BufferSize: 32}
	engine.audit = newAuditDispatcher(engine.config.Audit, sink)

	provider.mu.Lock()
	provider.createErr = errors.New("reCAPTCHA has already been rendered in this element")
	provider.mu.Unlock()

	if _, err := engine.GetOrCreateVerifier(context.Background(), "c1", ModeInvisible, VerifierCallbacks{}); err == nil {
		t.Fatal("expected conflict error")
	}
	engine.Close()

	var sawConflict bool
	for _, ev := range sink.all() {
		if ev.EventType == auditEventVerifierConflict {
			sawConflict = true
			if ev.Error != string(auditErrConflict) {
				t.Fatalf("expected conflict error code, got %q", ev.Error)
			}
		}
	}
	if !sawConflict {
		t.Fatal("expected a verifier_conflict event")
	}
}
