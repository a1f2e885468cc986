package authgate

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type panicSink struct{}

func (panicSink) Emit(context.Context, AuditEvent) {
	panic("sink exploded")
}

func auditConfig(buffer int, dropIfFull bool) Config {
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: buffer, DropIfFull: dropIfFull}
	return cfg
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditHandshakeEvents(t *testing.T) {
	sink := NewChannelSink(16)
	g := newTestGateway(t, auditConfig(16, false), func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithRequestID(WithClientIP(context.Background(), "10.0.0.7"), "req-1")
	challenge, err := g.CreateChallenge(ctx, "svcA")
	if err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}
	issued := nextEvent(t, sink)
	if issued.EventType != auditEventChallengeIssued || !issued.Success || issued.ServiceName != "svcA" {
		t.Fatalf("unexpected challenge event: %+v", issued)
	}
	if issued.IP != "10.0.0.7" || issued.RequestID != "req-1" || issued.ID == "" {
		t.Fatalf("request context not propagated: %+v", issued)
	}

	if _, err := g.CreateToken(ctx, "svcA", "00"); err == nil {
		t.Fatal("expected wrong hash to fail")
	}
	rejected := nextEvent(t, sink)
	if rejected.EventType != auditEventTokenRejected || rejected.Success || rejected.Error != string(auditErrInvalidHash) {
		t.Fatalf("unexpected rejection event: %+v", rejected)
	}

	raw, _ := json.Marshal([]AuditEvent{issued, rejected})
	for _, secret := range []string{challenge, "secret-a", testTokenSecret} {
		if strings.Contains(string(raw), secret) {
			t.Fatalf("audit events leaked %q", secret)
		}
	}
}

func TestAuditDropIfFullCountsDrops(t *testing.T) {
	gate := &gateSink{gate: make(chan struct{})}
	g := newTestGateway(t, auditConfig(1, true), func(b *Builder) { b.WithAuditSink(gate) })

	for i := 0; i < 20; i++ {
		_, _ = g.VerifyBasic(context.Background(), "svcA", "wrong")
	}
	if g.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink")
	}
	close(gate.gate)
}

func TestAuditCloseDrainsQueue(t *testing.T) {
	sink := &countingSink{}
	g, err := New().WithConfig(auditConfig(64, false)).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := g.VerifyBasic(context.Background(), "svcB", "secret-b"); err != nil {
			t.Fatalf("VerifyBasic failed: %v", err)
		}
	}
	g.Close()
	g.Close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
}

func TestAuditSinkPanicDoesNotStopDispatcher(t *testing.T) {
	g, err := New().WithConfig(auditConfig(4, false)).WithAuditSink(panicSink{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := g.VerifyBasic(context.Background(), "svcA", "secret-a"); err != nil {
		t.Fatalf("VerifyBasic failed: %v", err)
	}
	g.Close()
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &countingSink{}
	g := newTestGateway(t, testConfig(), func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = g.VerifyBasic(context.Background(), "svcA", "secret-a")
	g.Close()

	if sink.count.Load() != 0 {
		t.Fatal("expected no events with audit disabled")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{ID: "e1", EventType: auditEventBasicVerified, Success: true, ServiceName: "svcA"})

	var got AuditEvent
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if got.ID != "e1" || got.ServiceName != "svcA" || !got.Success {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventTokenRejected, Error: string(auditErrInvalidHash)})
	line := buf.String()
	if !strings.Contains(line, `"level":"WARN"`) || !strings.Contains(line, `"error":"invalid_challenge_hash"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestAuditErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{ErrInvalidSecret, auditErrInvalidSecret},
		{ErrChallengeNotFound, auditErrChallengeNotFound},
		{ErrKeyResolution, auditErrUnavailable},
		{ErrMissingCredentialHeader, auditErrMalformed},
		{ErrSessionUnrecognized, auditErrNotAuthenticated},
		{context.Canceled, auditErrInternal},
	}
	for _, tt := range tests {
		if got := auditErrorCode(tt.err); got != tt.want {
			t.Fatalf("%v: got %q want %q", tt.err, got, tt.want)
		}
	}
	if auditErrorCode(nil) != "" {
		t.Fatal("nil error should have no code")
	}
}
