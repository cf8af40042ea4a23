package zikauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()
	out := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("got %d audit events, want %d", len(out), n)
		}
	}
	return out
}

func TestAuditDisabledByDefault(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "ada@example.com")
	assert.Nil(t, env.engine.audit)
	assert.Zero(t, env.engine.AuditDropped())
}

func TestAuditLifecycleEvents(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	tok, err := env.engine.Login(ctx, "ada@example.com", testPassword)
	require.NoError(t, err)

	bad := webRequest(tok)
	bad.Header.Set("X-CSRF-Token", "wrong")
	_, err = env.engine.Authenticate(bad)
	require.ErrorIs(t, err, ErrCSRFMismatch)

	caller := env.auth(t, tok)
	next, err := env.engine.Refresh(ctx, caller, RefreshRequest{RefreshToken: tok.RefreshToken})
	require.NoError(t, err)
	require.NoError(t, env.engine.Logout(ctx, env.auth(t, next), LogoutRequest{RefreshToken: next.RefreshToken}))

	events := collect(t, sink, 4)
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.EventType
	}
	assert.Equal(t, []string{
		AuditEventLoginSuccess,
		AuditEventAuthFailure,
		AuditEventRefreshSuccess,
		AuditEventLogout,
	}, types)

	assert.Equal(t, "203.0.113.9", events[0].IP)
	assert.Equal(t, "42", events[0].UserID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "csrf_mismatch", events[1].Reason)
	assert.Equal(t, "web", events[1].Channel)
	assert.Equal(t, "true", events[3].Metadata["refresh_revoked"])
}

func TestAuditRefreshReuseEvent(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnv(t, func(b *Builder) { b.WithAuditSink(sink) })

	tok := env.login(t, "ada@example.com")
	next, err := env.engine.Refresh(context.Background(), env.auth(t, tok), RefreshRequest{RefreshToken: tok.RefreshToken})
	require.NoError(t, err)
	_, err = env.engine.Refresh(context.Background(), env.auth(t, next), RefreshRequest{RefreshToken: tok.RefreshToken})
	require.ErrorIs(t, err, ErrRefreshReuse)

	events := collect(t, sink, 3)
	reuse := events[2]
	assert.Equal(t, AuditEventRefreshReuseDetected, reuse.EventType)
	assert.False(t, reuse.Success)
	assert.Equal(t, "true", reuse.Metadata["session_deleted"])
}

func TestAuditNeverCarriesSecrets(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(&buf)) })

	tok := env.login(t, "ada@example.com")
	bad := webRequest(tok)
	bad.Header.Set("X-CSRF-Token", "wrong")
	_, _ = env.engine.Authenticate(bad)
	env.engine.Close()

	out := buf.String()
	require.NotEmpty(t, out)
	for _, secret := range []string{tok.SessionID, tok.AccessToken, tok.RefreshToken, tok.CSRFToken, testPassword} {
		assert.NotContains(t, out, secret)
	}

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev AuditEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.NotEmpty(t, ev.SessionID, "session is recorded as a fingerprint")
	}
}
