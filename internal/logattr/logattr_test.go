package logattr

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyInputsProduceEmptyAttrs(t *testing.T) {
	assert.True(t, Error(nil).Equal(slog.Attr{}))
	assert.True(t, Reason("").Equal(slog.Attr{}))
	assert.True(t, Channel("").Equal(slog.Attr{}))
	assert.True(t, UserID("").Equal(slog.Attr{}))
	assert.True(t, Session("").Equal(slog.Attr{}))
	assert.True(t, TokenID("").Equal(slog.Attr{}))
}

func TestSessionNeverLogsRawID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	const sid = "kq3nV0nq9r1c3vX8a2b4dA"
	log.Info("test", Session(sid), TokenID("jti-secret-value"), Error(errors.New("boom")), Component("store"))

	out := buf.String()
	assert.NotContains(t, out, sid)
	assert.NotContains(t, out, "jti-secret-value")
	assert.Contains(t, out, "session=")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "component=store")
}
