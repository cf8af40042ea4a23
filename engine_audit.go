package zikauth

import (
	"context"

	"github.com/Fpierr/zikauth/internal/audit"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	channel Channel,
	reason string,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Record(ctx, audit.Record{
		Type:      eventType,
		Success:   success,
		UserID:    userID,
		SessionID: sessionID,
		Channel:   string(channel),
		IP:        clientIPFromContext(ctx),
		Reason:    reason,
		Metadata:  metadata,
	})
}
