package authapi

import (
	"context"
	"net"
	"time"

	"letterbox/cmd/identity"
)

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, identity.AuditRegister, &userID, ip, ua, nil)
}

func (h *Handler) auditLoginFailed(ctx context.Context, userID *string, ip net.IP, ua string, identifier string, reason string) {
	h.insertAudit(ctx, identity.AuditLoginFailed, userID, ip, ua, map[string]any{
		"identifier": identifier,
		"reason":     reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua string, identifier string) {
	h.insertAudit(ctx, identity.AuditLoginSuccess, &userID, ip, ua, map[string]any{
		"identifier": identifier,
	})
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua string, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, identity.AuditLoginRateLimited, nil, ip, ua, map[string]any{
		"identifier":    identifier,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditPasswordChanged(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, identity.AuditPasswordChanged, &userID, ip, ua, nil)
}

func (h *Handler) auditPasswordChangeFailed(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, identity.AuditPasswordChangeBad, &userID, ip, ua, nil)
}

// insertAudit never fails the request; errors are logged.
func (h *Handler) insertAudit(ctx context.Context, action string, userID *string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.audit == nil {
		return
	}

	err := h.audit.InsertAudit(ctx, identity.AuditEvent{
		Action:    action,
		UserID:    userID,
		IP:        ip,
		UserAgent: ua,
		Meta:      meta,
		At:        h.now(),
	})
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}
