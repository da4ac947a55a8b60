package goGate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventChallengeIssued   = "challenge_issued"
	auditEventChallengeCooldown = "challenge_cooldown_rejected"
	auditEventChallengeReissued = "challenge_reissued"
	auditEventAnswerCorrect     = "answer_correct"
	auditEventAnswerIncorrect   = "answer_incorrect"
	auditEventAnswerNonNumeric  = "answer_non_numeric"
	auditEventAnswerNoChallenge = "answer_no_challenge"
	auditEventAnswerExhausted   = "answer_attempts_exhausted"
	auditEventGrantIssued       = "grant_issued"
	auditEventGrantCleanup      = "grant_cleanup"
	auditEventGrantRevoked      = "grant_revoked"
	auditEventLinkValidated     = "link_validated"
	auditEventLinkRejected      = "link_rejected"
	auditEventLinkRevoked       = "link_revoked"
	auditEventSweepCompleted    = "sweep_completed"
	auditEventRetractFailed     = "retract_failed"
	auditEventStatsQueried      = "stats_queried"
	auditEventStatsDenied       = "stats_denied"
)

// AuditErrorCode defines a public type used by goGate APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrCooldownActive AuditErrorCode = "cooldown_active"
	auditErrLinkNotFound   AuditErrorCode = "link_not_found"
	auditErrLinkExpired    AuditErrorCode = "link_expired"
	auditErrGrantIssue     AuditErrorCode = "grant_issue_failed"
	auditErrUnauthorized   AuditErrorCode = "unauthorized"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	links []string,
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
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		UserID:      userID,
		DisplayName: displayNameFromContext(ctx),
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Links:       links,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCooldownActive):
		return auditErrCooldownActive
	case errors.Is(err, ErrLinkNotFound):
		return auditErrLinkNotFound
	case errors.Is(err, ErrLinkExpired):
		return auditErrLinkExpired
	case errors.Is(err, ErrGrantIssueFailed):
		return auditErrGrantIssue
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, ErrGateNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
