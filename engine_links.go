package goGate

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goGate/internal"
	"github.com/MrEthical07/goGate/internal/stores"
)

const maxTokenGenerationAttempts = 5

// issueGrant mints one link token per configured resource, schedules the
// batch cleanup, and records the unlock. A partial failure rolls back the
// tokens issued so far.
func (e *Engine) issueGrant(ctx context.Context, userID string) (*Grant, error) {
	batchID := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(e.config.Token.TTL)

	links := make([]IssuedLink, 0, len(e.config.Resources))
	tokenIDs := make([]string, 0, len(e.config.Resources))

	for _, res := range e.config.Resources {
		tokenID, err := e.issueToken(ctx, res.Name, batchID, userID, now, expiresAt)
		if err != nil {
			e.rollbackTokens(ctx, tokenIDs)
			e.emitAudit(ctx, auditEventGrantIssued, false, userID, ErrGrantIssueFailed, nil, nil)
			return nil, err
		}
		tokenIDs = append(tokenIDs, tokenID)

		link, err := e.buildLink(res, tokenID, expiresAt)
		if err != nil {
			e.rollbackTokens(ctx, tokenIDs)
			e.emitAudit(ctx, auditEventGrantIssued, false, userID, ErrGrantIssueFailed, nil, nil)
			return nil, ErrGrantIssueFailed
		}
		links = append(links, link)
		e.metricInc(MetricLinkIssued)
	}

	if e.janitor != nil {
		e.janitor.Schedule(batchID, tokenIDs, userID, e.config.Token.TTL)
	}

	e.unlocks.Add(1)
	e.metricInc(MetricGrantIssued)

	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	e.emitAudit(ctx, auditEventGrantIssued, true, userID, nil, urls, func() map[string]string {
		return map[string]string{
			"batch_id": batchID,
		}
	})

	return &Grant{
		BatchID:   batchID,
		UserID:    userID,
		Links:     links,
		ExpiresAt: expiresAt,
	}, nil
}

func (e *Engine) issueToken(
	ctx context.Context,
	resource, batchID, userID string,
	now, expiresAt time.Time,
) (string, error) {
	record := &stores.LinkToken{
		Resource:  resource,
		BatchID:   batchID,
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	for i := 0; i < maxTokenGenerationAttempts; i++ {
		tokenID, err := internal.NewLinkToken(e.config.Token.Length)
		if err != nil {
			return "", ErrGrantIssueFailed
		}
		ok, err := e.tokenStore.Issue(ctx, tokenID, record, e.config.Token.TTL)
		if err != nil {
			return "", ErrBackendUnavailable
		}
		if ok {
			return tokenID, nil
		}
	}

	return "", ErrGrantIssueFailed
}

func (e *Engine) buildLink(res ResourceConfig, tokenID string, expiresAt time.Time) (IssuedLink, error) {
	value := tokenID
	if e.signer != nil {
		signed, err := e.signer.Sign(tokenID, res.Name, expiresAt)
		if err != nil {
			return IssuedLink{}, err
		}
		value = signed
	}

	linkURL := value
	if res.BaseURL != "" {
		linkURL = res.BaseURL + "?token=" + url.QueryEscape(value)
	}

	return IssuedLink{
		Resource: res.Name,
		Token:    value,
		URL:      linkURL,
	}, nil
}

func (e *Engine) rollbackTokens(ctx context.Context, tokenIDs []string) {
	for _, id := range tokenIDs {
		_, _ = e.tokenStore.Revoke(ctx, id)
	}
}

// ValidateLink describes the validatelink operation and its observable behavior.
//
// ValidateLink may return an error when input validation, dependency calls, or security checks fail.
// ValidateLink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateLink(ctx context.Context, token string) (*LinkInfo, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrGateNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	tokenID := token
	if e.signer != nil && strings.Count(token, ".") == 2 {
		id, err := e.signer.Parse(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// A signed expiry is trusted, but reclaim the record too.
			if id != "" {
				_, _ = e.tokenStore.Revoke(ctx, id)
			}
			e.metricInc(MetricLinkExpired)
			e.emitAudit(ctx, auditEventLinkRejected, false, "", ErrLinkExpired, nil, nil)
			return nil, ErrLinkExpired
		case err != nil:
			e.metricInc(MetricLinkRejected)
			e.emitAudit(ctx, auditEventLinkRejected, false, "", ErrLinkNotFound, nil, nil)
			return nil, ErrLinkNotFound
		}
		tokenID = id
	}

	record, err := e.tokenStore.Get(ctx, tokenID)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrLinkTokenNotFound):
			e.metricInc(MetricLinkRejected)
			e.emitAudit(ctx, auditEventLinkRejected, false, "", ErrLinkNotFound, nil, nil)
			return nil, ErrLinkNotFound
		case errors.Is(err, stores.ErrLinkTokenExpired):
			e.metricInc(MetricLinkExpired)
			e.emitAudit(ctx, auditEventLinkRejected, false, "", ErrLinkExpired, nil, nil)
			return nil, ErrLinkExpired
		default:
			return nil, ErrBackendUnavailable
		}
	}

	e.metricInc(MetricLinkValidated)
	e.emitAudit(ctx, auditEventLinkValidated, true, record.UserID, nil, nil, func() map[string]string {
		return map[string]string{
			"resource": record.Resource,
		}
	})

	return &LinkInfo{
		TokenID:   tokenID,
		Resource:  record.Resource,
		BatchID:   record.BatchID,
		ExpiresAt: time.Unix(record.ExpiresAt, 0),
	}, nil
}

// RevokeLink describes the revokelink operation and its observable behavior.
//
// RevokeLink may return an error when input validation, dependency calls, or security checks fail.
// RevokeLink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeLink(ctx context.Context, tokenID string) error {
	if e == nil || e.tokenStore == nil {
		return ErrGateNotReady
	}

	removed, err := e.tokenStore.Revoke(ctx, tokenID)
	if err != nil {
		return ErrBackendUnavailable
	}
	if removed {
		e.metricInc(MetricLinkRevoked)
		e.emitAudit(ctx, auditEventLinkRevoked, true, "", nil, nil, nil)
	}
	return nil
}

// RevokeGrant describes the revokegrant operation and its observable behavior.
//
// RevokeGrant may return an error when input validation, dependency calls, or security checks fail.
// RevokeGrant does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeGrant(ctx context.Context, batchID string) error {
	if e == nil || e.janitor == nil {
		return ErrGateNotReady
	}

	entry, ok := e.janitor.Cancel(batchID)
	if !ok {
		// Already fired, already revoked, or never existed.
		return nil
	}
	e.metricInc(MetricGrantCleanupCancelled)

	for _, tokenID := range entry.tokens {
		removed, err := e.tokenStore.Revoke(ctx, tokenID)
		if err != nil {
			return ErrBackendUnavailable
		}
		if removed {
			e.metricInc(MetricLinkRevoked)
		}
	}

	if entry.ref != nil && e.delivery != nil {
		if err := e.delivery.Retract(ctx, *entry.ref); err != nil {
			e.metricInc(MetricRetractFailure)
			e.emitAudit(ctx, auditEventRetractFailed, false, entry.userID, err, nil, func() map[string]string {
				return map[string]string{
					"batch_id": batchID,
				}
			})
		}
	}

	e.emitAudit(ctx, auditEventGrantRevoked, true, entry.userID, nil, nil, func() map[string]string {
		return map[string]string{
			"batch_id": batchID,
		}
	})
	return nil
}

// BindGrantMessage describes the bindgrantmessage operation and its observable behavior.
//
// BindGrantMessage may return an error when input validation, dependency calls, or security checks fail.
// BindGrantMessage does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BindGrantMessage(batchID string, ref MessageRef) bool {
	if e == nil || e.janitor == nil {
		return false
	}
	return e.janitor.Bind(batchID, ref)
}

// SweepExpired describes the sweepexpired operation and its observable behavior.
//
// SweepExpired may return an error when input validation, dependency calls, or security checks fail.
// SweepExpired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	if e == nil || e.tokenStore == nil {
		return 0, ErrGateNotReady
	}

	removed, err := e.tokenStore.SweepExpired(ctx)
	if err != nil {
		return removed, ErrBackendUnavailable
	}
	if removed > 0 && e.metrics != nil {
		e.metrics.Add(MetricSweepRemoved, uint64(removed))
	}
	e.emitAudit(ctx, auditEventSweepCompleted, true, "", nil, nil, nil)
	return removed, nil
}
