package goGate

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/internal/stores"
)

const cleanupTimeout = 5 * time.Second

// Engine defines a public type used by goGate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	challengeStore *stores.ChallengeSessionStore
	tokenStore     *stores.LinkTokenStore
	cooldown       *limiters.CooldownLimiter
	janitor        *grantJanitor
	signer         *linkSigner
	delivery       Delivery
	audit          *auditDispatcher
	metrics        *Metrics
	unlocks        atomic.Uint64
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.janitor != nil {
		e.janitor.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// cleanupGrant runs when a grant's lifetime ends. It revokes the batch's
// tokens and asks the delivery layer to retract the bound message. Store
// errors and retract errors are observed, never propagated: by the time
// this fires, lazy validation already treats the tokens as expired.
func (e *Engine) cleanupGrant(batchID string, tokens []string, userID string, ref *MessageRef) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for _, tokenID := range tokens {
		removed, err := e.tokenStore.Revoke(ctx, tokenID)
		if err != nil {
			log.Print("goGate: grant cleanup revoke failed")
			continue
		}
		if removed {
			e.metricInc(MetricLinkRevoked)
		}
	}

	if ref != nil && e.delivery != nil {
		if err := e.delivery.Retract(ctx, *ref); err != nil {
			e.metricInc(MetricRetractFailure)
			e.emitAudit(ctx, auditEventRetractFailed, false, userID, err, nil, func() map[string]string {
				return map[string]string{
					"batch_id": batchID,
				}
			})
		}
	}

	e.metricInc(MetricGrantCleanupFired)
	e.emitAudit(ctx, auditEventGrantCleanup, true, userID, nil, nil, func() map[string]string {
		return map[string]string{
			"batch_id": batchID,
		}
	})
}

// Stats describes the stats operation and its observable behavior.
//
// Stats may return an error when input validation, dependency calls, or security checks fail.
// Stats does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Stats(ctx context.Context, callerID string) (*Stats, error) {
	if e == nil || e.challengeStore == nil || e.tokenStore == nil {
		return nil, ErrGateNotReady
	}
	if e.config.Admin.StatsUserID == "" || callerID != e.config.Admin.StatsUserID {
		e.emitAudit(ctx, auditEventStatsDenied, false, callerID, ErrUnauthorized, nil, nil)
		return nil, ErrUnauthorized
	}

	activeChallenges, err := e.challengeStore.ActiveSessions(ctx)
	if err != nil {
		return nil, ErrBackendUnavailable
	}
	activeLinks, err := e.tokenStore.ActiveCount(ctx)
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	e.metricInc(MetricStatsQueries)
	e.emitAudit(ctx, auditEventStatsQueried, true, callerID, nil, nil, nil)

	return &Stats{
		TotalUnlocks:     e.unlocks.Load(),
		ActiveChallenges: activeChallenges,
		ActiveLinks:      activeLinks,
		MaxAttempts:      e.config.Verification.MaxAttempts,
		CooldownWindow:   e.config.Cooldown.Window,
		LinkTTL:          e.config.Token.TTL,
	}, nil
}

// TotalUnlocks describes the totalunlocks operation and its observable behavior.
//
// TotalUnlocks may return an error when input validation, dependency calls, or security checks fail.
// TotalUnlocks does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) TotalUnlocks() uint64 {
	if e == nil {
		return 0
	}
	return e.unlocks.Load()
}
