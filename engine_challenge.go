package goGate

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/internal/challenge"
	"github.com/MrEthical07/goGate/internal/stores"
)

// RequestChallenge describes the requestchallenge operation and its observable behavior.
//
// RequestChallenge may return an error when input validation, dependency calls, or security checks fail.
// RequestChallenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestChallenge(ctx context.Context, userID string) (*ChallengeResult, error) {
	if e == nil || e.challengeStore == nil || e.cooldown == nil {
		return nil, ErrGateNotReady
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}

	admitted, remaining, err := e.cooldown.TryAdmit(ctx, userID)
	if err != nil {
		return nil, ErrBackendUnavailable
	}
	if !admitted {
		cooldownErr := &CooldownError{SecondsRemaining: secondsRemaining(remaining)}
		e.metricInc(MetricChallengeCooldownRejected)
		e.emitAudit(ctx, auditEventChallengeCooldown, false, userID, cooldownErr, nil, func() map[string]string {
			return map[string]string{
				"seconds_remaining": strconv.Itoa(cooldownErr.SecondsRemaining),
			}
		})
		return nil, cooldownErr
	}

	result, err := e.issueChallenge(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, userID, nil, nil, nil)

	return result, nil
}

// issueChallenge generates a fresh challenge and replaces any previous
// session for the user, resetting the attempt counter.
func (e *Engine) issueChallenge(ctx context.Context, userID string) (*ChallengeResult, error) {
	c, err := challenge.New(
		e.config.Challenge.MinOperand,
		e.config.Challenge.MaxOperand,
		e.config.Challenge.AllowSubtraction,
	)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(e.config.Verification.SessionTTL)
	record := &stores.ChallengeSession{
		Answer:    int64(c.Answer()),
		Attempts:  0,
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	if err := e.challengeStore.Save(ctx, userID, record, e.config.Verification.SessionTTL); err != nil {
		return nil, ErrBackendUnavailable
	}

	return &ChallengeResult{
		Prompt:    c.Prompt(),
		ExpiresAt: expiresAt,
	}, nil
}

// SubmitAnswer describes the submitanswer operation and its observable behavior.
//
// SubmitAnswer may return an error when input validation, dependency calls, or security checks fail.
// SubmitAnswer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, rawInput string) (*SubmitResult, error) {
	if e == nil || e.challengeStore == nil || e.tokenStore == nil {
		return nil, ErrGateNotReady
	}
	if userID == "" {
		return nil, ErrUnauthorized
	}

	sess, err := e.challengeStore.Get(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeExpired):
			e.metricInc(MetricAnswerNoChallenge)
			e.emitAudit(ctx, auditEventAnswerNoChallenge, false, userID, nil, nil, nil)
			return &SubmitResult{Outcome: OutcomeNoChallenge}, nil
		default:
			return nil, ErrBackendUnavailable
		}
	}

	maxAttempts := e.config.Verification.MaxAttempts

	value, parseErr := strconv.ParseInt(strings.TrimSpace(rawInput), 10, 64)
	if parseErr != nil {
		// Malformed input gets a retry without burning an attempt.
		left := maxAttempts - int(sess.Attempts)
		e.metricInc(MetricAnswerNonNumeric)
		e.emitAudit(ctx, auditEventAnswerNonNumeric, false, userID, nil, nil, nil)
		return &SubmitResult{
			Outcome:      OutcomeNotANumber,
			AttemptsLeft: left,
		}, nil
	}

	if value == sess.Answer {
		deleted, err := e.challengeStore.Delete(ctx, userID)
		if err != nil {
			return nil, ErrBackendUnavailable
		}
		if !deleted {
			// Another submission consumed the session first.
			e.metricInc(MetricAnswerNoChallenge)
			e.emitAudit(ctx, auditEventAnswerNoChallenge, false, userID, nil, nil, nil)
			return &SubmitResult{Outcome: OutcomeNoChallenge}, nil
		}

		grant, err := e.issueGrant(ctx, userID)
		if err != nil {
			return nil, err
		}

		e.metricInc(MetricAnswerCorrect)
		e.emitAudit(ctx, auditEventAnswerCorrect, true, userID, nil, nil, nil)
		return &SubmitResult{
			Outcome: OutcomeCorrect,
			Grant:   grant,
		}, nil
	}

	exceeded, left, err := e.challengeStore.RecordFailure(ctx, userID, maxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeExpired):
			e.metricInc(MetricAnswerNoChallenge)
			e.emitAudit(ctx, auditEventAnswerNoChallenge, false, userID, nil, nil, nil)
			return &SubmitResult{Outcome: OutcomeNoChallenge}, nil
		default:
			return nil, ErrBackendUnavailable
		}
	}

	if exceeded {
		result := &SubmitResult{Outcome: OutcomeAttemptsExhausted}
		e.metricInc(MetricAnswerExhausted)
		e.emitAudit(ctx, auditEventAnswerExhausted, false, userID, nil, nil, nil)

		if e.config.Verification.ReissueOnExhaustion {
			// Orchestrator policy: hand the user a fresh challenge
			// immediately instead of making them re-request one.
			next, err := e.issueChallenge(ctx, userID)
			if err == nil {
				result.NextPrompt = next.Prompt
				e.metricInc(MetricChallengeReissued)
				e.emitAudit(ctx, auditEventChallengeReissued, true, userID, nil, nil, nil)
			}
		}
		return result, nil
	}

	e.metricInc(MetricAnswerIncorrect)
	e.emitAudit(ctx, auditEventAnswerIncorrect, false, userID, nil, nil, func() map[string]string {
		return map[string]string{
			"attempts_left": strconv.Itoa(left),
		}
	})
	return &SubmitResult{
		Outcome:      OutcomeIncorrect,
		AttemptsLeft: left,
	}, nil
}

func secondsRemaining(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
