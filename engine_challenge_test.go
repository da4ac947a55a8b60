package goGate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChallengeFlowCorrectAnswerIssuesGrant(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestGateEngine(t, rdb, gateTestConfig())
	defer engine.Close()

	result, err := engine.RequestChallenge(ctx, "u1")
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	if result.Prompt == "" {
		t.Fatal("expected non-empty prompt")
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future expiry")
	}

	submit, err := engine.SubmitAnswer(ctx, "u1", solvePrompt(t, result.Prompt))
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeCorrect {
		t.Fatalf("expected OutcomeCorrect, got %v", submit.Outcome)
	}
	if submit.Grant == nil {
		t.Fatal("expected grant on correct answer")
	}
	if len(submit.Grant.Links) != 2 {
		t.Fatalf("expected one link per resource, got %d", len(submit.Grant.Links))
	}
	if submit.Grant.BatchID == "" {
		t.Fatal("expected batch id")
	}

	for _, link := range submit.Grant.Links {
		info, err := engine.ValidateLink(ctx, link.Token)
		if err != nil {
			t.Fatalf("ValidateLink failed for %s: %v", link.Resource, err)
		}
		if info.Resource != link.Resource {
			t.Fatalf("expected resource %q, got %q", link.Resource, info.Resource)
		}
		if info.BatchID != submit.Grant.BatchID {
			t.Fatalf("expected batch %q, got %q", submit.Grant.BatchID, info.BatchID)
		}
	}

	// The session is consumed; a repeat submission has nothing to answer.
	again, err := engine.SubmitAnswer(ctx, "u1", "0")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if again.Outcome != OutcomeNoChallenge {
		t.Fatalf("expected OutcomeNoChallenge after consumption, got %v", again.Outcome)
	}
}

func TestChallengeFlowIncorrectAnswerDecrementsAttempts(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := gateTestConfig()
	cfg.Verification.MaxAttempts = 3
	engine := newTestGateEngine(t, rdb, cfg)
	defer engine.Close()

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	submit, err := engine.SubmitAnswer(ctx, "u1", "999999")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeIncorrect {
		t.Fatalf("expected OutcomeIncorrect, got %v", submit.Outcome)
	}
	if submit.AttemptsLeft != 2 {
		t.Fatalf("expected 2 attempts left, got %d", submit.AttemptsLeft)
	}

	submit, err = engine.SubmitAnswer(ctx, "u1", "999999")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeIncorrect || submit.AttemptsLeft != 1 {
		t.Fatalf("expected incorrect with 1 attempt left, got %v/%d", submit.Outcome, submit.AttemptsLeft)
	}
}

func TestChallengeFlowNonNumericInputDoesNotConsumeAttempt(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := gateTestConfig()
	cfg.Verification.MaxAttempts = 3
	engine := newTestGateEngine(t, rdb, cfg)
	defer engine.Close()

	result, err := engine.RequestChallenge(ctx, "u1")
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		submit, err := engine.SubmitAnswer(ctx, "u1", "what?")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if submit.Outcome != OutcomeNotANumber {
			t.Fatalf("expected OutcomeNotANumber, got %v", submit.Outcome)
		}
		if submit.AttemptsLeft != 3 {
			t.Fatalf("expected full attempts after malformed input, got %d", submit.AttemptsLeft)
		}
	}

	// The session survived all the garbage and the answer still works.
	submit, err := engine.SubmitAnswer(ctx, "u1", solvePrompt(t, result.Prompt))
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeCorrect {
		t.Fatalf("expected OutcomeCorrect, got %v", submit.Outcome)
	}
}

func TestChallengeFlowWhitespaceAroundAnswerAccepted(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestGateEngine(t, rdb, gateTestConfig())
	defer engine.Close()

	result, err := engine.RequestChallenge(ctx, "u1")
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	submit, err := engine.SubmitAnswer(ctx, "u1", "  "+solvePrompt(t, result.Prompt)+" ")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeCorrect {
		t.Fatalf("expected OutcomeCorrect for padded input, got %v", submit.Outcome)
	}
}

func TestChallengeFlowExhaustionReissuesWhenEnabled(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := gateTestConfig()
	cfg.Verification.MaxAttempts = 2
	cfg.Verification.ReissueOnExhaustion = true
	engine := newTestGateEngine(t, rdb, cfg)
	defer engine.Close()

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	if _, err := engine.SubmitAnswer(ctx, "u1", "999999"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	submit, err := engine.SubmitAnswer(ctx, "u1", "999999")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeAttemptsExhausted {
		t.Fatalf("expected OutcomeAttemptsExhausted, got %v", submit.Outcome)
	}
	if submit.NextPrompt == "" {
		t.Fatal("expected reissued prompt after exhaustion")
	}

	// The fresh challenge has a full attempt budget.
	next, err := engine.SubmitAnswer(ctx, "u1", solvePrompt(t, submit.NextPrompt))
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if next.Outcome != OutcomeCorrect {
		t.Fatalf("expected OutcomeCorrect on reissued challenge, got %v", next.Outcome)
	}
}

func TestChallengeFlowExhaustionWithoutReissueEndsSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := gateTestConfig()
	cfg.Verification.MaxAttempts = 1
	cfg.Verification.ReissueOnExhaustion = false
	engine := newTestGateEngine(t, rdb, cfg)
	defer engine.Close()

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	submit, err := engine.SubmitAnswer(ctx, "u1", "999999")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeAttemptsExhausted {
		t.Fatalf("expected OutcomeAttemptsExhausted, got %v", submit.Outcome)
	}
	if submit.NextPrompt != "" {
		t.Fatal("expected no reissue when disabled")
	}

	after, err := engine.SubmitAnswer(ctx, "u1", "999999")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if after.Outcome != OutcomeNoChallenge {
		t.Fatalf("expected OutcomeNoChallenge after exhaustion, got %v", after.Outcome)
	}
}

func TestChallengeFlowNoActiveChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestGateEngine(t, rdb, gateTestConfig())
	defer engine.Close()

	submit, err := engine.SubmitAnswer(context.Background(), "u1", "7")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeNoChallenge {
		t.Fatalf("expected OutcomeNoChallenge, got %v", submit.Outcome)
	}
}

func TestChallengeFlowRepeatRequestReplacesSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := gateTestConfig()
	cfg.Cooldown.Window = time.Second
	engine := newTestGateEngine(t, rdb, cfg)
	defer engine.Close()

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	if _, err := engine.SubmitAnswer(ctx, "u1", "999999"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("second RequestChallenge failed: %v", err)
	}

	// The replacement resets the attempt budget.
	submit, err := engine.SubmitAnswer(ctx, "u1", "999999")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if submit.Outcome != OutcomeIncorrect {
		t.Fatalf("expected OutcomeIncorrect, got %v", submit.Outcome)
	}
	if submit.AttemptsLeft != cfg.Verification.MaxAttempts-1 {
		t.Fatalf("expected reset attempt budget, got %d left", submit.AttemptsLeft)
	}
}

func TestChallengeCooldownRejectsRapidRequests(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := gateTestConfig()
	cfg.Cooldown.Window = 10 * time.Second
	engine := newTestGateEngine(t, rdb, cfg)
	defer engine.Close()

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	_, err := engine.RequestChallenge(ctx, "u1")
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected CooldownError, got %T", err)
	}
	if cooldown.SecondsRemaining <= 0 || cooldown.SecondsRemaining > 10 {
		t.Fatalf("expected remaining in (0, 10], got %d", cooldown.SecondsRemaining)
	}

	// Rejections must not extend the window.
	if _, err := engine.RequestChallenge(ctx, "u1"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive on repeat, got %v", err)
	}

	mr.FastForward(11 * time.Second)

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("expected admission after window, got %v", err)
	}
}

func TestChallengeCooldownIsPerUser(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestGateEngine(t, rdb, gateTestConfig())
	defer engine.Close()

	if _, err := engine.RequestChallenge(ctx, "u1"); err != nil {
		t.Fatalf("RequestChallenge failed for u1: %v", err)
	}
	if _, err := engine.RequestChallenge(ctx, "u2"); err != nil {
		t.Fatalf("expected independent cooldown for u2, got %v", err)
	}
}

func TestChallengeRequestRejectsEmptyUser(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestGateEngine(t, rdb, gateTestConfig())
	defer engine.Close()

	if _, err := engine.RequestChallenge(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := engine.SubmitAnswer(context.Background(), "", "3"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestChallengeFlowFailsWhenRedisUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine := newTestGateEngine(t, rdb, gateTestConfig())
	defer engine.Close()

	mr.Close()

	if _, err := engine.RequestChallenge(context.Background(), "u1"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := engine.SubmitAnswer(context.Background(), "u1", "3"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
