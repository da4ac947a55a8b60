package goGate

import (
	"context"
	"fmt"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goGate/internal/audit"
)

// Outcome classifies the result of a single answer submission.
//
//	Docs: docs/verification.md
type Outcome uint8

const (
	// OutcomeNoChallenge is an exported constant or variable used by the access gate engine.
	OutcomeNoChallenge Outcome = iota
	// OutcomeNotANumber is an exported constant or variable used by the access gate engine.
	OutcomeNotANumber
	// OutcomeIncorrect is an exported constant or variable used by the access gate engine.
	OutcomeIncorrect
	// OutcomeCorrect is an exported constant or variable used by the access gate engine.
	OutcomeCorrect
	// OutcomeAttemptsExhausted is an exported constant or variable used by the access gate engine.
	OutcomeAttemptsExhausted
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoChallenge:
		return "no_challenge"
	case OutcomeNotANumber:
		return "not_a_number"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomeCorrect:
		return "correct"
	case OutcomeAttemptsExhausted:
		return "attempts_exhausted"
	default:
		return "unknown"
	}
}

// ChallengeResult is returned by [Engine.RequestChallenge]. Prompt is the
// human-readable question ("a + b = ?"); the expected answer never leaves
// the engine.
type ChallengeResult struct {
	Prompt    string
	ExpiresAt time.Time
}

// SubmitResult is returned by [Engine.SubmitAnswer]. Grant is non-nil only
// for [OutcomeCorrect]. NextPrompt is set when exhaustion triggered an
// automatic reissue.
type SubmitResult struct {
	Outcome      Outcome
	AttemptsLeft int
	Grant        *Grant
	NextPrompt   string
}

// IssuedLink is one resource link inside a [Grant]. Token is the value the
// destination will present back to [Engine.ValidateLink]; URL is the
// ready-to-send form.
type IssuedLink struct {
	Resource string
	Token    string
	URL      string
}

// Grant is the batch of links issued after a successful verification.
// All links in a batch share one lifetime and one scheduled cleanup.
type Grant struct {
	BatchID   string
	UserID    string
	Links     []IssuedLink
	ExpiresAt time.Time
}

// LinkInfo is returned by [Engine.ValidateLink] for a currently valid token.
type LinkInfo struct {
	TokenID   string
	Resource  string
	BatchID   string
	ExpiresAt time.Time
}

// MessageRef identifies a message in the external delivery layer so the
// engine can ask for its retraction when the grant expires.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Delivery is implemented by the chat or HTTP layer that actually sends
// grant messages. Retract is called from cleanup paths only; its error is
// observed but never propagated to store state.
type Delivery interface {
	Retract(ctx context.Context, ref MessageRef) error
}

// Stats is the admin-facing snapshot returned by [Engine.Stats].
type Stats struct {
	TotalUnlocks     uint64
	ActiveChallenges int
	ActiveLinks      int
	MaxAttempts      int
	CooldownWindow   time.Duration
	LinkTTL          time.Duration
}

// CooldownError reports a rejected challenge request together with the
// whole seconds remaining in the window, rounded up. It unwraps to
// [ErrCooldownActive].
type CooldownError struct {
	SecondsRemaining int
}

// Error describes the error operation and its observable behavior.
//
// Error may return an error when input validation, dependency calls, or security checks fail.
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("challenge request cooldown active: %ds remaining", e.SecondsRemaining)
}

// Unwrap describes the unwrap operation and its observable behavior.
//
// Unwrap may return an error when input validation, dependency calls, or security checks fail.
// Unwrap does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// AuditEvent is a structured audit record emitted by the engine.
//
//	Docs: docs/audit.md
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// CSVWriterSink is an [AuditSink] that appends one CSV row per event,
// matching the unlock-log layout consumed by operators.
//
//	Docs: docs/audit.md
type CSVWriterSink = internalaudit.CSVWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewCSVWriterSink creates a [CSVWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewCSVWriterSink(w io.Writer) *CSVWriterSink {
	return internalaudit.NewCSVWriterSink(w)
}
