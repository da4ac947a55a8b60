// Package goGate provides an ephemeral human-verification and temp-link
// access engine: arithmetic challenges, per-user cooldown admission,
// short-lived opaque link tokens, and deferred grant cleanup.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Grant, SubmitResult, MetricsSnapshot, etc.). All internal coordination — challenge
// generation, session encoding, cooldown admission, audit dispatch — lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Deliver messages itself: the chat or HTTP layer owns delivery and implements
//     [Delivery] so the engine can request retraction of expired grant messages.
//   - Evaluate challenge answers dynamically. Operators are a closed enum.
//
// # Performance contract
//
// ValidateLink is the hot path. It must complete in a single Redis round-trip for
// opaque tokens, and its result is authoritative regardless of background sweeping.
// RequestChallenge and SubmitAnswer are allowed a handful of Redis round-trips.
package goGate
