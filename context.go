package goGate

import "context"

type clientIPContextKey struct{}
type displayNameContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine includes
// it in audit events.
//
//	Docs: docs/audit.md
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDisplayName attaches the caller's human-readable name to ctx. It is
// recorded alongside successful unlocks in audit output.
//
//	Docs: docs/audit.md
func WithDisplayName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, displayNameContextKey{}, name)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func displayNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	name, _ := ctx.Value(displayNameContextKey{}).(string)
	return name
}
