// Package middleware provides the HTTP middleware chain: bearer-token
// authentication and the internal-network gate for service-to-service routes.
package middleware

import "context"

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	peerAddrKey = contextKey{"peerAddr"}
	clientIPKey = contextKey{"clientIP"}
)

// Identity is the authenticated caller derived from a validated access token.
// RawToken carries the presented token so logout can denylist it.
type Identity struct {
	UserID    string
	SessionID string
	RawToken  string
}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller identity and true if the request passed
// bearer authentication.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithPeerAddr returns a context carrying the transport-level peer address.
func WithPeerAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, peerAddrKey, addr)
}

// PeerAddrFrom returns the socket peer address captured before any proxy
// header rewrote RemoteAddr.
func PeerAddrFrom(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(peerAddrKey).(string)
	return addr, ok
}

// WithClientIP returns a context carrying the derived client address (proxy
// headers applied).
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the derived client address, or "unknown" when the request
// did not pass through the router. Shaped as an audit IP extractor.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}
