package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
)

const internalSecretHeader = "X-Internal-Secret"

// CapturePeer records the socket peer address in the context. It must run
// before any middleware that rewrites RemoteAddr from proxy headers (RealIP),
// so the internal gate judges the connection, not a spoofable header.
func CapturePeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithPeerAddr(r.Context(), r.RemoteAddr)))
	})
}

// InternalOnly gates routes meant for other backend services (token issue and
// validate). A request passes when its socket peer is a loopback or private
// address, or it presents the shared secret header. With no secret configured
// the network check is the only gate, which suits single-host development.
// The network check uses the address captured by CapturePeer; X-Real-IP and
// X-Forwarded-For never open this gate.
func InternalOnly(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := r.RemoteAddr
			if addr, ok := PeerAddrFrom(r.Context()); ok {
				peer = addr
			}
			if fromPrivateNetwork(peer) {
				next.ServeHTTP(w, r)
				return
			}
			if secret != "" {
				presented := r.Header.Get(internalSecretHeader)
				if presented != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func fromPrivateNetwork(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
