package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// WithRequestMetadata adds the actor and client IP to ctx for report
// attribution and import log lines.
func WithRequestMetadata(ctx context.Context, r *http.Request, actor string) context.Context {
	ctx = core.ContextWithActor(ctx, actor)
	return core.ContextWithIPAddress(ctx, ClientIP(r))
}

// ClientIP returns the host part of r.RemoteAddr, which TrustedRealIP has
// already rewritten for requests from trusted proxies.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
