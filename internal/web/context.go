package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/hrm/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent recorded on
// import runs. The actor is set earlier by APIKeyAuth.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}

// clientIP returns the host part of RemoteAddr, which TrustedRealIP has
// already rewritten for requests from known proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
