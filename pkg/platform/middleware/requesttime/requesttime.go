// Package requesttime stamps every request with a single observation time.
// All operations within one HTTP request see the same "now", so domain
// timestamps, deadlines, and audit records computed together never disagree.
package requesttime

import (
	"net"
	"net/http"
	"time"

	"mirathi/pkg/requestcontext"
)

// Middleware captures the current time and the remote client IP at the start
// of the request and stores both in the context via requestcontext.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		if ip := clientIP(r); ip != "" {
			ctx = requestcontext.WithClientIP(ctx, ip)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP strips the port from RemoteAddr. Proxy headers are deliberately
// not trusted here; the deployment terminates TLS at the service.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
