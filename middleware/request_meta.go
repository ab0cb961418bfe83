package middleware

import (
	"net"
	"net/http"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/services/audit"
)

// RequestMeta copies the request id, client address and user agent into the
// context so audit entries written further down can reference the request.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := models.RequestMeta{
			RequestID: GetRequestIDFromContext(r.Context()),
			IPAddress: clientIP(r.RemoteAddr),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(audit.WithRequestMeta(r.Context(), meta)))
	})
}

func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
