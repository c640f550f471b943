package httpapi

import "net/http"

// requireAuth gates a route group on the configured bearer secret. With no
// secret configured every request is allowed. Otherwise the Authorization
// header must equal "Bearer <secret>" exactly; any mismatch or absence is
// rejected immediately with 401 and no further processing. Stateless; safe
// for concurrent use.
func requireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		want := "Bearer " + secret
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != want {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
