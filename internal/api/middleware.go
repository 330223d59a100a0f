package api

import "net/http"

// InternalKeyMiddleware guards the /internal routes other services
// call. An unset key is a deployment fault, not an open door.
func InternalKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				http.Error(w, "internal API key not configured", http.StatusInternalServerError)
				return
			}
			if r.Header.Get("X-Internal-Api-Key") != expected {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
