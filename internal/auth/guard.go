package auth

import (
	"net/http"
	"strings"
)

// GuardPolicy decides which page paths need a session and which are only for
// visitors without one.
type GuardPolicy struct {
	Protected []string
	AuthPages []string
	Excluded  []string
	LoginPath string
	HomePath  string
}

// DefaultGuardPolicy is the routing table of the job board pages.
func DefaultGuardPolicy() GuardPolicy {
	return GuardPolicy{
		Protected: []string{"/dashboard", "/jobs", "/profile"},
		AuthPages: []string{"/login", "/register"},
		Excluded:  []string{"/api", "/uploads", "/healthz"},
		LoginPath: "/login",
		HomePath:  "/dashboard",
	}
}

// Guard redirects page requests based only on whether the session cookie is
// present. It does not verify the token; API handlers do that.
func Guard(policy GuardPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if matchesAny(path, policy.Excluded) {
				next.ServeHTTP(w, r)
				return
			}

			hasSession := TokenFromRequest(r) != ""
			switch {
			case !hasSession && matchesAny(path, policy.Protected):
				http.Redirect(w, r, policy.LoginPath, http.StatusSeeOther)
				return
			case hasSession && matchesAny(path, policy.AuthPages):
				http.Redirect(w, r, policy.HomePath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchesAny reports whether path equals a prefix or sits below it.
// "/jobs" matches "/jobs" and "/jobs/4" but not "/jobsearch".
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
