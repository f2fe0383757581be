// Package guards decides whether a route may be entered for the current
// authentication state.
package guards

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Redirect targets.
const (
	AdminHomePath    = "/admin/dashboard"
	ProfileHomePath  = "/profile/account"
	LoginPath        = "/auth/login"
	AdminLoginPath   = "/admin/login"
	UnauthorizedPath = "/unauthorized"
)

// Authenticator is the part of the auth session the guards need.
type Authenticator interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Decision is the result of a guard check. Redirect is set when Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(path string) Decision { return Decision{Redirect: path} }

// Guard evaluates a route entry.
type Guard func(Authenticator) Decision

// Guest admits only unauthenticated users; signed-in users go to their home.
func Guest(a Authenticator) Decision {
	if !a.IsAuthenticated() {
		return allow()
	}
	if a.IsAdmin() {
		return redirect(AdminHomePath)
	}
	return redirect(ProfileHomePath)
}

// Auth admits authenticated users.
func Auth(a Authenticator) Decision {
	if a.IsAuthenticated() {
		return allow()
	}
	return redirect(LoginPath)
}

// Admin admits authenticated admins.
func Admin(a Authenticator) Decision {
	if !a.IsAuthenticated() {
		return redirect(AdminLoginPath)
	}
	if !a.IsAdmin() {
		return redirect(UnauthorizedPath)
	}
	return allow()
}

// DenyFunc writes the refusal for d.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// RedirectDeny answers 302 to the redirect target.
func RedirectDeny(w http.ResponseWriter, r *http.Request, d Decision) {
	http.Redirect(w, r, d.Redirect, http.StatusFound)
}

// Middleware applies guard on every request and answers 302 to the redirect
// target when the guard refuses.
func Middleware(guard Guard, a Authenticator) mux.MiddlewareFunc {
	return RequestMiddleware(guard, func(*http.Request) Authenticator { return a }, RedirectDeny)
}

// RequestMiddleware is Middleware for servers, where the session comes from
// each request. A nil deny redirects.
func RequestMiddleware(guard Guard, sessionFor func(*http.Request) Authenticator, deny DenyFunc) mux.MiddlewareFunc {
	if deny == nil {
		deny = RedirectDeny
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := guard(sessionFor(r)); !d.Allow {
				deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
