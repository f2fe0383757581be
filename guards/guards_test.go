package guards

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

type fakeAuth struct {
	authenticated bool
	admin         bool
}

func (f fakeAuth) IsAuthenticated() bool { return f.authenticated }
func (f fakeAuth) IsAdmin() bool         { return f.authenticated && f.admin }

var (
	anonymous = fakeAuth{}
	member    = fakeAuth{authenticated: true}
	operator  = fakeAuth{authenticated: true, admin: true}
)

func TestGuards(t *testing.T) {
	tests := []struct {
		name  string
		guard Guard
		auth  fakeAuth
		want  Decision
	}{
		{"guest anonymous", Guest, anonymous, Decision{Allow: true}},
		{"guest member", Guest, member, Decision{Redirect: ProfileHomePath}},
		{"guest admin", Guest, operator, Decision{Redirect: AdminHomePath}},
		{"auth anonymous", Auth, anonymous, Decision{Redirect: LoginPath}},
		{"auth member", Auth, member, Decision{Allow: true}},
		{"auth admin", Auth, operator, Decision{Allow: true}},
		{"admin anonymous", Admin, anonymous, Decision{Redirect: AdminLoginPath}},
		{"admin member", Admin, member, Decision{Redirect: UnauthorizedPath}},
		{"admin admin", Admin, operator, Decision{Allow: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guard(tt.auth))
		})
	}
}

func TestMiddleware(t *testing.T) {
	newRouter := func(a Authenticator) *mux.Router {
		r := mux.NewRouter()
		admin := r.PathPrefix("/admin").Subrouter()
		admin.Use(Middleware(Admin, a))
		admin.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("dashboard"))
		})
		return r
	}

	rec := httptest.NewRecorder()
	newRouter(member).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, UnauthorizedPath, rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	newRouter(operator).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard", rec.Body.String())
}

func TestRequestMiddleware(t *testing.T) {
	sessionFor := func(r *http.Request) Authenticator {
		if r.Header.Get("X-Role") == "admin" {
			return operator
		}
		return member
	}
	var denied Decision
	deny := func(w http.ResponseWriter, r *http.Request, d Decision) {
		denied = d
		w.WriteHeader(http.StatusForbidden)
	}

	h := RequestMiddleware(Admin, sessionFor, deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/goal", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, UnauthorizedPath, denied.Redirect)

	req := httptest.NewRequest(http.MethodPost, "/api/events/goal", nil)
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	RequestMiddleware(Auth, sessionFor, nil)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code, "member passes Auth, then fails the inner Admin guard")
}
