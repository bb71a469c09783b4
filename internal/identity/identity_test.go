package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/wazobia-session/internal/domain"
)

type staticResolver map[string]*domain.User

func (s staticResolver) UserForToken(token string) (*domain.User, bool) {
	u, ok := s[token]
	return u, ok
}

func TestMiddlewareAttachesUser(t *testing.T) {
	resolver := staticResolver{"good": {ID: 9, Username: "bola"}}

	var seen *domain.User
	h := Middleware(resolver)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   bool
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusOK, wantUser: false},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantUser: true},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantUser: true},
		{name: "unknown token", header: "Bearer stale", wantStatus: http.StatusUnauthorized, wantUser: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if (seen != nil) != tt.wantUser {
				t.Errorf("Expected user=%v, got %+v", tt.wantUser, seen)
			}
		})
	}
}

func TestRequireRejectsAnonymous(t *testing.T) {
	h := Require(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}
