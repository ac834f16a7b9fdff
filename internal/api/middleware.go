package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomasvik/threadline-go/internal/domain"
)

// Identity arrives on trusted headers set by the auth collaborator in front
// of this service. The core trusts them as already verified.
const (
	headerUserID = "X-User-ID"
	headerAdmin  = "X-User-Admin"
)

func identity(r *http.Request) (userID string, admin bool) {
	userID = strings.TrimSpace(r.Header.Get(headerUserID))
	flag := strings.ToLower(strings.TrimSpace(r.Header.Get(headerAdmin)))
	return userID, flag == "true" || flag == "1"
}

func (s *Server) requireUser(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, _ := identity(r); userID == "" {
			writeError(w, fmt.Errorf("not authorized, no user: %w", domain.ErrUnauthorized))
			return
		}
		h(w, r)
	}
}

func (s *Server) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, admin := identity(r)
		if userID == "" {
			writeError(w, fmt.Errorf("not authorized, no user: %w", domain.ErrUnauthorized))
			return
		}
		if !admin {
			writeError(w, fmt.Errorf("not authorized as an admin: %w", domain.ErrForbidden))
			return
		}
		h(w, r)
	}
}
