package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tagreturn/tagreturn-server/internal/auth"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
)

// handleEvents streams server-sent events to an authenticated client.
// EventSource cannot set headers, so the token may also arrive as ?token=.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.sseHandler == nil {
		writeError(w, http.StatusServiceUnavailable, "", "Event stream unavailable")
		return
	}

	claims, err := GetClaims(r.Context())
	if err != nil {
		claims, err = s.queryTokenClaims(r)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.sseHandler.Serve(w, r, claims.UserUUID, claims.IsAdmin())
}

func (s *Server) queryTokenClaims(r *http.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, errUnauthenticated
	}
	return s.services.Auth.VerifyAccessToken(token)
}

var errUnauthenticated = &APIError{
	status:  http.StatusUnauthorized,
	Code:    statusToCode(http.StatusUnauthorized),
	Message: "Authentication required",
}

// handleImage serves a stored item photo.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	kind, id := chi.URLParam(r, "kind"), chi.URLParam(r, "id")

	data, contentType, err := s.images.Get(kind, id)
	if err != nil {
		if !errors.Is(err, images.ErrNotFound) {
			s.logger.Debug("Image lookup failed", "kind", kind, "id", id, "error", err)
		}
		writeError(w, http.StatusNotFound, "", "Image not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", CacheOneWeek)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
