package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TheFastest599/flowtrack/internal/idgen"
	"github.com/TheFastest599/flowtrack/internal/model"
	"github.com/TheFastest599/flowtrack/internal/store"
)

// sessionResponse is the credential bundle returned by register and login.
type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	User        *model.User `json:"user"`
}

// handleRegister handles POST /v1/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Name == "":
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	case !strings.Contains(in.Email, "@"):
		writeError(w, http.StatusUnprocessableEntity, "email is invalid")
		return
	case len(in.Password) < 8:
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	if _, err := s.store.GetUserByEmail(r.Context(), in.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	id, err := idgen.GenerateWithPrefix("usr-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate id")
		return
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		Role:      model.RoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec := &store.UserRecord{User: user, PasswordHash: string(hash)}
	if err := s.store.CreateUser(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	s.issueSession(w, r, user, http.StatusCreated)
}

// handleLogin handles POST /v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	rec, err := s.store.GetUserByEmail(r.Context(), in.Email)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(in.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.issueSession(w, r, rec.User, http.StatusOK)
}

// handleRefresh handles POST /v1/auth/refresh. The refresh credential is
// rotated on every successful use.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	hash := HashRefreshToken(cookie.Value)
	rt, err := s.store.GetRefreshToken(r.Context(), hash)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "refresh token not recognized")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up refresh token")
		return
	}
	if time.Now().After(rt.ExpiresAt) {
		_ = s.store.DeleteRefreshToken(r.Context(), hash)
		writeError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	user, err := s.store.GetUser(r.Context(), rt.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}

	if err := s.store.DeleteRefreshToken(r.Context(), hash); err != nil {
		s.logger.Warn("failed to delete rotated refresh token", "error", err)
	}

	access, err := s.auth.IssueAccessToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue access token")
		return
	}
	if err := s.setRefreshCookie(w, r, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

// handleLogout handles POST /v1/auth/logout. Idempotent: a missing or
// unknown refresh credential still clears the cookie and succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := s.store.DeleteRefreshToken(r.Context(), HashRefreshToken(cookie.Value)); err != nil {
			s.logger.Warn("failed to delete refresh token on logout", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// issueSession writes a session response: a signed access token in the body
// and a rotated refresh credential as an httpOnly cookie.
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user *model.User, status int) {
	access, err := s.auth.IssueAccessToken(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue access token")
		return
	}
	if err := s.setRefreshCookie(w, r, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	writeJSON(w, status, sessionResponse{AccessToken: access, User: user})
}

// setRefreshCookie mints a refresh token, stores its hash and sets the cookie.
func (s *Server) setRefreshCookie(w http.ResponseWriter, r *http.Request, userID string) error {
	raw, hash, err := s.auth.NewRefreshToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.store.SaveRefreshToken(r.Context(), &store.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		ExpiresAt: now.Add(s.auth.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    raw,
		Path:     "/v1/auth",
		Expires:  now.Add(s.auth.refreshTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
