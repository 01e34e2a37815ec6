package http

import (
	"log/slog"
	"net/http"

	"fixops/internal/auth"
	"fixops/internal/core"
	applog "fixops/internal/log"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// handleLogin exchanges credentials for a bearer token. Unknown user
// and wrong password return the same 401 so usernames cannot be probed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		slog.WarnContext(r.Context(), "Login rejected",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldUsername, req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(s.jwtSecret, user, s.tokenTTL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldUsername, user.Username,
		applog.FieldRole, string(user.Role))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: string(user.Role)})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := core.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         core.Role(req.Role),
	}
	if err := user.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	id, err := s.users.CreateUser(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}
