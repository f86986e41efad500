package handlers

import (
	"net/http"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/utils"
	"go.uber.org/zap"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// login handles operator login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if !r.decode(w, req, &loginReq) {
		return
	}

	auth := r.deps.Auth
	if auth.AdminPasswordHash == "" ||
		loginReq.Username != auth.AdminUsername ||
		!utils.CheckPasswordHash(loginReq.Password, auth.AdminPasswordHash) {
		r.log.Warn("login rejected", zap.String("username", loginReq.Username))
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, err := utils.GenerateOperatorToken(loginReq.Username, auth.JWTSecret, time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken": accessToken,
		},
		"expiresIn": int(utils.AccessTokenTTL.Seconds()),
		"user": map[string]string{
			"username": loginReq.Username,
			"role":     "operator",
		},
	})
}
