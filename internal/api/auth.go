package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/foundryworks/foundry-core/internal/audit"
	"github.com/foundryworks/foundry-core/internal/auth"
)

// tokenRequest is the request body for POST /auth/token.
type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse is the response body for POST /auth/token.
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Role        auth.Role `json:"role"`
}

// handleIssueToken verifies an operator credential against the config-declared
// set and issues a JWT. Operators live in configuration, not a user database;
// the password hash is Argon2id in PHC string format.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !s.secCfg.AuthEnabled {
		writeBadRequest(w, "authentication is disabled")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !auth.IsValidUsername(req.Username) {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	op, ok := s.operators[req.Username]
	if !ok {
		// Burn a verification anyway so a missing username costs the same
		// as a wrong password.
		//nolint:errcheck // result deliberately ignored
		auth.VerifyPassword(req.Password, dummyHash)
		s.auditAuth(r.Context(), "token_rejected", req.Username)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	match, err := auth.VerifyPassword(req.Password, op.PasswordHash)
	if err != nil {
		s.logger.Error("operator password hash is malformed", "username", op.Username, "error", err)
		writeUnauthorized(w, "invalid credentials")
		return
	}
	if !match {
		s.auditAuth(r.Context(), "token_rejected", req.Username)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15
	}

	signed, err := auth.GenerateAccessToken(op.Username, op.Role, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	s.auditAuth(r.Context(), "token_issued", op.Username)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60,
		Role:        op.Role,
	})
}

// handleAuthMe returns the identity carried by the presented token.
func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"auth_enabled":  s.secCfg.AuthEnabled,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      claims.Subject,
		"role":          claims.Role,
		"expires_at":    claims.ExpiresAt,
	})
}

// auditAuth records an auth decision in the audit trail.
func (s *Server) auditAuth(ctx context.Context, action, username string) {
	s.auditLog(ctx, &audit.Event{
		Category: "auth",
		Action:   action,
		Subject:  username,
		Source:   "api",
	})
}

// dummyHash is a throwaway Argon2id hash used to equalise timing for
// unknown usernames. The plaintext is random and discarded.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA$RdescudvJCsgt3ub+b+dWRWJTmaaJObG"
