package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/internal/logger"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 20
)

// Error codes returned in the "error" field of failed responses.
const (
	errCodeInvalidRequest      = "invalid_request"
	errCodeInvalidCredentials  = "invalid_credentials"
	errCodeMissingRefreshToken = "missing_refresh_token"
	errCodeInvalidRefreshToken = "invalid_refresh_token"
	errCodeRefreshTokenReused  = "refresh_token_reused"
	errCodeInvalidToken        = "invalid_token"
	errCodeTooManyRequests     = "too_many_requests"
	errCodeNotFound            = "not_found"
	errCodeUnavailable         = "unavailable"
	errCodeInternal            = "internal_error"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginHandler verifies the posted credentials and sets both token cookies.
// The body is JSON or a url encoded form.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeLoginRequest(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		pair, err := s.sessions.Login(r.Context(), req.Login, req.Password)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.cookies.setPair(w, r, pair)
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeLoginRequest(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case contentTypeJSON:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return loginRequest{}, apperrors.Tag(apperrors.ErrValidation, fmt.Errorf("malformed JSON body: %w", err))
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, apperrors.Tag(apperrors.ErrValidation, fmt.Errorf("malformed form body: %w", err))
		}
		req.Login = r.PostForm.Get("login")
		req.Password = r.PostForm.Get("password")
	default:
		return loginRequest{}, apperrors.Tag(apperrors.ErrValidation, fmt.Errorf("unsupported content type %q", mediaType))
	}

	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return loginRequest{}, apperrors.Tag(apperrors.ErrValidation, errors.New("login and password are required"))
	}
	return req, nil
}

// LogoutHandler clears both token cookies and ends the session of the
// presented refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.sessions.Logout(r.Context(), s.cookies.refreshToken(r))
		s.cookies.clear(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefreshHandler rotates the refresh cookie and sets a fresh token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair, err := s.sessions.Refresh(r.Context(), s.cookies.refreshToken(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.cookies.setPair(w, r, pair)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ProfileHandler returns the profile of the authenticated subject.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := subjectFromContext(r.Context())
		if !ok {
			s.writeError(w, r, apperrors.ErrInvalidAccessToken)
			return
		}

		profile, err := s.sessions.Profile(r.Context(), subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// JWKSHandler returns the JSON Web Key Set used to validate tokens. Servers
// signing with a shared secret have nothing to publish.
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.jwks == nil {
			writeJSONError(w, errCodeNotFound, "no public keys are published", http.StatusNotFound)
			return
		}

		jwks, err := s.jwks.GetJWKS()
		if err != nil {
			s.writeError(w, r, apperrors.Tag(apperrors.ErrInternal, err))
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, jwks)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health(r.Context()); err != nil {
				logger.Warn(r.Context(), logger.Err(err, "health check failed", nil))
				writeJSONError(w, errCodeUnavailable, "dependency unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PreflightHandler answers CORS preflight requests; CorsMiddleware has
// already written the access control headers.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeError maps a session error onto its HTTP response. Refresh failures
// also clear the token cookies.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	if !apperrors.IsClientError(err) {
		logger.Error(ctx, logger.Err(err, "request failed", logger.Fields{"path": r.URL.Path}))
		writeJSONError(w, errCodeInternal, "internal server error", http.StatusInternalServerError)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrTooManyRequests):
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, errCodeTooManyRequests, "too many login attempts", http.StatusTooManyRequests)

	case errors.Is(err, apperrors.ErrValidation):
		writeJSONError(w, errCodeInvalidRequest, err.Error(), http.StatusBadRequest)

	case errors.Is(err, apperrors.ErrMissingRefreshToken):
		s.cookies.clear(w, r)
		writeJSONError(w, errCodeMissingRefreshToken, "refresh token required", http.StatusUnauthorized)

	case errors.Is(err, apperrors.ErrRefreshTokenReused):
		s.cookies.clear(w, r)
		writeJSONError(w, errCodeRefreshTokenReused, "refresh token already used", http.StatusUnauthorized)

	case errors.Is(err, apperrors.ErrInvalidRefreshToken):
		logger.Info(ctx, logger.Err(err, "refresh rejected", nil))
		s.cookies.clear(w, r)
		writeJSONError(w, errCodeInvalidRefreshToken, "invalid refresh token", http.StatusUnauthorized)

	case errors.Is(err, apperrors.ErrInvalidAccessToken):
		writeJSONError(w, errCodeInvalidToken, "invalid access token", http.StatusUnauthorized)

	// Unknown login and wrong password are reported identically.
	case errors.Is(err, apperrors.ErrUserNotFound), errors.Is(err, apperrors.ErrCredentialMismatch):
		writeJSONError(w, errCodeInvalidCredentials, "invalid login or password", http.StatusUnauthorized)

	default:
		logger.Error(ctx, logger.Err(err, "unmapped client error", nil))
		writeJSONError(w, errCodeInternal, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
