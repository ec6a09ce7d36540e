package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
)

const (
	testClientID     = "session-server"
	testClientSecret = "client-secret"
)

type fakeProvider struct {
	srv        *httptest.Server
	signer     *token.KeyPairSigner
	omitID     bool
	audience   string
	tokenCalls int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	kp, err := token.GenerateRSAKeyPair("upstream-key", 2048)
	require.NoError(t, err)

	p := &fakeProvider{signer: token.NewKeyPairSigner(kp), audience: testClientID}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("/jwks", p.jwks)
	mux.HandleFunc("/token", p.token)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) discovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                p.srv.URL,
		"authorization_endpoint":                p.srv.URL + "/authorize",
		"token_endpoint":                        p.srv.URL + "/token",
		"jwks_uri":                              p.srv.URL + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *fakeProvider) jwks(w http.ResponseWriter, _ *http.Request) {
	jwks, err := p.signer.GetJWKS()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	p.tokenCalls++
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if id != testClientID || secret != testClientSecret {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
		return
	}
	if r.PostForm.Get("grant_type") != "password" ||
		r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "s3cret" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}

	resp := map[string]any{
		"access_token": "upstream-access",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if !p.omitID {
		now := time.Now()
		idToken, err := p.signer.Sign(jwt.MapClaims{
			"iss": p.srv.URL,
			"sub": "upstream-subject-1",
			"aud": p.audience,
			"iat": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		})
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp["id_token"] = idToken
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newVerifier(t *testing.T, p *fakeProvider, opts ...Option) *Verifier {
	t.Helper()
	v, err := New(context.Background(), Config{
		Issuer:       p.srv.URL,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	}, opts...)
	require.NoError(t, err)
	return v
}

func TestVerifySuccess(t *testing.T) {
	p := newFakeProvider(t)
	v := newVerifier(t, p)

	subject, err := v.Verify(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "upstream-subject-1", subject)
}

func TestVerifyWrongPassword(t *testing.T) {
	p := newFakeProvider(t)
	v := newVerifier(t, p)

	_, err := v.Verify(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, apperrors.ErrCredentialMismatch)
	require.True(t, apperrors.IsClientError(err))
}

func TestVerifyRejectsBadIDToken(t *testing.T) {
	p := newFakeProvider(t)
	p.audience = "someone-else"
	v := newVerifier(t, p)

	_, err := v.Verify(context.Background(), "alice", "s3cret")
	require.ErrorIs(t, err, apperrors.ErrInternal)
	require.False(t, apperrors.IsClientError(err))
}

func TestVerifyMissingIDToken(t *testing.T) {
	p := newFakeProvider(t)
	p.omitID = true
	v := newVerifier(t, p)

	_, err := v.Verify(context.Background(), "alice", "s3cret")
	require.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestVerifyProvisionsUser(t *testing.T) {
	p := newFakeProvider(t)
	repo := fakeuserrepo.NewFakeUserRepo()
	v := newVerifier(t, p, WithUserRepo(repo))
	ctx := context.Background()

	subject, err := v.Verify(ctx, "alice", "s3cret")
	require.NoError(t, err)

	u, err := repo.GetByID(ctx, subject)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Login)
	require.Empty(t, u.PasswordHash)

	_, err = v.Verify(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, 2, p.tokenCalls)
}

func TestNewRequiresIssuer(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: testClientID})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Issuer: "http://127.0.0.1:1", ClientID: testClientID})
	require.Error(t, err)
}
