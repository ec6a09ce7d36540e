package token

import (
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyPairPEMRoundTrip(t *testing.T) {
	for name, gen := range map[string]func() (*KeyPair, error){
		RS256: func() (*KeyPair, error) { return GenerateRSAKeyPair("kid", 1024) },
		ES256: func() (*KeyPair, error) { return GenerateECDSAKeyPair("kid") },
	} {
		t.Run(name, func(t *testing.T) {
			kp, err := gen()
			require.NoError(t, err)
			require.Equal(t, name, kp.Algorithm)

			pemData, err := kp.ExportPrivateKeyPEM()
			require.NoError(t, err)

			loaded, err := LoadKeyPairFromPEM("kid", pemData)
			require.NoError(t, err)
			require.Equal(t, kp.Algorithm, loaded.Algorithm)
			require.Equal(t, kp.GetSigningMethod(), loaded.GetSigningMethod())

			want, err := kp.ToJWK()
			require.NoError(t, err)
			got, err := loaded.ToJWK()
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestGenerateRSAKeyPairEnforcesMinimumSize(t *testing.T) {
	kp, err := GenerateRSAKeyPair("kid", 512)
	require.NoError(t, err)
	require.Equal(t, 2048, kp.PrivateKey.(*rsa.PrivateKey).N.BitLen())
}

func TestLoadKeyPairFromPEMRejectsGarbage(t *testing.T) {
	_, err := LoadKeyPairFromPEM("kid", "not pem")
	require.Error(t, err)

	_, err = LoadKeyPairFromPEM("kid", "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n")
	require.Error(t, err)
}

func TestKeyPairSignerJWKS(t *testing.T) {
	kp, err := GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)

	jwks, err := NewKeyPairSigner(kp).GetJWKS()
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.Equal(t, "kid-1", jwks.Keys[0].Kid)
	require.Equal(t, RS256, jwks.Keys[0].Alg)
	require.Equal(t, "AQAB", jwks.Keys[0].E)
}

func TestNewSigner(t *testing.T) {
	_, err := NewSigner("", "", "kid")
	require.Error(t, err)

	s, err := NewSigner("secret", "", "kid")
	require.NoError(t, err)
	require.IsType(t, &HMACSigner{}, s)

	kp, err := GenerateECDSAKeyPair("kid")
	require.NoError(t, err)
	pemData, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte(pemData), 0o600))

	s, err = NewSigner("secret", path, "kid")
	require.NoError(t, err)
	require.IsType(t, &KeyPairSigner{}, s)

	_, err = NewSigner("", filepath.Join(t.TempDir(), "missing.pem"), "kid")
	require.Error(t, err)
}

func TestGenerateHMACSigner(t *testing.T) {
	a, err := GenerateHMACSigner()
	require.NoError(t, err)
	b, err := GenerateHMACSigner()
	require.NoError(t, err)
	require.NotEqual(t, a.secret, b.secret)
	require.Len(t, a.secret, 64)
}
