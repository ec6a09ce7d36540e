package token

import (
	"crypto/rand"
	"encoding/hex"
	"os"

	"github.com/pkg/errors"
)

// NewSigner builds the signer described by the key material settings. A PEM
// key file takes precedence over an HMAC secret. With neither set an error
// is returned; callers that accept ephemeral keys use GenerateHMACSigner.
func NewSigner(secret, keyFile, keyID string) (Signer, error) {
	if keyFile != "" {
		pemData, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read signing key file")
		}
		keyPair, err := LoadKeyPairFromPEM(keyID, string(pemData))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load signing key %s", keyFile)
		}
		return NewKeyPairSigner(keyPair), nil
	}

	if secret != "" {
		return NewHMACSigner(secret), nil
	}

	return nil, errors.New("no signing key material configured")
}

// GenerateHMACSigner returns an HMAC signer with a random 256 bit secret.
// Tokens it signs do not survive a restart.
func GenerateHMACSigner() (*HMACSigner, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Wrap(err, "failed to generate HMAC secret")
	}
	return NewHMACSigner(hex.EncodeToString(secret)), nil
}
