package auth

import "registrar/internal/platform/secrets"

// APIKeys verifies machine-caller keys against a stored bcrypt hash.
// Implements middleware.APIKeyVerifier.
type APIKeys struct {
	hash string
}

func NewAPIKeys(hash string) *APIKeys {
	return &APIKeys{hash: hash}
}

func (a *APIKeys) VerifyKey(key string) error {
	return secrets.Verify(key, a.hash)
}
