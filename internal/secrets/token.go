package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Groups this app's secrets in the OS keychain.
	KeyringService = "jobmatch"
	adminAccount   = "jobmatch:admin-token"
)

// AdminToken prefers the keyring-stored token and falls back to the one
// from config, so the token can be kept out of the YAML entirely.
func AdminToken(configToken string) (string, error) {
	if tok, err := keyring.Get(KeyringService, adminAccount); err == nil && strings.TrimSpace(tok) != "" {
		return tok, nil
	}
	if strings.TrimSpace(configToken) != "" {
		return configToken, nil
	}
	return "", errors.New("admin token not found (set it in config or store it in the keychain)")
}

func SetAdminToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, adminAccount, token)
}

func DeleteAdminToken() error {
	return keyring.Delete(KeyringService, adminAccount)
}
