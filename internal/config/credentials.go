package config

import (
	"fmt"
	"net/url"
	"strings"

	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
)

// Credentials are the connection settings shared by every remote call of a session
type Credentials struct {
	BaseURL string
	APIKey  string
	User    string
}

// Credentials projects the connection settings out of the configuration
func (c Config) Credentials() Credentials {
	return Credentials{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		User:    c.User,
	}
}

// ValidateCredentials checks that credentials are usable
func ValidateCredentials(creds Credentials) error {
	if strings.TrimSpace(creds.APIKey) == "" {
		return fmt.Errorf("%w: set %s or run 'docchat config set api_key <key>'", apierrors.ErrMissingAPIKey, EnvAPIKey)
	}

	u, err := url.Parse(creds.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", creds.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}

	return nil
}

// WithDefaults fills empty fields with default values
func (c Credentials) WithDefaults() Credentials {
	if c.BaseURL == "" {
		c.BaseURL = models.DefaultBaseURL
	}
	if c.User == "" {
		c.User = models.DefaultUser
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// MaskedKey returns the API key with everything but its prefix and last characters hidden
func MaskedKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
