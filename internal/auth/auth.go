// Package auth provides the bearer token for the remote record API.
// Providers are tried in order; the first non-empty token wins and is
// checked for expiry before use.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// EnvVar is the environment variable holding the API token.
const EnvVar = "PFLOW_TOKEN"

// ErrTokenExpired indicates a JWT whose exp claim has passed.
var ErrTokenExpired = errors.New("token expired")

// TokenProvider defines the interface for obtaining an API token.
// Implementations may use different sources (environment, files, etc).
type TokenProvider interface {
	GetToken() (string, error)
}

// EnvProvider obtains tokens from an environment variable (PFLOW_TOKEN unless Var is set).
type EnvProvider struct {
	Var string
}

// GetToken reads the environment variable.
// Returns an error if the variable is not set or is empty.
func (e *EnvProvider) GetToken() (string, error) {
	name := e.Var
	if name == "" {
		name = EnvVar
	}
	token := strings.TrimSpace(os.Getenv(name))
	if token == "" {
		return "", fmt.Errorf("%s environment variable not set or empty", name)
	}
	return token, nil
}

// StaticProvider returns a token supplied through configuration.
type StaticProvider string

// GetToken returns the configured token.
func (s StaticProvider) GetToken() (string, error) {
	if token := strings.TrimSpace(string(s)); token != "" {
		return token, nil
	}
	return "", errors.New("no token in configuration")
}

// FileProvider reads a token saved by a previous login. Path defaults to
// pflow/token under the user config directory.
type FileProvider struct {
	Path string
}

// DefaultTokenPath returns the token file location for this user.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "pflow", "token"), nil
}

// GetToken reads and trims the token file.
func (f *FileProvider) GetToken() (string, error) {
	path := f.Path
	if path == "" {
		var err error
		if path, err = DefaultTokenPath(); err != nil {
			return "", err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("token file %s: %w", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}

// CheckExpiry rejects JWTs whose exp claim is at or before now. Tokens that
// are not JWTs are passed through; the server remains the authority on
// validity, so signatures are not verified here.
func CheckExpiry(token string, now time.Time) error {
	if strings.Count(token, ".") != 2 {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !now.Before(exp.Time) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, exp.Time.Format(time.RFC3339))
	}
	return nil
}

// Resolve tries providers in order and returns the first valid token.
func Resolve(now time.Time, providers ...TokenProvider) (string, error) {
	var errs []error
	for _, p := range providers {
		token, err := p.GetToken()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := CheckExpiry(token, now); err != nil {
			errs = append(errs, err)
			continue
		}
		return token, nil
	}
	return "", errors.Join(errs...)
}

// GetToken obtains an API token using the following strategy:
// 1. A token from the config file or flags, if any
// 2. The PFLOW_TOKEN environment variable
// 3. The token file under the user config directory
// 4. A clear, actionable error if all fail
func GetToken(configured string) (string, error) {
	token, err := Resolve(time.Now(), StaticProvider(configured), &EnvProvider{}, &FileProvider{})
	if err == nil {
		return token, nil
	}

	path, _ := DefaultTokenPath()
	return "", fmt.Errorf(
		"failed to obtain API token: %w\n"+
			"Please either:\n"+
			"  1. Set the %s environment variable, or\n"+
			"  2. Save a token to %s, or\n"+
			"  3. Run with --backend sqlite to work offline",
		err, EnvVar, path,
	)
}
