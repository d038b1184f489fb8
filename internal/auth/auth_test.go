package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestEnvProvider_GetToken_Success(t *testing.T) {
	t.Setenv(EnvVar, "  tok_123 ")

	provider := &EnvProvider{}
	token, err := provider.GetToken()

	require.NoError(t, err)
	assert.Equal(t, "tok_123", token)
}

func TestEnvProvider_GetToken_Missing(t *testing.T) {
	t.Setenv(EnvVar, "")

	provider := &EnvProvider{}
	token, err := provider.GetToken()

	assert.Error(t, err)
	assert.Empty(t, token)
	assert.Contains(t, err.Error(), EnvVar)
}

func TestEnvProvider_CustomVar(t *testing.T) {
	t.Setenv("OTHER_TOKEN", "abc")
	token, err := (&EnvProvider{Var: "OTHER_TOKEN"}).GetToken()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestFileProvider_GetToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("file_tok\n"), 0o600))

	token, err := (&FileProvider{Path: path}).GetToken()
	require.NoError(t, err)
	assert.Equal(t, "file_tok", token)

	require.NoError(t, os.WriteFile(path, []byte("   "), 0o600))
	_, err = (&FileProvider{Path: path}).GetToken()
	assert.ErrorContains(t, err, "empty")

	_, err = (&FileProvider{Path: filepath.Join(t.TempDir(), "missing")}).GetToken()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, CheckExpiry("opaque-api-key", now))
	assert.NoError(t, CheckExpiry(signedToken(t, now.Add(time.Hour)), now))
	assert.ErrorIs(t, CheckExpiry(signedToken(t, now.Add(-time.Hour)), now), ErrTokenExpired)
	assert.NoError(t, CheckExpiry("a.b.c", now), "unparseable tokens are left to the server")
}

func TestResolve_FallsThrough(t *testing.T) {
	now := time.Now()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("from_file"), 0o600))

	t.Setenv(EnvVar, signedToken(t, now.Add(-time.Minute)))
	token, err := Resolve(now, &EnvProvider{}, &FileProvider{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "from_file", token, "expired env token is skipped")
}

func TestResolve_AllFail(t *testing.T) {
	t.Setenv(EnvVar, "")
	_, err := Resolve(time.Now(), &EnvProvider{}, &FileProvider{Path: filepath.Join(t.TempDir(), "none")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvVar)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetToken_FromEnv(t *testing.T) {
	t.Setenv(EnvVar, "env_tok")
	token, err := GetToken("")
	require.NoError(t, err)
	assert.Equal(t, "env_tok", token)

	token, err = GetToken("configured_tok")
	require.NoError(t, err)
	assert.Equal(t, "configured_tok", token, "configuration wins over the environment")
}

func TestTokenProvider_Interface(t *testing.T) {
	// Verify both implementations satisfy the interface
	var _ TokenProvider = &EnvProvider{}
	var _ TokenProvider = &FileProvider{}
	var _ TokenProvider = StaticProvider("")
}
