package tadox

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewTokenSource_CachedToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	token := oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, saveToken(tokenFile, &token))

	ts, err := NewTokenSource(t.Context(), tokenFile, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
}

func TestTokenSource_Invalidate(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "refreshed", "token_type": "bearer", "refresh_token": "refresh-2", "expires_in": 3600}`))
	}))
	defer s.Close()
	origTokenURL := oauthConfig.Endpoint.TokenURL
	oauthConfig.Endpoint.TokenURL = s.URL
	defer func() { oauthConfig.Endpoint.TokenURL = origTokenURL }()

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	token := oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, saveToken(tokenFile, &token))

	ts, err := NewTokenSource(t.Context(), tokenFile, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)

	// the token is still valid locally, but the server has rejected it
	ts.Invalidate()

	got, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed", got.AccessToken)

	// the refreshed token survives a restart
	saved, err := loadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", saved.AccessToken)
	assert.Equal(t, "refresh-2", saved.RefreshToken)
}

func TestLoadToken(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadToken(filepath.Join(t.TempDir(), "token.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("corrupt file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token.json")
		require.NoError(t, os.WriteFile(tokenFile, []byte("not json"), 0o600))
		_, err := loadToken(tokenFile)
		assert.Error(t, err)
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token.json")
		token := oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(-time.Hour)}
		require.NoError(t, saveToken(tokenFile, &token))
		_, err := loadToken(tokenFile)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("expired token with refresh token is usable", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token.json")
		token := oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
		require.NoError(t, saveToken(tokenFile, &token))
		got, err := loadToken(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, "refresh", got.RefreshToken)
	})
}

func TestSaveToken(t *testing.T) {
	// directories are created as needed
	tokenFile := filepath.Join(t.TempDir(), "subdir", "token.json")
	token := oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, saveToken(tokenFile, &token))

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := loadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
}
