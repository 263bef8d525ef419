package tadox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// clientID is Tado's public OAuth2 client for the device authorization flow.
const clientID = "1bb50063-6b0c-4d11-bd99-387f4a91cc46"

var oauthConfig = oauth2.Config{
	ClientID: clientID,
	Endpoint: oauth2.Endpoint{
		DeviceAuthURL: "https://login.tado.com/oauth2/device_authorize",
		TokenURL:      "https://login.tado.com/oauth2/token",
	},
	Scopes: []string{"offline_access"},
}

// NewTokenSource returns a TokenSource for the Tado API. If tokenFile
// holds a usable token, it is reused (and refreshed when expired). Otherwise
// the device authorization flow is started: the user is told to visit the
// verification URI and NewTokenSource blocks until the flow completes or ctx
// expires. Refreshed tokens are written back to tokenFile.
func NewTokenSource(ctx context.Context, tokenFile string, logger *slog.Logger) (*TokenSource, error) {
	token, err := loadToken(tokenFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("token cache: %w", err)
		}
		if token, err = deviceLogin(ctx, logger); err != nil {
			return nil, err
		}
		if err = saveToken(tokenFile, token); err != nil {
			logger.Warn("failed to save token", "err", err)
		}
	}

	return &TokenSource{
		ctx:       ctx,
		tokenFile: tokenFile,
		current:   token,
		logger:    logger,
	}, nil
}

func deviceLogin(ctx context.Context, logger *slog.Logger) (*oauth2.Token, error) {
	resp, err := oauthConfig.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth: %w", err)
	}
	uri := resp.VerificationURIComplete
	if uri == "" {
		uri = resp.VerificationURI
	}
	logger.Info("log in to tado to authorize this application", "url", uri, "code", resp.UserCode)

	token, err := oauthConfig.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device token: %w", err)
	}
	logger.Info("authorized", "expiry", token.Expiry)
	return token, nil
}

// A TokenSource serves the cached access token, refreshing it when it is no
// longer valid. Refreshed tokens are written back to the token file, so the
// refresh token survives a restart. It implements oauth2.TokenSource.
type TokenSource struct {
	ctx       context.Context
	tokenFile string
	current   *oauth2.Token
	logger    *slog.Logger
	lock      sync.Mutex
}

func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	if ts.current.Valid() {
		return ts.current, nil
	}
	token, err := oauthConfig.TokenSource(ts.ctx, ts.current).Token()
	if err != nil {
		return nil, err
	}
	ts.current = token
	if err = saveToken(ts.tokenFile, token); err != nil {
		ts.logger.Warn("failed to save refreshed token", "err", err)
	}
	return token, nil
}

// Invalidate discards the cached access token. The server may reject a token
// before its local expiry (e.g. after a password change); the next Token call
// then fetches a fresh one using the refresh token.
func (ts *TokenSource) Invalidate() {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	ts.current = &oauth2.Token{RefreshToken: ts.current.RefreshToken}
}

func loadToken(path string) (*oauth2.Token, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err = json.Unmarshal(content, &token); err != nil {
		return nil, err
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, os.ErrNotExist
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
