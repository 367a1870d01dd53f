package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cabecera/ing-software-caba-itas/internal/config"
)

const (
	AuthPort       = 3000
	authTimeout    = 5 * time.Minute
	callbackPath   = "/oauth/callback"
	tokenDirName   = ".cabanas/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
)

// ScopeGmailSend is the only Google scope the notifier needs
const ScopeGmailSend = "https://www.googleapis.com/auth/gmail.send"

var (
	tokenCache   = map[string]*oauth2.Token{}
	tokenCacheMu sync.Mutex
)

// GetOAuthConfig builds the oauth2 config for the installed app, redirecting to the local callback
func GetOAuthConfig(oauthCfg *config.OAuthClientConfig) (*oauth2.Config, error) {
	raw, err := json.Marshal(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oauth config: %w", err)
	}

	googleConfig, err := google.ConfigFromJSON(raw, ScopeGmailSend)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}
	googleConfig.RedirectURL = fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath)

	return googleConfig, nil
}

// GetTokenWithFlow returns a usable token for env. It tries the memory cache,
// then the token file (refreshing it when expired), and finally runs the
// browser consent flow. Only one flow runs at a time.
func GetTokenWithFlow(ctx context.Context, oauthConfig *oauth2.Config, env string, logger *zap.Logger) (*oauth2.Token, error) {
	tokenCacheMu.Lock()
	defer tokenCacheMu.Unlock()

	if tok := tokenCache[env]; tok != nil && tok.Valid() {
		return tok, nil
	}

	stored, err := LoadTokenFromFile(env)
	if err != nil {
		logger.Warn("Ignoring unreadable token file", zap.String("env", env), zap.Error(err))
	}

	if stored != nil {
		tok, err := oauthConfig.TokenSource(ctx, stored).Token()
		switch {
		case err != nil:
			logger.Warn("Stored token could not be refreshed", zap.Error(err))
		case !grantsScope(tok, ScopeGmailSend):
			logger.Warn("Stored token lacks the gmail.send scope, discarding it")
			if err := DeleteTokenFile(env); err != nil {
				logger.Warn("Failed to delete token file", zap.Error(err))
			}
		default:
			if tok.AccessToken != stored.AccessToken {
				if err := SaveTokenToFile(env, tok); err != nil {
					logger.Warn("Failed to save refreshed token", zap.Error(err))
				}
			}
			tokenCache[env] = tok
			return tok, nil
		}
	}

	authURL := oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Printf("\nVisit this URL to authorize sending email:\n%s\n\n", authURL)

	code, err := awaitAuthCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	tok, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if !grantsScope(tok, ScopeGmailSend) {
		return nil, fmt.Errorf("token is missing scope %s", ScopeGmailSend)
	}

	if err := SaveTokenToFile(env, tok); err != nil {
		logger.Warn("Failed to save token", zap.Error(err))
	}
	tokenCache[env] = tok

	return tok, nil
}

// grantsScope reads the scope list Google returns alongside the token.
// Tokens restored from disk carry no scope list and are trusted.
func grantsScope(tok *oauth2.Token, scope string) bool {
	granted, _ := tok.Extra("scope").(string)
	if granted == "" {
		return true
	}
	for _, s := range strings.Fields(granted) {
		if s == scope {
			return true
		}
	}
	return false
}

// awaitAuthCode serves the redirect target until Google calls back or the flow times out
func awaitAuthCode(ctx context.Context) (string, error) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			select {
			case errs <- errors.New("no authorization code received"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window.</p></body></html>")
		select {
		case codes <- code:
		default:
		}
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", AuthPort), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	select {
	case code := <-codes:
		return code, nil
	case err := <-errs:
		return "", err
	case <-timeoutCtx.Done():
		return "", fmt.Errorf("authorization timeout after %v", authTimeout)
	}
}

func tokenPath(env string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, tokenDirName, fmt.Sprintf("token-%s.json", env)), nil
}

// LoadTokenFromFile returns nil without error when no token was saved for env
func LoadTokenFromFile(env string) (*oauth2.Token, error) {
	path, err := tokenPath(env)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &token, nil
}

func SaveTokenToFile(env string, token *oauth2.Token) error {
	path, err := tokenPath(env)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

func DeleteTokenFile(env string) error {
	path, err := tokenPath(env)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
