package google

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// RefreshTokenProvider yields token sources from a single long-lived refresh
// token. All calendars share one credential; per-calendar token storage can
// replace this without touching the client.
type RefreshTokenProvider struct {
	config       *oauth2.Config
	refreshToken string

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewRefreshTokenProvider creates a provider from OAuth client credentials
// and a refresh token.
func NewRefreshTokenProvider(clientID, clientSecret, tokenURL, refreshToken string) *RefreshTokenProvider {
	return &RefreshTokenProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		refreshToken: refreshToken,
	}
}

// TokenSource returns a cached, auto-refreshing token source.
func (p *RefreshTokenProvider) TokenSource(ctx context.Context, calendarID string) (oauth2.TokenSource, error) {
	if p.refreshToken == "" {
		return nil, fmt.Errorf("no refresh token configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		p.source = p.config.TokenSource(context.Background(), &oauth2.Token{RefreshToken: p.refreshToken})
	}
	return p.source, nil
}
