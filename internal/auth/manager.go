package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var (
	// ErrNotAuthenticated indicates no valid or refreshable session exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRefreshFailed indicates the refresh-token exchange was rejected.
	// It always results in session invalidation, never a silent retry.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// refreshMargin is how close to expiry an access token may get before the
// manager refreshes it ahead of use.
const refreshMargin = 60 * time.Second

// OAuthScopes are the fixed scopes requested at the consent screen.
var OAuthScopes = []string{
	youtube.YoutubeUploadScope,
	youtube.YoutubepartnerScope,
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// RefreshFunc exchanges a refresh token for fresh token material.
type RefreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

// Manager owns the OAuth credential lifecycle: consent-URL generation, code
// exchange, silent refresh, and construction of authenticated API clients.
//
// The container is read, conditionally refreshed, then rewritten. Two
// concurrent requests could both observe an expiring token; the mutex
// serializes only the refresh-rewrite sequence, so requests holding a
// still-valid token never queue behind a refresh. Separate processes may
// still race, which the provider tolerates (a new access token does not
// invalidate concurrently issued ones from the same refresh token).
type Manager struct {
	oauth oauth2.Config
	mu    sync.Mutex

	// Refresh overrides the refresh-token exchange in tests.
	Refresh RefreshFunc
	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
	// NewService overrides API client construction in tests.
	NewService func(ctx context.Context, creds Credentials) (*youtube.Service, error)
}

// NewManager constructs a Manager bound to the given OAuth application.
func NewManager(clientID, clientSecret, redirectURL string) *Manager {
	return &Manager{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       OAuthScopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the provider consent-screen URL. Offline access plus a
// forced consent prompt ensures a refresh token is granted on every connect.
func (m *Manager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a credential record.
func (m *Manager) Exchange(ctx context.Context, code string) (Credentials, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return Credentials{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	creds := FromToken(token)
	if !creds.Valid() {
		return Credentials{}, errors.New("token exchange returned no access token")
	}
	return creds, nil
}

// Client returns a YouTube API client bound to valid, non-expired credentials
// for the request session. When the access token is within refreshMargin of
// expiry and a refresh token exists, the token is refreshed, merged into the
// record (preserving the original refresh token when the response omits one)
// and the container re-issued. An irrecoverable refresh clears the container.
func (m *Manager) Client(ctx context.Context, session *Session) (*youtube.Service, error) {
	creds, ok := session.Credentials()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	if creds.ExpiresWithin(refreshMargin, m.now()) {
		var err error
		creds, err = m.refreshAndReissue(ctx, session, creds)
		if err != nil {
			return nil, err
		}
	}

	return m.newService(ctx, creds)
}

// refreshAndReissue serializes the refresh-rewrite sequence so concurrent
// expiring requests issue their refresh exchanges one at a time. Requests
// holding a still-valid token never take this path and never contend.
func (m *Manager) refreshAndReissue(ctx context.Context, session *Session, creds Credentials) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if creds.RefreshToken == "" {
		session.Clear()
		return Credentials{}, ErrNotAuthenticated
	}
	fresh, err := m.refresh(ctx, creds.RefreshToken)
	if err != nil {
		session.Clear()
		return Credentials{}, fmt.Errorf("%w: %w: %v", ErrNotAuthenticated, ErrRefreshFailed, err)
	}
	creds = creds.Merge(FromToken(fresh))
	if err := session.Save(creds); err != nil {
		return Credentials{}, fmt.Errorf("re-issue credential container: %w", err)
	}
	return creds, nil
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if m.Refresh != nil {
		return m.Refresh(ctx, refreshToken)
	}
	return m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func (m *Manager) newService(ctx context.Context, creds Credentials) (*youtube.Service, error) {
	if m.NewService != nil {
		return m.NewService(ctx, creds)
	}
	service, err := youtube.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(creds.Token())))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return service, nil
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
