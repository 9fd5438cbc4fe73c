package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the HTTP cookie holding the signed credential container.
const CookieName = "downytube_auth_token"

// containerTTL is the fixed lifetime of the signed container, independent of
// the access-token expiry it carries.
const containerTTL = 30 * 24 * time.Hour

type containerClaims struct {
	jwt.RegisteredClaims
	Credentials Credentials `json:"credentials"`
}

// CookieStore persists credential records as an HMAC-signed JWT in an HTTP
// cookie. The cookie is the sole source of truth for "is a user authenticated".
type CookieStore struct {
	secret []byte
	secure bool

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewCookieStore builds a store signing containers with the provided secret.
// secure controls the cookie's Secure attribute and should be true in production.
func NewCookieStore(secret string, secure bool) (*CookieStore, error) {
	if secret == "" {
		return nil, errors.New("auth: cookie signing secret must not be empty")
	}
	return &CookieStore{secret: []byte(secret), secure: secure}, nil
}

// Issue signs the credential record into a fresh container cookie.
func (s *CookieStore) Issue(w http.ResponseWriter, creds Credentials) error {
	if !creds.Valid() {
		return errors.New("auth: refusing to issue container without access token")
	}

	now := s.now()
	claims := containerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(containerTTL)),
		},
		Credentials: creds,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign credential container: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(containerTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the credential record carried by the request, if any. A missing
// cookie or a failed signature check both report "absent" rather than an
// error so callers that merely probe auth status never crash.
func (s *CookieStore) Read(r *http.Request) (Credentials, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Credentials{}, false
	}

	var claims containerClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Credentials{}, false
	}
	if !claims.Credentials.Valid() {
		return Credentials{}, false
	}
	return claims.Credentials, true
}

// Clear removes the container cookie.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *CookieStore) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// Session binds one request's credential container to its response writer so
// refreshed tokens can be re-issued and failed sessions cleared in place. It
// is the capability passed through the orchestrator instead of ambient
// cookie access.
type Session struct {
	store *CookieStore
	w     http.ResponseWriter
	r     *http.Request
}

// Session scopes the store to a single request/response pair.
func (s *CookieStore) Session(w http.ResponseWriter, r *http.Request) *Session {
	return &Session{store: s, w: w, r: r}
}

// Credentials returns the record carried by this request, if present and valid.
func (s *Session) Credentials() (Credentials, bool) {
	return s.store.Read(s.r)
}

// Save re-issues the container with updated token material.
func (s *Session) Save(creds Credentials) error {
	return s.store.Issue(s.w, creds)
}

// Clear destroys the session container.
func (s *Session) Clear() {
	s.store.Clear(s.w)
}

// Authenticated reports whether a verifiable container is present.
func (s *Session) Authenticated() bool {
	_, ok := s.Credentials()
	return ok
}
