package middleware

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

const (
	DefaultCookieName = "session"
	sessionKey        = "session"
)

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	Store  ports.SessionStore
	Secret []byte
	TTL    time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure     bool
	CookieName string
	Log        zerolog.Logger
	// NewID generates session identifiers. Defaults to random UUIDs.
	NewID func() string
	Now   func() time.Time
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Session loads the server-side session named by the signed cookie and
// exposes it through CurrentSession. Changes are saved, and the identifier
// rotated when requested, just before the response header is written.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, stored, err := loadSession(c, cfg)
			if err != nil {
				return err
			}
			c.Set(sessionKey, sess)

			var (
				once      sync.Once
				commitErr error
			)
			commit := func() {
				once.Do(func() { commitErr = commitSession(c, cfg, sess, stored) })
			}
			c.Response().Before(func() {
				commit()
				if commitErr != nil {
					cfg.Log.Error().Err(commitErr).Str("path", c.Path()).Msg("failed to save session")
				}
			})

			if err := next(c); err != nil {
				return err
			}
			if !c.Response().Committed {
				commit()
				return commitErr
			}
			return nil
		}
	}
}

// CurrentSession returns the session attached by the Session middleware.
// It never returns nil.
func CurrentSession(c echo.Context) *domain.Session {
	if sess, ok := c.Get(sessionKey).(*domain.Session); ok && sess != nil {
		return sess
	}
	sess := domain.NewSession("")
	c.Set(sessionKey, sess)
	return sess
}

// loadSession reports whether the returned session already exists in the
// store. Missing, forged and expired cookies start a fresh session.
func loadSession(c echo.Context, cfg SessionConfig) (*domain.Session, bool, error) {
	cookie, err := c.Cookie(cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return domain.NewSession(cfg.NewID()), false, nil
	}

	sid, ok := parseSessionToken(cookie.Value, cfg.Secret, cfg.Now())
	if !ok {
		return domain.NewSession(cfg.NewID()), false, nil
	}

	sess, err := cfg.Store.Load(c.Request().Context(), sid)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(cfg.NewID()), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

func commitSession(c echo.Context, cfg SessionConfig, sess *domain.Session, stored bool) error {
	if !sess.Dirty() && !sess.NeedsRotation() {
		return nil
	}
	ctx := c.Request().Context()

	if sess.NeedsRotation() {
		if stored {
			if err := cfg.Store.Delete(ctx, sess.ID); err != nil {
				return err
			}
			stored = false
		}
		sess.Rotated(cfg.NewID())
	}

	if sess.IsEmpty() {
		if stored {
			if err := cfg.Store.Delete(ctx, sess.ID); err != nil {
				return err
			}
		}
		c.SetCookie(expiredCookie(cfg))
		sess.MarkClean()
		return nil
	}

	if err := cfg.Store.Save(ctx, sess, cfg.TTL); err != nil {
		return err
	}
	expires := cfg.Now().Add(cfg.TTL)
	token, err := signSessionToken(sess.ID, cfg.Secret, expires)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.MarkClean()
	return nil
}

func expiredCookie(cfg SessionConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func signSessionToken(sid string, secret []byte, expires time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SID:              sid,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
	})
	return token.SignedString(secret)
}

func parseSessionToken(raw string, secret []byte, now time.Time) (string, bool) {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid || claims.SID == "" {
		return "", false
	}
	return claims.SID, true
}
