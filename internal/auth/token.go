package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL is the lifetime of both the token and the cookie carrying it.
const SessionTTL = 7 * 24 * time.Hour

// ErrNoSecret is returned by Issue when no signing secret is configured.
var ErrNoSecret = errors.New("jwt secret is not configured")

// Claims is the identity payload embedded in a session token.
type Claims struct {
	UserID int64
	Email  string
	Name   string
}

// Identity is a verified session: the signature, algorithm and expiry of the
// token it came from have all been checked.
type Identity struct {
	UserID    int64
	Email     string
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

// UnverifiedClaims is what a token claims about itself. Nothing in it has
// been checked, so it must not gate access.
type UnverifiedClaims struct {
	UserID    int64
	Email     string
	Name      string
	ExpiresAt time.Time
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewTokenService(secret string, logger *slog.Logger) *TokenService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
		logger: logger,
	}
}

// Enabled reports whether a signing secret is configured.
func (s *TokenService) Enabled() bool {
	return len(s.secret) > 0
}

func (s *TokenService) Issue(claims Claims) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSecret
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email: claims.Email,
		Name:  claims.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies token and returns the identity it carries. Every
// failure is logged and reported as false.
func (s *TokenService) Authenticate(token string) (Identity, bool) {
	if !s.Enabled() {
		s.logger.Warn("session token rejected", "reason", ErrNoSecret.Error())
		return Identity{}, false
	}
	if strings.TrimSpace(token) == "" {
		return Identity{}, false
	}

	claims := sessionClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Warn("session token rejected", "error", err)
		return Identity{}, false
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		s.logger.Warn("session token rejected", "error", err)
		return Identity{}, false
	}

	return Identity{
		UserID:    userID,
		Email:     claims.Email,
		Name:      claims.Name,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}

// Inspect decodes token without checking its signature.
func (s *TokenService) Inspect(token string) (UnverifiedClaims, bool) {
	claims := sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return UnverifiedClaims{}, false
	}
	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return UnverifiedClaims{}, false
	}
	out := UnverifiedClaims{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, true
}

func parseSubject(subject string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(subject), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}
