package store

import (
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"aichat/pkg/domain"
)

const defaultSessionTTL = 24 * time.Hour

// JWTSessionStore issues HS256-signed session tokens. Tokens are stateless;
// logout is enforced through the revoker, which only needs to remember a
// token until its natural expiry.
type JWTSessionStore struct {
	secret  []byte
	ttl     time.Duration
	revoker TokenRevoker
}

// NewJWTSessionStore builds a session store signing with secret. A nil
// revoker falls back to an in-memory one.
func NewJWTSessionStore(secret string, ttl time.Duration, revoker TokenRevoker) (*JWTSessionStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if revoker == nil {
		revoker = NewMemoryTokenRevoker()
	}
	return &JWTSessionStore{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
	}, nil
}

type sessionClaims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// NewSession signs a token binding the user's identity.
func (s *JWTSessionStore) NewSession(userID uint, username string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// GetSession verifies the token and resolves the identity it carries.
// Expired, tampered, and revoked tokens all resolve to not-found.
func (s *JWTSessionStore) GetSession(token string) (domain.Session, bool, error) {
	claims, ok := s.parse(token)
	if !ok {
		return domain.Session{}, false, nil
	}
	revoked, err := s.revoker.IsRevoked(token)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Session{}, false, nil
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return domain.Session{}, false, nil
	}
	return domain.Session{
		UserID:   uint(userID),
		Username: claims.Username,
	}, true, nil
}

// DeleteSession revokes the token for the remainder of its lifetime.
// Invalid tokens are ignored: logout is unconditional.
func (s *JWTSessionStore) DeleteSession(token string) error {
	claims, ok := s.parse(token)
	if !ok {
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	return s.revoker.Revoke(token, remaining)
}

func (s *JWTSessionStore) parse(token string) (*sessionClaims, bool) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.ExpiresAt == nil {
		return nil, false
	}
	return claims, true
}
