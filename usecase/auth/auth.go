// Package auth issues and verifies the bearer tokens that identify task owners.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
)

// Claims carries the owner the token was issued for.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type UseCase struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger *zap.Logger
}

func New(secret, issuer string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
		logger: logger,
	}
}

// IssueToken signs an HS256 token for ownerID valid for ttl.
func (uc *UseCase) IssueToken(ownerID string, ttl time.Duration) (string, time.Time, error) {
	if ownerID == "" {
		return "", time.Time{}, domain.ErrInvalidPayload
	}
	if len(uc.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT_SECRET not set")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := uc.now()
	expires := now.Add(ttl)
	claims := Claims{
		UserID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    uc.issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify validates the token and returns the owner it identifies.
func (uc *UseCase) Verify(tokenString string) (string, error) {
	if len(uc.secret) == 0 || tokenString == "" {
		return "", domain.ErrUnauthorized
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return uc.secret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.WrapError(domain.ErrCodeUnauthorized, domain.ErrUnauthorized.Message, err)
	}
	if uc.issuer != "" && claims.Issuer != "" && claims.Issuer != uc.issuer {
		return "", domain.WrapError(domain.ErrCodeUnauthorized, domain.ErrUnauthorized.Message, errors.New("issuer mismatch"))
	}
	ownerID := claims.UserID
	if ownerID == "" {
		ownerID = claims.Subject
	}
	if ownerID == "" {
		return "", domain.ErrUnauthorized
	}
	return ownerID, nil
}
