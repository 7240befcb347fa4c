package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	pkgLog "github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// TokenService issues and verifies the HS256 tokens that carry caller
// identity to the gRPC and HTTP surfaces.
type TokenService interface {
	Issue(ctx context.Context, caller models.Caller) (string, error)
	Parse(ctx context.Context, token string) (models.Caller, error)
}

type callerClaims struct {
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type tokenService struct {
	conf config.JWTConfig
	l    pkgLog.Logger
	now  func() time.Time
}

func NewTokenService(conf config.JWTConfig, l pkgLog.Logger) TokenService {
	return &tokenService{
		conf: conf,
		l:    l,
		now:  time.Now,
	}
}

func (s *tokenService) Issue(ctx context.Context, caller models.Caller) (string, error) {
	if caller.PlayerID == "" {
		return "", ErrTokenInvalidClaims
	}

	now := s.now()
	claims := callerClaims{
		Name:  caller.Name,
		Admin: caller.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.PlayerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.conf.Expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(s.conf.Secret))
	if err != nil {
		s.l.Errorf(ctx, "service.tokenService.Issue: %v", err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenStr, nil
}

func (s *tokenService) Parse(ctx context.Context, token string) (models.Caller, error) {
	if token == "" {
		return models.Caller{}, ErrTokenEmpty
	}

	var claims callerClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenUnexpectedSignature
		}
		return []byte(s.conf.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		s.l.Warnf(ctx, "service.tokenService.Parse: %v", err)
		return models.Caller{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return models.Caller{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return models.Caller{}, ErrTokenInvalidClaims
	}

	return models.Caller{
		PlayerID: claims.Subject,
		Name:     claims.Name,
		Admin:    claims.Admin,
	}, nil
}
