package delivery

import (
	"context"
	"strings"

	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/internal/service"
)

type callerKey struct{}

func WithCaller(ctx context.Context, c models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the authenticated caller. ok is false when the request
// carried no token.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(models.Caller)
	return c, ok
}

// BearerToken strips an optional "Bearer " prefix from an authorization value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Authenticate parses the token and stores the caller in the context.
func Authenticate(ctx context.Context, tokens service.TokenService, header string) (context.Context, error) {
	caller, err := tokens.Parse(ctx, BearerToken(header))
	if err != nil {
		return ctx, err
	}
	return WithCaller(ctx, caller), nil
}
