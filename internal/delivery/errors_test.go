package delivery

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantKind Kind
	}{
		{"validation", errs.NewValidationError("max_players", "must be at least 2"), "LBD002", KindInvalid},
		{"invalid role", fmt.Errorf("join: %w", errs.ErrInvalidRole), "LBD001", KindInvalid},
		{"not found", errs.ErrLobbyNotFound, "LBD010", KindNotFound},
		{"denied", &errs.PermissionDeniedError{PlayerID: "p", Role: "captain", List: "vets", Kind: errs.ListKindWhitelist}, "LBD020", KindDenied},
		{"turn", errs.ErrNotYourTurn, "LBD030", KindPrecondition},
		{"queued", errs.ErrAlreadyQueued, "LBD040", KindConflict},
		{"full", errs.ErrLobbyFull, "LBD050", KindExhausted},
		{"remote", &errs.RemoteError{Service: "lobby-service", Op: "join", Status: 502}, "LBD060", KindUnavailable},
		{"diverged", fmt.Errorf("pick: %w", errs.ErrStateDiverged), "LBD090", KindInternal},
		{"unknown", fmt.Errorf("boom"), "LBD099", KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, kind := Classify(tt.err)
			assert.Equal(t, tt.wantCode, b.Code)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestClassify_DeniedKeepsDecidingList(t *testing.T) {
	b, _ := Classify(&errs.PermissionDeniedError{PlayerID: "p", Role: "captain", Config: "ranked", List: "vets", Kind: errs.ListKindWhitelist})
	assert.Contains(t, b.Message, `"vets"`)
}

func TestClassify_InternalIsOpaque(t *testing.T) {
	b, _ := Classify(fmt.Errorf("apply pick 3: rollback: redis: connection refused: %w", errs.ErrStateDiverged))
	assert.Equal(t, errs.ErrStateDiverged.Error(), b.Message)
}

func TestClassify_ValidatorErrors(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
	}
	err := validator.New().Struct(req{})
	require.Error(t, err)

	b, kind := Classify(err)
	assert.Equal(t, "LBD002", b.Code)
	assert.Equal(t, KindInvalid, kind)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "abc", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), models.Caller{PlayerID: "p1", Admin: true})
	c, ok := CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "p1", c.PlayerID)
	assert.True(t, c.Admin)
}
