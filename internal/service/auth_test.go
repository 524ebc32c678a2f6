package service

import (
	"context"
	"testing"
	"time"

	"stock-forecast/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.AuthService.Register(ctx, dto.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.True(t, user.HasPassword())
	assert.NotEqual(t, "correct-horse", *user.PasswordHash)

	_, err = env.svc.AuthService.Register(ctx, dto.RegisterRequest{Username: "alice", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := env.svc.AuthService.Authenticate(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = env.svc.AuthService.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.AuthService.Authenticate(ctx, "nobody", "whatever1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_BotOnlyUserHasNoPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.IdentityService.LinkChatIdentity(ctx, 1, "botuser")
	require.NoError(t, err)

	_, err = env.svc.AuthService.Authenticate(ctx, "botuser", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  dto.RegisterRequest
		msg  string
	}{
		{name: "short username", req: dto.RegisterRequest{Username: "al", Password: "password1"}, msg: "username must be at least 3 characters"},
		{name: "short password", req: dto.RegisterRequest{Username: "alice", Password: "short"}, msg: "password must be at least 8 characters"},
		{name: "bad email", req: dto.RegisterRequest{Username: "alice", Email: "nope", Password: "password1"}, msg: "email must be a valid email address"},
		{name: "symbols", req: dto.RegisterRequest{Username: "al ice", Password: "password1"}, msg: "username may only contain letters and digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AuthService.Register(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.msg, Message(err))
		})
	}
}

func TestIssueAndParseToken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	token, err := env.svc.AuthService.IssueToken(alice)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	id, err := env.svc.AuthService.ParseToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	_, err = env.svc.AuthService.ParseToken(token.AccessToken + "x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	env.clock.Advance(2 * time.Hour)
	_, err = env.svc.AuthService.ParseToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "expired")
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	got, err := env.svc.AuthService.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = env.svc.AuthService.GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
