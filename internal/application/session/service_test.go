package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/pkg/logger"
)

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), "static", logger.Discard())

	_, err := svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	token, err := svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "static", token)

	require.NoError(t, svc.Start(ctx, Session{Token: "t1", UserID: "u1", UserName: " Ana ", UserEmail: "ana@school.edu"}))

	sess, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", sess.UserName)

	token, err = svc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", token)

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestService_StartValidates(t *testing.T) {
	svc := NewService(NewMemoryStore(), "", logger.Discard())
	err := svc.Start(context.Background(), Session{UserName: "Ana"})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestService_Forget(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), "", logger.Discard())
	require.NoError(t, svc.Start(ctx, Session{UserID: "u1", UserName: "Ana", UserEmail: "a@x"}))

	require.NoError(t, svc.Forget(ctx, "someone-else"))
	_, err := svc.Current(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Forget(ctx, "u1"))
	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}
