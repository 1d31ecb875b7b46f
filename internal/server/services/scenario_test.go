package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/rooftop/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpVerifyLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.users.SignUp(ctx, SignUpInput{Username: "alice1", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	require.False(t, created.Verified)

	_, err = f.auth.Login(ctx, "alice1", "secret1")
	require.ErrorIs(t, err, common.ErrNotVerified)

	verified, err := f.users.Verify(ctx, f.verificationToken(t))
	require.NoError(t, err)
	require.True(t, verified.Verified)

	res, err := f.auth.Login(ctx, "alice1", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, created.ID, res.User.ID)

	me, err := f.sessions.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice1", me.Username)

	require.NoError(t, f.auth.Logout(ctx, res.User.ID, res.Token))

	_, err = f.sessions.Authenticate(ctx, res.Token)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}
