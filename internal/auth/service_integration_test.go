//go:build integration_test || all_tests

package auth

import (
	"testing"
	"time"

	pkgtesting "github.com/fitsphere/backend/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_LoginLogout_RealRedis(t *testing.T) {
	ctx, rdb := pkgtesting.GetRedisClientAndCtx(t)
	defer func() {
		require.NoError(t, rdb.Close())
	}()

	users := &userCatalogStub{userID: 42, role: RoleTrainer, hash: testPasswordHash}
	service := NewService(users, time.Hour, rdb)

	token, session, err := service.Login(ctx, testCredentials, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotNil(t, session)
	assert.Equal(t, 42, session.UserID)
	assert.Equal(t, RoleTrainer, session.Role)

	checker := NewLoginChecker(time.Hour, rdb)
	storedSession, err := checker.GetSession(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, storedSession)
	assert.Equal(t, session.UserID, storedSession.UserID)

	loggedOut, err := service.Logout(ctx, token)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	logged, err := checker.IsLogged(ctx, token)
	require.Error(t, err) // token gone from redis
	assert.False(t, logged)
}
