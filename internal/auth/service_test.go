package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	testEmail        = "coach@fitsphere.fit"
	testPassword     = "testpass"
	testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i" // testpass
	testCredentials  = Credentials{
		Email:    testEmail,
		Password: testPassword,
	}
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

type userCatalogStub struct {
	userID int
	role   string
	hash   string
	err    error
}

func (s *userCatalogStub) FindLogin(_ context.Context, _ string) (int, string, string, error) {
	return s.userID, s.role, s.hash, s.err
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	users := &userCatalogStub{userID: 42, role: RoleTrainer, hash: testPasswordHash}
	authService := NewService(users, time.Hour, db)
	require.NotNil(t, authService)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	expectedSession := &Session{
		UserID:    42,
		Role:      RoleTrainer,
		CreatedAt: now,
	}
	expectedSessionJson, err := json.Marshal(expectedSession)
	require.NoError(t, err)

	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, expectedSessionJson, 0).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, session, err := authService.Login(context.Background(), testCredentials, now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
	require.NotNil(t, session)
	assert.Equal(t, 42, session.UserID)
	assert.Equal(t, RoleTrainer, session.Role)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Login_WrongPassword(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	users := &userCatalogStub{userID: 42, role: RoleClient, hash: testPasswordHash}
	authService := NewService(users, time.Hour, db)

	_, _, err := authService.Login(context.Background(), Credentials{
		Email:    testEmail,
		Password: "invalid-pass",
	}, time.Now())
	require.ErrorIs(t, err, ErrWrongCredentials)
}

func TestService_Login_UnknownUser(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	users := &userCatalogStub{err: errors.New("user not found")}
	authService := NewService(users, time.Hour, db)

	_, _, err := authService.Login(context.Background(), testCredentials, time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWrongCredentials)
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	users := &userCatalogStub{userID: 42, role: RoleTrainer, hash: testPasswordHash}
	authService := NewService(users, time.Hour, db)

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken

	sessionJson, err := json.Marshal(&Session{UserID: 42, Role: RoleTrainer, CreatedAt: time.Now()})
	require.NoError(t, err)

	mock.ExpectGet(sessionKey).SetVal(string(sessionJson))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout_UnknownToken(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	users := &userCatalogStub{}
	authService := NewService(users, time.Hour, db)

	sessionKey := sessionKeyPrefix + "nope"
	mock.ExpectGet(sessionKey).RedisNil()

	_, err := authService.Logout(context.Background(), "nope")
	require.Error(t, err)
}
