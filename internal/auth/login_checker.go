package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

// GetSession returns the session stored for the given token,
// or nil when the token is unknown or the session expired.
func (lc *LoginChecker) GetSession(ctx context.Context, token string) (*Session, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := lc.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(cmd.Val()), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if time.Since(session.CreatedAt) > lc.ttl {
		return nil, nil
	}

	return &session, nil
}

func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (bool, error) {
	session, err := lc.GetSession(ctx, token)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}
