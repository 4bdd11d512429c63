package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long Spotify credentials stay around without a login.
// Spotify refresh tokens outlive this, but a queue session that has been idle
// for a month should re-authenticate anyway.
const sessionTTL = 30 * 24 * time.Hour

var ErrTokenNotFound = errors.New("token not found")

type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token needs a refresh before use.
func (t *TokenInfo) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

// TokenStore keeps each user's Spotify credentials in Redis, one entry per
// authenticated user.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) StoreTokens(ctx context.Context, userID string, token *TokenInfo) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := s.client.Set(ctx, tokenKey(userID), tokenJSON, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	return nil
}

func (s *TokenStore) GetTokens(ctx context.Context, userID string) (*TokenInfo, error) {
	tokenJSON, err := s.client.Get(ctx, tokenKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var token TokenInfo
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

func (s *TokenStore) DeleteTokens(ctx context.Context, userID string) error {
	return s.client.Del(ctx, tokenKey(userID)).Err()
}

// UpdateAccessToken swaps in a refreshed access token, keeping the stored
// refresh token.
func (s *TokenStore) UpdateAccessToken(ctx context.Context, userID string, accessToken string, expiresAt time.Time) error {
	token, err := s.GetTokens(ctx, userID)
	if err != nil {
		return err
	}

	token.AccessToken = accessToken
	token.ExpiresAt = expiresAt
	return s.StoreTokens(ctx, userID, token)
}

func tokenKey(userID string) string {
	return fmt.Sprintf("spotify_token:%s", userID)
}
