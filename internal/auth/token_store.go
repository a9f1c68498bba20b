package auth

import (
	"context"
	"time"

	"capsulevault/internal/cache"
)

const blacklistKeyPrefix = "blacklist:access_token:"

// TokenStoreInterface defines the interface for token revocation storage.
type TokenStoreInterface interface {
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore tracks revoked access tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// BlacklistAccessToken marks a token revoked until its natural expiry.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, blacklistKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token has been revoked.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, blacklistKeyPrefix+tokenID)
	if err != nil {
		return false, nil // fail safe: treat as not revoked
	}
	return data != nil, nil
}
