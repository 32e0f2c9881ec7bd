package repository

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

const (
	otpKeyPrefix       = "auth:otp:"
	challengeKeyPrefix = "auth:webauthn:"
)

// codeRecord is the stored form of a delivered code.
type codeRecord struct {
	Code    string                 `json:"code"`
	Channel domain.DeliveryChannel `json:"channel"`
}

// RedisCodeStore keeps delivered one-time codes with a TTL.
// The key pattern is "auth:otp:<principalID>", one pending code per principal.
type RedisCodeStore struct {
	client *redis.Client
}

// NewRedisCodeStore creates a new store instance.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

// Issue replaces any pending code for the principal.
func (r *RedisCodeStore) Issue(ctx context.Context, principalID string, code domain.OneTimeCodeCredential, ttl time.Duration) error {
	if code.Code == "" {
		return errors.New("empty code")
	}
	data, err := json.Marshal(codeRecord{Code: code.Code, Channel: code.Channel})
	if err != nil {
		return fmt.Errorf("encode code: %w", err)
	}

	if err := r.client.Set(ctx, otpKeyPrefix+principalID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store code in redis: %w", err)
	}
	return nil
}

// Find returns the pending code, or domain.ErrNotFound once it expired or was used.
func (r *RedisCodeStore) Find(ctx context.Context, principalID string) (domain.OneTimeCodeCredential, error) {
	data, err := r.client.Get(ctx, otpKeyPrefix+principalID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OneTimeCodeCredential{}, domain.ErrNotFound
		}
		return domain.OneTimeCodeCredential{}, fmt.Errorf("redis error: %w", err)
	}

	var rec codeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.OneTimeCodeCredential{}, fmt.Errorf("decode code: %w", err)
	}
	return domain.OneTimeCodeCredential{Code: rec.Code, Channel: rec.Channel, Verified: true}, nil
}

// Consume deletes the pending code with GETDEL so concurrent completions
// cannot both succeed, then reports whether it matched code.
func (r *RedisCodeStore) Consume(ctx context.Context, principalID, code string) (bool, error) {
	data, err := r.client.GetDel(ctx, otpKeyPrefix+principalID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis error: %w", err)
	}

	var rec codeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, fmt.Errorf("decode code: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1, nil
}

// RedisChallengeStore keeps WebAuthn login sessions keyed by challenge.
// The key pattern is "auth:webauthn:<challenge>".
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore creates a new store instance.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

// Save stores an encoded session until ttl elapses.
func (r *RedisChallengeStore) Save(ctx context.Context, challenge string, session []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, challengeKeyPrefix+challenge, session, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge in redis: %w", err)
	}
	return nil
}

// Take returns and deletes the session, so each challenge is answered once.
func (r *RedisChallengeStore) Take(ctx context.Context, challenge string) ([]byte, error) {
	data, err := r.client.GetDel(ctx, challengeKeyPrefix+challenge).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return data, nil
}
