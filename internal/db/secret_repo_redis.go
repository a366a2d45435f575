package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
)

const secretPrefix string = "secret"

type storedSecret struct {
	Value     string
	UpdatedAt time.Time
}

// GetSecret reads a secret from redis, decrypting it if encryption is enabled.
func (r RedisAdapter) GetSecret(ctx context.Context, key string) (string, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key(secretPrefix, key)).Result()
	if err != nil {
		return "", err
	}
	output := storedSecret{}
	err = r.deserializeToStruct(raw, &output)
	if err != nil {
		if err == gwerrors.ErrMissingDBResource {
			err = gwerrors.ErrTokenNotFound
		}
		return "", err
	}
	if r.encryptor == nil {
		return output.Value, nil
	}
	return r.encryptor.Decrypt(output.Value)
}

// SetSecret writes a secret to redis, encrypting it if encryption is enabled.
func (r RedisAdapter) SetSecret(ctx context.Context, key string, value string) error {
	secret := storedSecret{Value: value, UpdatedAt: time.Now().UTC()}
	if r.encryptor != nil {
		encValue, err := r.encryptor.Encrypt(value)
		if err != nil {
			return err
		}
		secret.Value = encValue
	}
	slog.Debug(
		"SECRET STORE",
		"message",
		"saving secret",
		"key",
		key,
		"encrypted",
		r.encryptor != nil,
	)
	return r.rdb.HSet(ctx, r.key(secretPrefix, key), r.serializeStruct(secret)...).Err()
}

// SetSecretExpiry lets redis drop the secret at the given time. A zero time keeps it forever.
func (r RedisAdapter) SetSecretExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	if expiresAt.IsZero() {
		return nil
	}
	return r.rdb.ExpireAt(ctx, r.key(secretPrefix, key), expiresAt).Err()
}

func (r RedisAdapter) RemoveSecret(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, r.key(secretPrefix, k))
	}
	return r.rdb.Del(ctx, redisKeys...).Err()
}
