package models

import (
	"context"
	"time"
)

type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

type IDGenerator interface {
	ID() (string, error)
}

type SecretGetter interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

type SecretSetter interface {
	SetSecret(ctx context.Context, key string, value string) error
}

type SecretRemover interface {
	RemoveSecret(ctx context.Context, keys ...string) error
}

type SecretExpirer interface {
	SetSecretExpiry(ctx context.Context, key string, expiresAt time.Time) error
}

// SecretRepository is an encrypted key/value store for credentials.
type SecretRepository interface {
	SecretGetter
	SecretSetter
	SecretExpirer
	SecretRemover
}
