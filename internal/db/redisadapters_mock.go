package db

import (
	"context"
	"encoding"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Implements the LimitedRedisClient interface.
// Only suitable for testing and local development.
// The value set for the IntCmd or similar results is always 1 regardless of how many records were affected.
// Contexts are completely ignored.
type MockRedisClient struct {
	store   map[string]map[string]any
	expires map[string]time.Time
	lock    sync.Mutex
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]map[string]any{}, expires: map[string]time.Time{}}
}

func convertValuesToMap(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return map[string]any{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]any{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]any{}, fmt.Errorf("hash field names must be strings")
		}
		output[key] = values[i+1]
	}
	return output, nil
}

// expireLocked drops the key when its expiry has passed, the lock has to be held
func (m *MockRedisClient) expireLocked(key string) {
	expiresAt, found := m.expires[key]
	if found && time.Now().After(expiresAt) {
		delete(m.store, key)
		delete(m.expires, key)
	}
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	m.expireLocked(key)
	existing, found := m.store[key]
	if !found {
		existing = map[string]any{}
	}
	for k, v := range val {
		existing[k] = v
	}
	m.store[key] = existing
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.store, k)
		delete(m.expires, k)
	}
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) ExpireAt(_ context.Context, key string, tm time.Time) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	if _, found := m.store[key]; !found {
		res.SetVal(false)
		return &res
	}
	m.expires[key] = tm
	res.SetVal(true)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.MapStringStringCmd{}
	res.SetVal(map[string]string{})
	m.expireLocked(key)
	val, found := m.store[key]
	if !found {
		return &res
	}
	output := map[string]string{}
	for k, v := range val {
		switch typed := v.(type) {
		case string:
			output[k] = typed
		case encoding.TextMarshaler:
			raw, err := typed.MarshalText()
			if err != nil {
				res.SetErr(err)
				return &res
			}
			output[k] = string(raw)
		default:
			output[k] = fmt.Sprint(typed)
		}
	}
	res.SetVal(output)
	return &res
}
