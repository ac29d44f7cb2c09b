package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	authdomain "github.com/grihome/grihome/internal/app/domain/auth"
)

// MemoryOTPStore keeps pending codes in process memory. Suitable for tests
// and single-node deployments.
type MemoryOTPStore struct {
	mu   sync.Mutex
	otps map[string]authdomain.OTP
}

// NewMemoryOTPStore creates an empty in-memory store.
func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{otps: map[string]authdomain.OTP{}}
}

func (m *MemoryOTPStore) Put(_ context.Context, otp authdomain.OTP, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp.Attempts = 0
	m.otps[otp.Destination] = otp
	return nil
}

func (m *MemoryOTPStore) Get(_ context.Context, destination string) (authdomain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[destination]
	if !ok {
		return authdomain.OTP{}, fmt.Errorf("no pending otp for destination")
	}
	return otp, nil
}

func (m *MemoryOTPStore) IncrementAttempts(_ context.Context, destination string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[destination]
	if !ok {
		return 0, fmt.Errorf("no pending otp for destination")
	}
	otp.Attempts++
	m.otps[destination] = otp
	return otp.Attempts, nil
}

func (m *MemoryOTPStore) Delete(_ context.Context, destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.otps, destination)
	return nil
}

// RedisOTPStore keeps pending codes in Redis so login survives restarts and
// works across replicas. TTL enforcement is delegated to Redis.
type RedisOTPStore struct {
	client *redis.Client
	prefix string
}

// NewRedisOTPStore creates a store on the given client.
func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client, prefix: "otp:"}
}

func (r *RedisOTPStore) key(destination string) string {
	return r.prefix + destination
}

func (r *RedisOTPStore) attemptsKey(destination string) string {
	return r.prefix + "attempts:" + destination
}

func (r *RedisOTPStore) Put(ctx context.Context, otp authdomain.OTP, ttl time.Duration) error {
	payload, err := json.Marshal(otp)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(otp.Destination), payload, ttl)
	pipe.Del(ctx, r.attemptsKey(otp.Destination))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (r *RedisOTPStore) Get(ctx context.Context, destination string) (authdomain.OTP, error) {
	payload, err := r.client.Get(ctx, r.key(destination)).Bytes()
	if err != nil {
		return authdomain.OTP{}, fmt.Errorf("no pending otp for destination")
	}
	var otp authdomain.OTP
	if err := json.Unmarshal(payload, &otp); err != nil {
		return authdomain.OTP{}, fmt.Errorf("unmarshal otp: %w", err)
	}
	attempts, err := r.client.Get(ctx, r.attemptsKey(destination)).Int()
	if err == nil {
		otp.Attempts = attempts
	}
	return otp, nil
}

func (r *RedisOTPStore) IncrementAttempts(ctx context.Context, destination string) (int, error) {
	attempts, err := r.client.Incr(ctx, r.attemptsKey(destination)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	// Attempts counter expires with the code itself.
	if ttl, err := r.client.TTL(ctx, r.key(destination)).Result(); err == nil && ttl > 0 {
		r.client.Expire(ctx, r.attemptsKey(destination), ttl)
	}
	return int(attempts), nil
}

func (r *RedisOTPStore) Delete(ctx context.Context, destination string) error {
	if err := r.client.Del(ctx, r.key(destination), r.attemptsKey(destination)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// LogSender writes codes to the log instead of delivering them. Used in
// development when no email or SMS gateway is configured.
type LogSender struct {
	Log interface {
		Infof(format string, args ...interface{})
	}
}

func (l LogSender) Send(_ context.Context, channel authdomain.Channel, destination, code string) error {
	if l.Log != nil {
		l.Log.Infof("otp for %s via %s: %s", destination, channel, code)
	}
	return nil
}
