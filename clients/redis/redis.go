package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/lock"
	"github.com/artie-labs/starsync/lib/retry"
)

// releaseScript only deletes the key if it still holds our token, so an expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var retryableNetworkErrors = []error{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	io.EOF,
	syscall.ETIMEDOUT,
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	for _, retryableErr := range retryableNetworkErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := err.Error()
	for _, marker := range []string{"BUSY", "TRYAGAIN", "LOADING", "CLUSTERDOWN", "MASTERDOWN", "connection pool timeout"} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}

	return false
}

// renewScript extends the lock only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lock is a [lock.Locker] shared by every process pointed at the same Redis.
// While held, the key's ttl is renewed every third of the ttl so a long run never loses it.
type Lock struct {
	client   *redis.Client
	key      string
	ttl      time.Duration
	retryCfg retry.RetryConfig
	newToken func() string
}

func NewLock(client *redis.Client, key string, ttl time.Duration) (*Lock, error) {
	if key == "" {
		return nil, fmt.Errorf("lock key is empty")
	}

	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got: %s", ttl)
	}

	return &Lock{
		client: client,
		key:    key,
		ttl:    ttl,
		retryCfg: retry.NewRetryConfig(retry.NewRetryConfigArgs{
			JitterBaseMs:   100,
			JitterMaxMs:    1000,
			MaxAttempts:    3,
			IsRetryableErr: isRetryableError,
		}),
		newToken: uuid.NewString,
	}, nil
}

// tryAcquire sets the key if it is free. On a retry the key may already hold [token] from an attempt whose reply was lost.
func (l *Lock) tryAcquire(ctx context.Context, token string, attempt int) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || acquired || attempt == 0 {
		return acquired, err
	}

	owner, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return owner == token, nil
}

func (l *Lock) Acquire(ctx context.Context) (func(ctx context.Context) error, error) {
	token := l.newToken()
	acquired, err := retry.WithRetries(ctx, l.retryCfg, func(attempt int, _ error) (bool, error) {
		return l.tryAcquire(ctx, token, attempt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %q: %w", l.key, err)
	}

	if !acquired {
		return nil, lock.ErrHeld
	}

	slog.Debug("Acquired run lock", slog.String("key", l.key), slog.Duration("ttl", l.ttl))

	renewCtx, stopRenewing := context.WithCancel(context.WithoutCancel(ctx))
	renewDone := make(chan struct{})
	go func() {
		defer close(renewDone)
		l.keepAlive(renewCtx, token)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			stopRenewing()
			<-renewDone
			err = l.release(ctx, token)
		})
		return err
	}, nil
}

func (l *Lock) keepAlive(ctx context.Context, token string) {
	ticker := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			renewed, err := renewScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("Failed to renew run lock", slog.String("key", l.key), slog.Any("err", err))
				continue
			}

			if renewed == 0 {
				slog.Error("Run lock was lost before the run finished", slog.String("key", l.key))
				return
			}
		}
	}
}

func (l *Lock) release(ctx context.Context, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %q: %w", l.key, err)
	}

	if deleted == 0 {
		slog.Warn("Run lock expired before it was released", slog.String("key", l.key))
	}
	return nil
}

func LoadLock(ctx context.Context, cfg config.Config) (*Lock, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis config is nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Successfully connected to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.Int("port", cfg.Redis.Port),
		slog.Int("database", cfg.Redis.Database),
	)

	return NewLock(client, cfg.Redis.LockKey, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second)
}
