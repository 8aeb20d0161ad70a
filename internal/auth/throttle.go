package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"
)

// Throttle guards login attempts per username.
type Throttle interface {
	Locked(ctx context.Context, username string) bool
	Fail(ctx context.Context, username string)
	Reset(ctx context.Context, username string)
}

// LoginThrottle counts failed logins in Redis. Once maxAttempts failures accumulate
// within the window further attempts are refused until the window elapses.
// Redis errors are logged and never block a login.
type LoginThrottle struct {
	client      redis.Cmdable
	logger      *slog.Logger
	maxAttempts int
	window      time.Duration
}

// NewLoginThrottle constructs a LoginThrottle. maxAttempts <= 0 disables locking.
func NewLoginThrottle(client redis.Cmdable, logger *slog.Logger, maxAttempts int, window time.Duration) *LoginThrottle {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginThrottle{client: client, logger: logger, maxAttempts: maxAttempts, window: window}
}

// throttleKey case-folds the username so that "Alice" and "ALICE" share a counter.
func throttleKey(username string) string {
	return fmt.Sprintf("login:fail:%s", cases.Fold().String(strings.TrimSpace(username)))
}

// Locked reports whether username has exhausted its attempts.
func (t *LoginThrottle) Locked(ctx context.Context, username string) bool {
	if t == nil || t.maxAttempts <= 0 {
		return false
	}
	count, err := t.client.Get(ctx, throttleKey(username)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.logger.Warn("login throttle read", slog.Any("error", err))
		}
		return false
	}
	return count >= t.maxAttempts
}

// Fail records a failed attempt.
func (t *LoginThrottle) Fail(ctx context.Context, username string) {
	if t == nil || t.maxAttempts <= 0 {
		return
	}
	key := throttleKey(username)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		t.logger.Warn("login throttle incr", slog.Any("error", err))
		return
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			t.logger.Warn("login throttle expire", slog.Any("error", err))
		}
	}
}

// Reset clears the failure counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) {
	if t == nil || t.maxAttempts <= 0 {
		return
	}
	if err := t.client.Del(ctx, throttleKey(username)).Err(); err != nil {
		t.logger.Warn("login throttle reset", slog.Any("error", err))
	}
}

var _ Throttle = (*LoginThrottle)(nil)
