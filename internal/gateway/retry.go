package gateway

import (
	"context"
	"drivemirror/internal/logger"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// fixedRetryer allows up to attempts calls in total and pauses the same
// amount of time between each of them.
type fixedRetryer struct {
	op       string
	attempts int
	pause    time.Duration
	tried    int
}

func (r *fixedRetryer) Retry(err error) (time.Duration, bool) {
	r.tried++
	if r.tried >= r.attempts || !isTransient(err) {
		return 0, false
	}

	logger.Log.Warn("drive call failed, retrying",
		zap.String("op", r.op),
		zap.Int("attempt", r.tried),
		zap.Int("max_attempts", r.attempts),
		zap.Duration("pause", r.pause),
		zap.Error(err))

	return r.pause, true
}

func invoke(ctx context.Context, op string, attempts int, pause time.Duration, call func(ctx context.Context) error) error {
	return gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		return call(ctx)
	}, gax.WithRetry(func() gax.Retryer {
		return &fixedRetryer{op: op, attempts: attempts, pause: pause}
	}))
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	apiErr, ok := errors.AsType[*googleapi.Error](err)
	if !ok {
		// transport failures only
		if _, ok := errors.AsType[*url.Error](err); ok {
			return true
		}
		_, ok := errors.AsType[net.Error](err)
		return ok
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}

	return false
}
