package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openziti/resourcestore/kernel/model"
	"github.com/openziti/resourcestore/kernel/transport"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

// Retrying retries failed reads of next with exponential backoff. Client
// errors other than 429 are not retried.
func Retrying(next Adapter, policy RetryPolicy) Adapter {
	return &retryingAdapter{Adapter: next, policy: policy}
}

type retryingAdapter struct {
	Adapter
	policy RetryPolicy
}

func (a *retryingAdapter) FindRecord(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType, id model.ResourceId) (*Response, error) {
	return a.retry(ctx, func() (*Response, error) {
		return a.Adapter.FindRecord(ctx, buildURL, resourceType, id)
	})
}

func (a *retryingAdapter) FindAll(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType) (*Response, error) {
	return a.retry(ctx, func() (*Response, error) {
		return a.Adapter.FindAll(ctx, buildURL, resourceType)
	})
}

func (a *retryingAdapter) retry(ctx context.Context, op func() (*Response, error)) (*Response, error) {
	b := backoff.NewExponentialBackOff()
	if a.policy.InitialInterval > 0 {
		b.InitialInterval = a.policy.InitialInterval
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if a.policy.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(a.policy.MaxTries))
	}
	if a.policy.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(a.policy.MaxElapsed))
	}

	return backoff.Retry(ctx, func() (*Response, error) {
		resp, err := op()
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, opts...)
}

func retryable(err error) bool {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// RateLimited holds every read of next until limiter admits it.
func RateLimited(next Adapter, limiter *rate.Limiter) Adapter {
	return &rateLimitedAdapter{Adapter: next, limiter: limiter}
}

type rateLimitedAdapter struct {
	Adapter
	limiter *rate.Limiter
}

func (a *rateLimitedAdapter) FindRecord(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType, id model.ResourceId) (*Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	return a.Adapter.FindRecord(ctx, buildURL, resourceType, id)
}

func (a *rateLimitedAdapter) FindAll(ctx context.Context, buildURL BuildURL, resourceType model.ResourceType) (*Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	return a.Adapter.FindAll(ctx, buildURL, resourceType)
}
