package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// limitedClient wraps a Client with a request rate limit and a hard
// per-call timeout. A timed-out or rate-starved call fails like any other
// strategy failure; the caller falls through to the next parsing strategy.
type limitedClient struct {
	inner   Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewRateLimited bounds a capability client to requestsPerMin calls and
// timeout per call.
func NewRateLimited(inner Client, requestsPerMin int, timeout time.Duration) Client {
	if requestsPerMin <= 0 {
		requestsPerMin = 60
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &limitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMin)), requestsPerMin),
		timeout: timeout,
	}
}

func (c *limitedClient) Extract(ctx context.Context, text string) (RawGuess, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.inner.Extract(ctx, text)
}
