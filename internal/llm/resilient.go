package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/radreport-mcp-server/internal/domain"
)

// ResilienceOptions bounds how hard a completer is pushed.
type ResilienceOptions struct {
	Name            string
	Timeout         time.Duration // per attempt; zero means no extra deadline
	MaxRetries      int           // attempts after the first
	Backoff         time.Duration // multiplied by the attempt number
	RateLimit       float64       // requests per second; zero disables limiting
	Burst           int
	BreakerFailures uint32 // consecutive failures that open the breaker
	BreakerTimeout  time.Duration
}

// Resilient wraps a completer with rate limiting, bounded retries, per-attempt
// timeouts and a circuit breaker.
type Resilient struct {
	next    domain.Completer
	opts    ResilienceOptions
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilient wraps next.
func NewResilient(next domain.Completer, opts ResilienceOptions, logger *logrus.Logger) *Resilient {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Name == "" {
		opts.Name = "completion"
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 60 * time.Second
	}

	r := &Resilient{next: next, opts: opts, logger: logger}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	threshold := opts.BreakerFailures
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Completion circuit breaker changed state")
		},
	})
	return r
}

// State reports the breaker state.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

// Complete runs the wrapped completer until it succeeds, the retry budget is
// spent, the breaker opens, or ctx ends.
func (r *Resilient) Complete(ctx context.Context, prompt string) (string, error) {
	attempts := r.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && r.opts.Backoff > 0 {
			if err := sleep(ctx, time.Duration(attempt-1)*r.opts.Backoff); err != nil {
				return "", domain.WrapReportError(domain.ErrCompletion, "completion cancelled", err)
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", domain.WrapReportError(domain.ErrRateLimit, "completion rate limit wait aborted", err)
			}
		}

		out, err := r.breaker.Execute(func() (interface{}, error) {
			actx, cancel := r.attemptContext(ctx)
			defer cancel()
			return r.next.Complete(actx, prompt)
		})
		if err == nil {
			return out.(string), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", domain.WrapReportError(domain.ErrCircuitOpen, "completion backend unavailable", err)
		}
		if ctx.Err() != nil {
			return "", domain.WrapReportError(domain.ErrCompletion, "completion cancelled", ctx.Err())
		}

		lastErr = err
		r.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warn("Completion attempt failed")
	}

	return "", domain.WrapReportError(domain.ErrCompletion, fmt.Sprintf("completion failed after %d attempts", attempts), lastErr)
}

func (r *Resilient) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout > 0 {
		return context.WithTimeout(ctx, r.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
