package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ewilliams-labs/songmatch/internal/logging"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
	// maxBackoff caps both exponential growth and a server's Retry-After.
	maxBackoff = 10 * time.Second
)

// send issues a bodiless request, retrying transport failures, 429 and 5xx
// with exponential backoff. A Retry-After header overrides the backoff.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	attempts := c.maxRetries
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	base := c.baseBackoff
	if base <= 0 {
		base = defaultBackoff
	}
	ctx := req.Context()
	log := logging.Component("spotify")

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
		case err != nil:
			lastErr = err
		case !retryableStatus(resp.StatusCode):
			return resp, nil
		default:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}

		if attempt == attempts {
			if resp != nil {
				resp.Body.Close()
			}
			break
		}

		delay := min(base<<(attempt-1), maxBackoff)
		if resp != nil {
			if ra := retryAfter(resp.Header, time.Now()); ra > 0 {
				delay = min(ra, maxBackoff)
			}
			resp.Body.Close()
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("spotify request failed, retrying")

		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("spotify adapter: giving up after %d attempts: %w", attempts, lastErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// retryAfter reads a Retry-After header given as seconds or an HTTP date.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
