package httpx

import (
	"math/rand"
	"net/http"
	"time"
)

// IsRetryableHTTPStatus reports whether an upstream status is worth another
// attempt: timeouts, throttling and server errors.
func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// Backoff returns the exponential delay before retry number attempt (0-based)
// with up to 50% jitter, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	d += time.Duration(rand.Int63n(int64(d/2) + 1))
	if max > 0 && d > max {
		d = max
	}
	return d
}
