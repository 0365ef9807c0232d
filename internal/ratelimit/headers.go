package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// SetHeaders writes the three standard rate-limit headers. The reset time is
// expressed in whole seconds since epoch, ceiling-rounded so clients never
// retry a moment too early.
func SetHeaders(h http.Header, limit int, res Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(ceilUnix(res.ResetAt), 10))
}

func ceilUnix(t time.Time) int64 {
	sec := t.Unix()
	if t.After(time.Unix(sec, 0)) {
		sec++
	}
	return sec
}
