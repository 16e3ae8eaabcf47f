package cache

import (
	"fmt"
	"strings"
	"time"
)

const HeadlinesTTL = 30 * time.Minute

// HeadlinesKey generates the key for a feed batch of count headlines in
// language code lang.
func HeadlinesKey(lang string, count int) string {
	return fmt.Sprintf("news:headlines:%s:%d", strings.ToLower(lang), count)
}

// RateLimitKey generates the key for rate limiting
func RateLimitKey(clientIP string) string {
	return fmt.Sprintf("ratelimit:ip:%s", clientIP)
}
