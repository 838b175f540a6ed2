package validation

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const MaxURLLength = 2048

var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// NormalizeURL trims s and prefixes http:// when it does not start with a
// scheme, so bare hosts like "example.com" become navigable. Other schemes
// are kept for ValidateURL to reject.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if schemePrefix.MatchString(s) {
		return s
	}
	return "http://" + s
}

// ValidateURL validates a normalized page URL
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	if len(urlStr) > MaxURLLength {
		return fmt.Errorf("URL is too long (max %d characters)", MaxURLLength)
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Hostname() == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateTimeout validates a requested navigation timeout. Zero means the
// configured default.
func ValidateTimeout(d, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if d > max {
		return fmt.Errorf("timeout is too long (max %s)", max)
	}
	return nil
}

// TimeoutFromMillis converts a wire timeout in milliseconds, rejecting
// values that would overflow time.Duration.
func TimeoutFromMillis(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("timeout must not be negative")
	}
	if ms > math.MaxInt64/int64(time.Millisecond) {
		return 0, fmt.Errorf("timeout is too long")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
