// Package privacy strips credentials and signed query parameters from image
// URLs before they reach logs, the result cache or error telemetry.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`\bhttps?://[^\s"']+`)

// RedactURL removes user info, the query string and the fragment from
// rawURL. Scheme, host and path are kept so operators can still tell which
// image failed. Unparseable input is replaced by a short hash.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return HashURL(rawURL)
	}

	if u.User != nil {
		u.User = url.User("redacted")
	}
	if u.RawQuery != "" || u.ForceQuery {
		u.RawQuery = "redacted"
		u.ForceQuery = false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// HashURL returns a stable, non-reversible token for rawURL
func HashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("url-%x", sum[:8])
}

// ScrubMessage redacts every http(s) URL found in message
func ScrubMessage(message string) string {
	if !strings.Contains(message, "://") {
		return message
	}
	return urlPattern.ReplaceAllStringFunc(message, RedactURL)
}

// SanitizedError keeps the original error reachable through Unwrap while
// Error returns a scrubbed message.
type SanitizedError struct {
	original     error
	sanitizedMsg string
}

func (e *SanitizedError) Error() string {
	return e.sanitizedMsg
}

func (e *SanitizedError) Unwrap() error {
	return e.original
}

// WrapError scrubs URLs from err's message. A nil err returns nil.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &SanitizedError{
		original:     err,
		sanitizedMsg: ScrubMessage(err.Error()),
	}
}
