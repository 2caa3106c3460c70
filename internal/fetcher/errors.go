package fetcher

import (
	"fmt"
)

// FetchError reports why the source could not be retrieved. StatusCode is
// zero when no HTTP response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", redact(e.URL), e.StatusCode, e.Err)
	}
	if e.URL == "" {
		return fmt.Sprintf("fetch: %v", e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", redact(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// redact keeps the scheme, host and the beginning of the path. Published
// sheet URLs embed the document key, which should not end up in CI logs.
func redact(rawURL string) string {
	const keep = 80
	if len(rawURL) <= keep {
		return rawURL
	}
	return rawURL[:keep] + "..."
}
