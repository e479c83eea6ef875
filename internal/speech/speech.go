package speech

import (
	"context"
	"fmt"
	"strings"
)

// Synthesizer turns text into narration audio under a provider credential.
type Synthesizer interface {
	Synthesize(ctx context.Context, secret, text, voice string) ([]byte, error)
	Usage(ctx context.Context, secret string) (Usage, error)
	Voices(ctx context.Context, secret string) ([]string, error)
}

// Usage is the provider-reported character quota for a credential. ResetTime is
// a unix timestamp; zero means the provider did not report one.
type Usage struct {
	Used      int64
	Total     int64
	ResetTime int64
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, body)
}
