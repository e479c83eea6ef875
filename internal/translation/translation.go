package translation

import (
	"context"
	"fmt"
	"strings"
)

// LanguageKind selects the source or target language list.
type LanguageKind string

const (
	KindSource LanguageKind = "source"
	KindTarget LanguageKind = "target"
)

// Language is a provider-supported language with its normalized code.
type Language struct {
	Code string
	Name string
}

// Usage is the provider-reported character quota for a credential.
type Usage struct {
	Used  int64
	Total int64
}

// Translator translates batches of lines under a provider credential.
type Translator interface {
	Translate(ctx context.Context, secret string, lines []string, source, target string) ([]string, error)
	Usage(ctx context.Context, secret string) (Usage, error)
	Languages(ctx context.Context, secret string, kind LanguageKind) ([]Language, error)
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
