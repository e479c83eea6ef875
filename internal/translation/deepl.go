package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipforge/internal/language"
	"clipforge/internal/services"
)

const (
	defaultBaseURL     = "https://api-free.deepl.com"
	defaultHTTPTimeout = 60 * time.Second

	// statusQuotaExceeded is DeepL's "Quota exceeded" response code.
	statusQuotaExceeded = 456
)

// Config captures the DeepL endpoint settings.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// DeepL is a Translator backed by the DeepL v2 REST API.
type DeepL struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*DeepL)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *DeepL) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewDeepL constructs a client using the supplied configuration.
func NewDeepL(cfg Config, opts ...Option) *DeepL {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &DeepL{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

type translateRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

type usageResponse struct {
	CharacterCount int64 `json:"character_count"`
	CharacterLimit int64 `json:"character_limit"`
}

type languageEntry struct {
	Language string `json:"language"`
	Name     string `json:"name"`
}

// Translate translates lines from source into target, preserving order.
func (c *DeepL) Translate(ctx context.Context, secret string, lines []string, source, target string) ([]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	payload := translateRequest{
		Text:       lines,
		SourceLang: sourceCode(source),
		TargetLang: targetCode(target),
	}
	if payload.TargetLang == "" {
		return nil, errors.New("deepl translate: target language required")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("deepl translate: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/translate", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("deepl translate: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req, secret, "deepl translate")
	if err != nil {
		return nil, err
	}
	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("deepl translate: decode response: %w", err)
	}
	if len(parsed.Translations) != len(lines) {
		return nil, fmt.Errorf("deepl translate: expected %d translations, got %d", len(lines), len(parsed.Translations))
	}
	out := make([]string, len(parsed.Translations))
	for i, item := range parsed.Translations {
		out[i] = item.Text
	}
	return out, nil
}

// Usage returns the character counters for the credential.
func (c *DeepL) Usage(ctx context.Context, secret string) (Usage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/usage", nil)
	if err != nil {
		return Usage{}, fmt.Errorf("deepl usage: new request: %w", err)
	}
	body, err := c.do(req, secret, "deepl usage")
	if err != nil {
		return Usage{}, err
	}
	var parsed usageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Usage{}, fmt.Errorf("deepl usage: decode response: %w", err)
	}
	return Usage{Used: parsed.CharacterCount, Total: parsed.CharacterLimit}, nil
}

// Languages lists the source or target languages the credential can use.
func (c *DeepL) Languages(ctx context.Context, secret string, kind LanguageKind) ([]Language, error) {
	if kind != KindSource && kind != KindTarget {
		return nil, fmt.Errorf("deepl languages: unknown kind %q", kind)
	}
	endpoint := c.cfg.BaseURL + "/v2/languages?" + url.Values{"type": {string(kind)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("deepl languages: new request: %w", err)
	}
	body, err := c.do(req, secret, "deepl languages")
	if err != nil {
		return nil, err
	}
	var parsed []languageEntry
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("deepl languages: decode response: %w", err)
	}
	out := make([]Language, 0, len(parsed))
	for _, entry := range parsed {
		code, err := language.Normalize(entry.Language)
		if err != nil {
			continue
		}
		out = append(out, Language{Code: code, Name: strings.TrimSpace(entry.Name)})
	}
	return out, nil
}

func (c *DeepL) do(req *http.Request, secret, op string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%s: auth key required", op)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+secret)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http error: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == statusQuotaExceeded {
			return nil, fmt.Errorf("%w: %w", services.ErrCredentialExhausted, statusErr)
		}
		return nil, statusErr
	}
	return body, nil
}

// sourceCode renders a source tag the way DeepL expects it: base language only,
// upper case. Empty means "let DeepL detect".
func sourceCode(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	return strings.ToUpper(language.Base(tag))
}

// targetCode keeps regional variants ("PT-BR") and picks a default region for
// languages DeepL requires one for.
func targetCode(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	switch strings.ToLower(tag) {
	case "en":
		return "EN-US"
	case "pt":
		return "PT-PT"
	}
	return strings.ToUpper(tag)
}
