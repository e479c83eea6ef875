package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"clipforge/internal/services"
)

const (
	defaultBaseURL        = "https://api.elevenlabs.io"
	defaultModel          = "eleven_multilingual_v2"
	defaultOutputFormat   = "mp3_44100_128"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Config captures the ElevenLabs endpoint settings.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// ElevenLabs is a Synthesizer backed by the ElevenLabs REST API.
type ElevenLabs struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)

	mu     sync.Mutex
	voices map[string]map[string]string // secret -> lower(name) -> voice id
}

// Option customizes the client.
type Option func(*ElevenLabs)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *ElevenLabs) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *ElevenLabs) {
		c.retryMaxAttempts = attempts
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *ElevenLabs) {
		c.sleeper = sleeper
	}
}

// NewElevenLabs constructs a client using the supplied configuration.
func NewElevenLabs(cfg Config, opts ...Option) *ElevenLabs {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &ElevenLabs{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		voices:           make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type subscriptionResponse struct {
	CharacterCount              int64 `json:"character_count"`
	CharacterLimit              int64 `json:"character_limit"`
	NextCharacterCountResetUnix int64 `json:"next_character_count_reset_unix"`
}

type voicesResponse struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

type errorDetail struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize renders text with the named voice and returns MP3 bytes.
func (c *ElevenLabs) Synthesize(ctx context.Context, secret, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs synthesize: text required")
	}
	voiceID, err := c.resolveVoice(ctx, secret, voice)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(ttsRequest{Text: text, ModelID: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesize: encode body: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID) + "?output_format=" + defaultOutputFormat
	audio, err := c.doWithRetry(ctx, "elevenlabs synthesize", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		return req, nil
	}, secret)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs synthesize: empty audio response")
	}
	return audio, nil
}

// Usage returns the subscription character counters for the credential.
func (c *ElevenLabs) Usage(ctx context.Context, secret string) (Usage, error) {
	body, err := c.get(ctx, "elevenlabs usage", "/v1/user/subscription", secret)
	if err != nil {
		return Usage{}, err
	}
	var parsed subscriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Usage{}, fmt.Errorf("elevenlabs usage: decode response: %w", err)
	}
	return Usage{
		Used:      parsed.CharacterCount,
		Total:     parsed.CharacterLimit,
		ResetTime: parsed.NextCharacterCountResetUnix,
	}, nil
}

// Voices returns the sorted voice names available to the credential.
func (c *ElevenLabs) Voices(ctx context.Context, secret string) ([]string, error) {
	byName, err := c.loadVoices(ctx, secret)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byName))
	for _, entry := range byName {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names, nil
}

type voiceEntry struct {
	id   string
	name string
}

func (c *ElevenLabs) loadVoices(ctx context.Context, secret string) (map[string]voiceEntry, error) {
	body, err := c.get(ctx, "elevenlabs voices", "/v1/voices", secret)
	if err != nil {
		return nil, err
	}
	var parsed voicesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("elevenlabs voices: decode response: %w", err)
	}
	byName := make(map[string]voiceEntry, len(parsed.Voices))
	ids := make(map[string]string, len(parsed.Voices))
	for _, v := range parsed.Voices {
		name := strings.TrimSpace(v.Name)
		if name == "" || v.VoiceID == "" {
			continue
		}
		byName[strings.ToLower(name)] = voiceEntry{id: v.VoiceID, name: name}
		ids[strings.ToLower(name)] = v.VoiceID
	}
	c.mu.Lock()
	c.voices[secret] = ids
	c.mu.Unlock()
	return byName, nil
}

// resolveVoice maps a voice name to its id. Unknown names that look like ids
// are passed through unchanged.
func (c *ElevenLabs) resolveVoice(ctx context.Context, secret, voice string) (string, error) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return "", services.Wrap(services.ErrValidation, "speech", "resolve voice", "voice required", nil)
	}
	key := strings.ToLower(voice)
	c.mu.Lock()
	cached, ok := c.voices[secret]
	c.mu.Unlock()
	if ok {
		if id, found := cached[key]; found {
			return id, nil
		}
	}
	byName, err := c.loadVoices(ctx, secret)
	if err != nil {
		return "", err
	}
	if entry, found := byName[key]; found {
		return entry.id, nil
	}
	for _, entry := range byName {
		if entry.id == voice {
			return entry.id, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "speech", "resolve voice", fmt.Sprintf("voice %q not available", voice), nil)
}

func (c *ElevenLabs) get(ctx context.Context, op, path, secret string) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path
	return c.doWithRetry(ctx, op, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, secret)
}

func (c *ElevenLabs) doWithRetry(ctx context.Context, op string, build func() (*http.Request, error), secret string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%s: api key required", op)
	}
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("%s: new request: %w", op, err)
		}
		req.Header.Set("xi-api-key", secret)
		body, err := c.send(req, op)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(ctx, err) {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *ElevenLabs) send(req *http.Request, op string) ([]byte, error) {
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
		if quotaExceeded(resp.StatusCode, body) {
			return nil, fmt.Errorf("%w: %w", services.ErrCredentialExhausted, statusErr)
		}
		return nil, statusErr
	}
	return body, nil
}

func quotaExceeded(status int, body []byte) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden && status != http.StatusPaymentRequired {
		return false
	}
	var detail errorDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return false
	}
	return detail.Detail.Status == "quota_exceeded"
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func (c *ElevenLabs) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay << (attempt - 1)
	if delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay
}

func (c *ElevenLabs) sleep(ctx context.Context, d time.Duration) error {
	if c.sleeper != nil {
		c.sleeper(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
