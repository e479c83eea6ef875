package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/language"
)

const userAgent = "clipforge/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyLanguageCompleted(ctx context.Context, lang, finalPath string, clips int) error
	NotifyLanguageFailed(ctx context.Context, lang string, err error, remedy string) error
	NotifyRunCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed Service, or a Service that drops every
// message when notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Disabled{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfy{topicURL: topic, client: &http.Client{Timeout: timeout}}
}

// message is one ntfy publish. Tags always start with "clipforge".
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (m message) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Title", "clipforge - "+m.title)
	h.Set("Tags", strings.Join(append([]string{"clipforge"}, m.tags...), ","))
	if m.priority != "" {
		h.Set("Priority", m.priority)
	}
	return h
}

type ntfy struct {
	topicURL string
	client   *http.Client
}

func (n *ntfy) NotifyLanguageCompleted(ctx context.Context, lang, finalPath string, clips int) error {
	body := fmt.Sprintf("✅ %s video ready (%d clips)", language.DisplayName(lang), clips)
	if finalPath = strings.TrimSpace(finalPath); finalPath != "" {
		body += "\nFile: " + finalPath
	}
	return n.publish(ctx, message{title: "Video Ready", body: body, tags: []string{lang, "completed"}})
}

func (n *ntfy) NotifyLanguageFailed(ctx context.Context, lang string, err error, remedy string) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	body := fmt.Sprintf("❌ %s failed: %s", language.DisplayName(lang), reason)
	if remedy = strings.TrimSpace(remedy); remedy != "" {
		body += "\nNext: " + remedy
	}
	return n.publish(ctx, message{title: "Error", body: body, tags: []string{lang, "error"}, priority: "high"})
}

func (n *ntfy) NotifyRunCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error {
	elapsed := max(duration.Round(time.Second), 0)
	msg := message{
		title: "Run Complete",
		body:  fmt.Sprintf("Run complete: %d languages in %s", succeeded, elapsed),
		tags:  []string{"run", "completed"},
	}
	if failed > 0 {
		msg.title = "Run Complete (with errors)"
		msg.body = fmt.Sprintf("Run complete: %d succeeded, %d failed in %s", succeeded, failed, elapsed)
	}
	return n.publish(ctx, msg)
}

func (n *ntfy) TestNotification(ctx context.Context) error {
	return n.publish(ctx, message{title: "Test", body: "🧪 Notification system test", tags: []string{"test"}, priority: "low"})
}

func (n *ntfy) publish(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header = msg.header()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Disabled drops every notification.
type Disabled struct{}

func (Disabled) NotifyLanguageCompleted(context.Context, string, string, int) error { return nil }
func (Disabled) NotifyLanguageFailed(context.Context, string, error, string) error  { return nil }
func (Disabled) NotifyRunCompleted(context.Context, int, int, time.Duration) error  { return nil }
func (Disabled) TestNotification(context.Context) error                             { return nil }
