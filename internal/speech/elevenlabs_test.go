package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"clipforge/internal/services"
)

func newVoicesHandler(t *testing.T, synth http.HandlerFunc) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/voices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]string{
				{"voice_id": "id-rachel", "name": "Rachel"},
				{"voice_id": "id-adam", "name": "Adam"},
			},
		})
	})
	if synth != nil {
		mux.HandleFunc("/v1/text-to-speech/", synth)
	}
	mux.HandleFunc("/v1/user/subscription", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int64{
			"character_count":                 120,
			"character_limit":                 10000,
			"next_character_count_reset_unix": 1767225600,
		})
	})
	return mux
}

func TestSynthesizeResolvesVoiceName(t *testing.T) {
	var gotPath, gotModel, gotText string
	server := httptest.NewServer(newVoicesHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var payload ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel, gotText = payload.ModelID, payload.Text
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer server.Close()

	client := NewElevenLabs(Config{BaseURL: server.URL})
	audio, err := client.Synthesize(context.Background(), "secret", "Hello", "adam")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "ID3-audio" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotPath != "/v1/text-to-speech/id-adam" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotModel != defaultModel || gotText != "Hello" {
		t.Fatalf("unexpected payload model=%q text=%q", gotModel, gotText)
	}
}

func TestSynthesizeUnknownVoiceIsValidationError(t *testing.T) {
	server := httptest.NewServer(newVoicesHandler(t, nil))
	defer server.Close()

	client := NewElevenLabs(Config{BaseURL: server.URL})
	_, err := client.Synthesize(context.Background(), "secret", "Hello", "Nobody")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSynthesizeQuotaExceededIsExhaustion(t *testing.T) {
	server := httptest.NewServer(newVoicesHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded","message":"This request exceeds your quota"}}`))
	}))
	defer server.Close()

	client := NewElevenLabs(Config{BaseURL: server.URL})
	_, err := client.Synthesize(context.Background(), "secret", "Hello", "Adam")
	if !errors.Is(err, services.ErrCredentialExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(newVoicesHandler(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewElevenLabs(Config{BaseURL: server.URL}, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if _, err := client.Synthesize(context.Background(), "secret", "Hello", "Adam"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if !reflect.DeepEqual(slept, []time.Duration{time.Second, 2 * time.Second}) {
		t.Fatalf("unexpected backoff %v", slept)
	}
}

func TestSynthesizeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(newVoicesHandler(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"bad text"}`))
	}))
	defer server.Close()

	client := NewElevenLabs(Config{BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.Synthesize(context.Background(), "secret", "Hello", "Adam"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestUsageAndVoices(t *testing.T) {
	server := httptest.NewServer(newVoicesHandler(t, nil))
	defer server.Close()

	client := NewElevenLabs(Config{BaseURL: server.URL + "/"})
	usage, err := client.Usage(context.Background(), "secret")
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage != (Usage{Used: 120, Total: 10000, ResetTime: 1767225600}) {
		t.Fatalf("unexpected usage %+v", usage)
	}
	voices, err := client.Voices(context.Background(), "secret")
	if err != nil {
		t.Fatalf("Voices returned error: %v", err)
	}
	if !reflect.DeepEqual(voices, []string{"Adam", "Rachel"}) {
		t.Fatalf("expected sorted voices, got %v", voices)
	}
	if _, err := client.Voices(context.Background(), "wrong"); err == nil {
		t.Fatal("expected unauthorized error")
	}
	if _, err := client.Voices(context.Background(), ""); err == nil {
		t.Fatal("expected missing key error")
	}
}
