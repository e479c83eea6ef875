package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"clipforge/internal/services"
)

func TestDeepLTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key key:fx" {
			t.Errorf("unexpected auth header %q", got)
		}
		var payload translateRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.SourceLang != "EN" || payload.TargetLang != "PT-BR" {
			t.Errorf("unexpected languages %+v", payload)
		}
		translations := make([]map[string]string, 0, len(payload.Text))
		for _, line := range payload.Text {
			translations = append(translations, map[string]string{"text": strings.ToUpper(line)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"translations": translations})
	}))
	defer server.Close()

	client := NewDeepL(Config{BaseURL: server.URL})
	got, err := client.Translate(context.Background(), "key:fx", []string{"hello", "world"}, "en-US", "pt-BR")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"HELLO", "WORLD"}) {
		t.Fatalf("unexpected translation %v", got)
	}
}

func TestDeepLQuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusQuotaExceeded)
		_, _ = w.Write([]byte(`{"message":"Quota Exceeded"}`))
	}))
	defer server.Close()

	client := NewDeepL(Config{BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "key", []string{"hello"}, "en", "de")
	if !errors.Is(err, services.ErrCredentialExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestDeepLUsageAndLanguages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/usage":
			_ = json.NewEncoder(w).Encode(map[string]int64{"character_count": 42, "character_limit": 500000})
		case "/v2/languages":
			if r.URL.Query().Get("type") == "target" {
				_ = json.NewEncoder(w).Encode([]map[string]string{
					{"language": "DE", "name": "German"},
					{"language": "EN-GB", "name": "English (British)"},
					{"language": "PT-BR", "name": "Portuguese (Brazilian)"},
				})
				return
			}
			_ = json.NewEncoder(w).Encode([]map[string]string{{"language": "EN", "name": "English"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewDeepL(Config{BaseURL: server.URL})
	usage, err := client.Usage(context.Background(), "key")
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage != (Usage{Used: 42, Total: 500000}) {
		t.Fatalf("unexpected usage %+v", usage)
	}
	targets, err := client.Languages(context.Background(), "key", KindTarget)
	if err != nil {
		t.Fatalf("Languages returned error: %v", err)
	}
	want := []Language{{Code: "de", Name: "German"}, {Code: "en-GB", Name: "English (British)"}, {Code: "pt-BR", Name: "Portuguese (Brazilian)"}}
	if !reflect.DeepEqual(targets, want) {
		t.Fatalf("unexpected targets %+v", targets)
	}
	sources, err := client.Languages(context.Background(), "key", KindSource)
	if err != nil || len(sources) != 1 || sources[0].Code != "en" {
		t.Fatalf("unexpected sources %+v (err=%v)", sources, err)
	}
	if _, err := client.Languages(context.Background(), "key", "both"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestDeepLRequiresKey(t *testing.T) {
	client := NewDeepL(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Usage(context.Background(), " "); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestLanguageCodes(t *testing.T) {
	cases := []struct{ in, source, target string }{
		{"en", "EN", "EN-US"},
		{"en-GB", "EN", "EN-GB"},
		{"pt", "PT", "PT-PT"},
		{"pt-BR", "PT", "PT-BR"},
		{"de", "DE", "DE"},
	}
	for _, tc := range cases {
		if got := sourceCode(tc.in); got != tc.source {
			t.Errorf("sourceCode(%q) = %q, want %q", tc.in, got, tc.source)
		}
		if got := targetCode(tc.in); got != tc.target {
			t.Errorf("targetCode(%q) = %q, want %q", tc.in, got, tc.target)
		}
	}
}
