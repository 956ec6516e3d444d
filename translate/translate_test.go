package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yanbin85/qmdkit/lang"
)

// ---------------------------------------------------------------------------
// Prompt resolution
// ---------------------------------------------------------------------------

func TestResolvePrompt(t *testing.T) {
	p := resolvePrompt(lang.English, lang.Chinese)
	if !strings.Contains(p, "from English to Chinese") {
		t.Errorf("prompt missing direction: %q", p)
	}
	if strings.Contains(p, "{{") {
		t.Errorf("unresolved placeholder in prompt: %q", p)
	}

	p = resolvePrompt(lang.Chinese, lang.English)
	if !strings.Contains(p, "from Chinese to English") {
		t.Errorf("prompt missing direction: %q", p)
	}
}

// ---------------------------------------------------------------------------
// Endpoint construction
// ---------------------------------------------------------------------------

func TestChatEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"https://proxy.example.com/v1/chat/completions", "https://proxy.example.com/v1/chat/completions"},
		{"http://localhost:11434/v1", "http://localhost:11434/v1/chat/completions"},
	}
	for _, tc := range tests {
		if got := chatEndpoint(tc.base); got != tc.want {
			t.Errorf("chatEndpoint(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

func TestBuildChatRequest(t *testing.T) {
	body, err := buildChatRequest("gpt-4o-mini", Request{
		System:      "sys",
		User:        "usr",
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		t.Fatalf("buildChatRequest: %v", err)
	}

	var decoded struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Stream      bool    `json:"stream"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", decoded.Model)
	}
	if len(decoded.Messages) != 2 || decoded.Messages[0].Role != "system" || decoded.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", decoded.Messages)
	}
	if decoded.Temperature != 0.3 || decoded.MaxTokens != 4000 {
		t.Errorf("tuning = %v/%d", decoded.Temperature, decoded.MaxTokens)
	}
	if decoded.Stream {
		t.Error("stream must be false")
	}
}

func TestExtractResponseText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{
			name: "valid response",
			body: `{"choices":[{"message":{"role":"assistant","content":"  你好  "}}]}`,
			want: "你好",
		},
		{
			name:    "API error object",
			body:    `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			wantErr: "Incorrect API key provided",
		},
		{
			name:    "missing choices",
			body:    `{"id":"x","object":"chat.completion"}`,
			wantErr: "could not extract text",
		},
		{
			name:    "empty content",
			body:    `{"choices":[{"message":{"content":"   "}}]}`,
			wantErr: "empty completion",
		},
		{
			name:    "not JSON",
			body:    `<html>Bad Gateway</html>`,
			wantErr: "invalid JSON",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractResponseText([]byte(tc.body))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// HTTP client
// ---------------------------------------------------------------------------

func TestHTTPClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&body)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, 0.3, body["temperature"])
		assert.Equal(t, float64(4000), body["max_tokens"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"translated text"}}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Provider{
		BaseURL: server.URL + "/v1",
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})

	got, err := client.Complete(context.Background(), Request{
		System:      "sys",
		User:        "usr",
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	assert.NoError(t, err)
	assert.Equal(t, "translated text", got)
}

func TestHTTPClient_Complete_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Provider{BaseURL: server.URL, Model: "llama3", Timeout: 5 * time.Second})
	got, err := client.Complete(context.Background(), Request{User: "x"})
	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestHTTPClient_Complete_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Provider{BaseURL: server.URL, Model: "m", Timeout: 5 * time.Second})
	_, err := client.Complete(context.Background(), Request{User: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestHTTPClient_Complete_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(Provider{BaseURL: server.URL, Model: "m", Timeout: 5 * time.Second})
	_, err := client.Complete(ctx, Request{User: "x"})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Per-file pipeline
// ---------------------------------------------------------------------------

// fakeClient records requests and plays back queued replies. With no
// queued reply it echoes the user text.
type fakeClient struct {
	requests []Request
	replies  []string
	err      error
}

func (f *fakeClient) Complete(_ context.Context, r Request) (string, error) {
	f.requests = append(f.requests, r)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return r.User, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranslate_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := "---\ntitle: Gene Expression\nauthor: Kim\n---\n\n# Intro\n\n```{r}\nlibrary(dplyr)\n```\n\nThe end.\n"
	path := writeInput(t, dir, "intro.qmd", input)

	client := &fakeClient{replies: []string{
		"# 介绍\n\n<<<CODE_BLOCK_0>>>\n\n完。",
		"基因表达: 分析",
	}}

	result, err := Translate(context.Background(), client, path, Options{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if result.Output != filepath.Join(dir, "intro.zh.qmd") {
		t.Errorf("Output = %q", result.Output)
	}
	if result.Resolution.Source != lang.English || result.Resolution.Target != lang.Chinese {
		t.Errorf("direction = %s -> %s", result.Resolution.Source, result.Resolution.Target)
	}
	if result.Blocks != 1 {
		t.Errorf("Blocks = %d", result.Blocks)
	}
	if len(result.Lost) != 0 {
		t.Errorf("Lost = %v", result.Lost)
	}

	// Body request carries the placeholder, never the code itself.
	if len(client.requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(client.requests))
	}
	if !strings.Contains(client.requests[0].User, "<<<CODE_BLOCK_0>>>") {
		t.Error("body request missing placeholder")
	}
	if strings.Contains(client.requests[0].User, "library(dplyr)") {
		t.Error("code leaked into body request")
	}
	if !strings.Contains(client.requests[0].System, "from English to Chinese") {
		t.Errorf("System = %q", client.requests[0].System)
	}
	if client.requests[0].Temperature != 0.3 || client.requests[0].MaxTokens != 4000 {
		t.Errorf("tuning = %v/%d", client.requests[0].Temperature, client.requests[0].MaxTokens)
	}
	if client.requests[1].User != "Gene Expression" {
		t.Errorf("title request = %q", client.requests[1].User)
	}

	data, err := os.ReadFile(result.Output)
	if err != nil {
		t.Fatal(err)
	}
	want := "---\ntitle: \"基因表达: 分析\"\nauthor: Kim\n---\n\n# 介绍\n\n```{r}\nlibrary(dplyr)\n```\n\n完。"
	if string(data) != want {
		t.Errorf("output:\n got: %q\nwant: %q", string(data), want)
	}
}

func TestTranslate_ChineseToEnglish(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "intro.zh.qmd", "这是一个中文文档，用于测试反向翻译。\n")

	client := &fakeClient{replies: []string{"This is a Chinese document for testing reverse translation.\n"}}
	result, err := Translate(context.Background(), client, path, Options{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if result.Output != filepath.Join(dir, "intro.qmd") {
		t.Errorf("Output = %q", result.Output)
	}
	if result.Resolution.Source != lang.Chinese || result.Resolution.Target != lang.English {
		t.Errorf("direction = %s -> %s", result.Resolution.Source, result.Resolution.Target)
	}
	if !strings.Contains(client.requests[0].System, "from Chinese to English") {
		t.Errorf("System = %q", client.requests[0].System)
	}
}

func TestTranslate_ExplicitTargetIsHonoredVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "intro.qmd", "Plain English body.\n")

	client := &fakeClient{}
	result, err := Translate(context.Background(), client, path, Options{Target: lang.English})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	// An explicit target is never second-guessed, even when it matches
	// the source.
	if result.Resolution.Target != lang.English {
		t.Errorf("Target = %s", result.Resolution.Target)
	}
	if !strings.Contains(client.requests[0].System, "from English to English") {
		t.Errorf("System = %q", client.requests[0].System)
	}
}

func TestTranslate_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "intro.qmd", "---\ntitle: T\n---\n\nBody.\n")

	client := &fakeClient{}
	result, err := Translate(context.Background(), client, path, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if !result.DryRun {
		t.Error("DryRun flag not set")
	}
	if len(client.requests) != 0 {
		t.Errorf("dry run sent %d requests", len(client.requests))
	}
	if _, err := os.Stat(result.Output); !os.IsNotExist(err) {
		t.Error("dry run wrote an output file")
	}
}

func TestTranslate_OutputDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out", "zh")
	path := writeInput(t, dir, "guide.qmd", "Body text.\n")

	client := &fakeClient{}
	result, err := Translate(context.Background(), client, path, Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if result.Output != filepath.Join(outDir, "guide.zh.qmd") {
		t.Errorf("Output = %q", result.Output)
	}
	if _, err := os.Stat(result.Output); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestTranslate_LostPlaceholderWarnsAndContinues(t *testing.T) {
	dir := t.TempDir()
	input := "Text.\n\n```python\nprint(1)\n```\n\nMore.\n"
	path := writeInput(t, dir, "nb.qmd", input)

	// The model swallows the placeholder.
	client := &fakeClient{replies: []string{"文本。\n\n更多。"}}

	var warnings []string
	opts := Options{
		OnWarn: func(format string, args ...any) {
			warnings = append(warnings, strings.TrimSpace(format))
		},
	}
	result, err := Translate(context.Background(), client, path, opts)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if len(result.Lost) != 1 || result.Lost[0] != 0 {
		t.Errorf("Lost = %v", result.Lost)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for the lost placeholder")
	}
	if _, err := os.Stat(result.Output); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestTranslate_NoFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "plain.qmd", "Just a body.\n")

	client := &fakeClient{replies: []string{"只是正文。\n"}}
	result, err := Translate(context.Background(), client, path, Options{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	data, err := os.ReadFile(result.Output)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "---") {
		t.Errorf("no-frontmatter output grew a delimiter: %q", string(data))
	}
	if len(client.requests) != 1 {
		t.Errorf("got %d requests, want 1 (no title to translate)", len(client.requests))
	}
}

func TestTranslate_EmptyBodySkipsCompletion(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "empty.qmd", "\n\n")

	client := &fakeClient{}
	result, err := Translate(context.Background(), client, path, Options{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if len(client.requests) != 0 {
		t.Errorf("empty body sent %d requests", len(client.requests))
	}
	data, err := os.ReadFile(result.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\n\n" {
		t.Errorf("output = %q", string(data))
	}
}

func TestTranslate_BodyErrorAbortsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "fail.qmd", "Body.\n")

	client := &fakeClient{err: errors.New("boom")}
	_, err := Translate(context.Background(), client, path, Options{})
	if err == nil || !strings.Contains(err.Error(), "translating body") {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "fail.zh.qmd")); !os.IsNotExist(statErr) {
		t.Error("failed translation left an output file")
	}
}

func TestTranslate_MissingFile(t *testing.T) {
	_, err := Translate(context.Background(), &fakeClient{}, filepath.Join(t.TempDir(), "nope.qmd"), Options{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
