// Package translate implements AI-powered translation of QMD documentation
// files between English and Chinese through an OpenAI-compatible chat
// completion API.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/yanbin85/qmdkit/lang"
	"github.com/yanbin85/qmdkit/qmdfile"
)

// ---------------------------------------------------------------------------
// System prompt
// ---------------------------------------------------------------------------

// SystemPrompt is the instruction sent with every translation request.
// {{sourceLang}} and {{targetLang}} are replaced with language names
// before sending.
const SystemPrompt = `You are a professional translator specializing in biomedical and bioinformatics content.
Translate the following text from {{sourceLang}} to {{targetLang}}.

Requirements:

**Formatting Preservation:**
1. Preserve all markdown formatting EXACTLY as it appears in the source (headers, lists, links, emphasis, etc.)
2. Do NOT add or remove any markdown syntax
3. Do NOT translate code placeholders like <<<CODE_BLOCK_N>>>

**Content Accuracy:**
4. Maintain the original meaning and technical accuracy
5. Maintain scientific terminology accuracy
6. For technical terms, use commonly accepted translations in the biomedical field
7. Keep the same tone and style
8. Preserve any special characters and symbols

**Output Restrictions:**
9. ONLY translate the text content, do not add explanations or extra content
10. Only return the translated text, no explanations or additions.`

// resolvePrompt returns the system prompt for a translation direction.
func resolvePrompt(source, target lang.Tag) string {
	p := strings.ReplaceAll(SystemPrompt, "{{sourceLang}}", lang.Info(source).Name)
	return strings.ReplaceAll(p, "{{targetLang}}", lang.Info(target).Name)
}

// ---------------------------------------------------------------------------
// Completion tuning
// ---------------------------------------------------------------------------

const (
	// translateTemperature keeps completions close to deterministic.
	translateTemperature = 0.3
	// translateMaxTokens bounds a single translated segment.
	translateMaxTokens = 4000
)

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for an OpenAI-compatible completion
// service.
type Provider struct {
	// BaseURL is the API base URL (e.g. https://api.openai.com/v1).
	BaseURL string
	// APIKey is the bearer token (empty for keyless local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// ---------------------------------------------------------------------------
// Completion client
// ---------------------------------------------------------------------------

// Request is one chat completion exchange.
type Request struct {
	// System is the instruction prompt.
	System string
	// User is the text submitted for completion.
	User string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxTokens bounds the completion length.
	MaxTokens int
}

// Client performs a single chat completion and returns the trimmed
// completion text. Implementations do not retry.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// HTTPClient is a Client speaking the OpenAI chat completions protocol.
type HTTPClient struct {
	prov Provider
	http *http.Client
}

// NewHTTPClient returns a client bound to the provider's endpoint.
func NewHTTPClient(prov Provider) *HTTPClient {
	return &HTTPClient{
		prov: prov,
		http: makeHTTPClient(prov.Proxy, prov.Timeout),
	}
}

// Complete sends a single POST to the chat completions endpoint. Failures
// are reported as-is; nothing is retried.
func (c *HTTPClient) Complete(ctx context.Context, r Request) (string, error) {
	body, err := buildChatRequest(c.prov.Model, r)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	endpoint := chatEndpoint(c.prov.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.prov.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.prov.APIKey)
	}

	start := time.Now()
	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"model":    c.prov.Model,
		"bytes":    len(body),
	}).Debug("completion request")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("completion response")

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	return extractResponseText(respBody)
}

// chatEndpoint appends /chat/completions to the base URL unless the URL
// already points at it.
func chatEndpoint(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

func buildChatRequest(model string, r Request) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: r.System},
			{Role: "user", Content: r.User},
		},
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		Stream:      false,
	}
	return json.Marshal(req)
}

// extractResponseText pulls the completion text out of a chat completions
// response body.
func extractResponseText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON response: %s", truncate(string(body), 500))
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return "", fmt.Errorf("API error: %s", msg.String())
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
	}
	text := strings.TrimSpace(content.String())
	if text == "" {
		return "", fmt.Errorf("model returned an empty completion")
	}
	return text, nil
}

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls the per-file translation pipeline.
type Options struct {
	// Target fixes the target language. When empty the direction is
	// derived from the resolved source.
	Target lang.Tag
	// OutputDir redirects output files into another directory, keeping
	// the paired base name.
	OutputDir string
	// DryRun resolves and reports without calling the model or writing.
	DryRun bool
	// Resolver decides the translation direction (nil uses defaults).
	Resolver *lang.Resolver
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnWarn emits warnings for conditions that do not stop the file.
	OnWarn func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Per-file pipeline
// ---------------------------------------------------------------------------

// Result describes the outcome for one translated file.
type Result struct {
	// Source is the input path.
	Source string
	// Output is the path the translation was (or would be) written to.
	Output string
	// Resolution is the resolved translation direction.
	Resolution lang.Resolution
	// Blocks is the number of shielded code blocks.
	Blocks int
	// Lost lists indices of code blocks whose placeholder did not
	// survive translation.
	Lost []int
	// DryRun is true when no request was sent and nothing was written.
	DryRun bool
}

// Translate translates one QMD file and writes the paired output file.
// Fenced code is shielded behind placeholders while the body goes through
// the model; the frontmatter title, when present, is translated in a
// second request and spliced back quoted for YAML safety.
func Translate(ctx context.Context, client Client, path string, opts Options) (Result, error) {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = lang.NewResolver(lang.DefaultThreshold)
	}

	doc, err := qmdfile.SplitFile(path)
	if err != nil {
		return Result{Source: path}, err
	}

	outPath := lang.PairPath(path)
	if opts.OutputDir != "" {
		outPath = filepath.Join(opts.OutputDir, filepath.Base(outPath))
	}

	res := resolver.Resolve(path, outPath, doc.Body, opts.Target)
	result := Result{Source: path, Output: outPath, Resolution: res}

	if res.Rule == lang.RuleContent {
		opts.log("%s: no language marker in the name, content reads as %s",
			filepath.Base(path), lang.Info(res.Source).Name)
	}
	if res.Mismatch {
		opts.warn("%s: named as %s but content reads as %s, trusting the name",
			filepath.Base(path), lang.Info(res.Source).Name, lang.Info(res.Detected).Name)
	}

	shielded := qmdfile.Shield(doc.Body)
	result.Blocks = len(shielded.Blocks)
	opts.log("%s -> %s (%s to %s, %d code blocks)",
		path, outPath, lang.Info(res.Source).Name, lang.Info(res.Target).Name, len(shielded.Blocks))

	if opts.DryRun {
		result.DryRun = true
		return result, nil
	}

	prompt := resolvePrompt(res.Source, res.Target)

	body := shielded.Text
	if strings.TrimSpace(body) != "" {
		body, err = client.Complete(ctx, Request{
			System:      prompt,
			User:        shielded.Text,
			Temperature: translateTemperature,
			MaxTokens:   translateMaxTokens,
		})
		if err != nil {
			return result, fmt.Errorf("translating body: %w", err)
		}
	}

	result.Lost = shielded.Lost(body)
	if len(result.Lost) > 0 {
		opts.warn("%s: %d code block placeholder(s) did not survive translation",
			filepath.Base(path), len(result.Lost))
	}
	body = shielded.Restore(body)

	meta := doc.Meta
	if doc.HasFrontmatter() {
		if title, ok := qmdfile.Title(meta); ok {
			translated, err := client.Complete(ctx, Request{
				System:      prompt,
				User:        title,
				Temperature: translateTemperature,
				MaxTokens:   translateMaxTokens,
			})
			if err != nil {
				return result, fmt.Errorf("translating title: %w", err)
			}
			quoted := qmdfile.QuoteTitle(qmdfile.CleanTranslatedTitle(translated))
			meta = qmdfile.ReplaceTitle(meta, quoted)
		}
	}

	content := body
	if doc.HasFrontmatter() {
		content = "---\n" + meta + "\n---\n\n" + body
	}

	if err := qmdfile.WriteFile(outPath, content); err != nil {
		return result, err
	}
	return result, nil
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
