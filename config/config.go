// Package config resolves runtime settings for qmdkit.
//
// Settings are layered, later sources overriding earlier ones:
//
//  1. Built-in defaults
//  2. .qmdkit.yaml in the working directory
//  3. Environment variables (a .env file is read first, never
//     overriding variables that are already set)
//  4. Stored credentials and command-line flags, applied by the CLI
//
// API keys never live in .qmdkit.yaml. They come from flags, the
// environment, or the credential store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/yanbin85/qmdkit/lang"
	"github.com/yanbin85/qmdkit/proofread"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// DefaultModel is used when no flag, environment variable, stored
// credential, or project file names a model.
const DefaultModel = "gpt-4o-mini"

// DefaultBaseURL is the standard OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 120 * time.Second

// Config holds the fully resolved runtime settings.
type Config struct {
	// Model is the chat completion model identifier.
	Model string
	// BaseURL is the API endpoint base URL.
	BaseURL string
	// APIKey authenticates requests. Resolved by the CLI; never read
	// from the project file.
	APIKey string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout bounds a single completion request.
	Timeout time.Duration
	// DetectThreshold is the Han-to-Latin ratio above which content
	// counts as Chinese.
	DetectThreshold float64
	// CheckBudget caps the content sent for spell checking, in runes.
	CheckBudget int
	// CheckBoundary is the fraction of the budget past which a spell
	// check cut snaps back to the last word boundary.
	CheckBoundary float64
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Model:           DefaultModel,
		BaseURL:         DefaultBaseURL,
		Timeout:         DefaultTimeout,
		DetectThreshold: lang.DefaultThreshold,
		CheckBudget:     proofread.DefaultBudget,
		CheckBoundary:   proofread.DefaultBoundary,
	}
}

// ---------------------------------------------------------------------------
// Project file
// ---------------------------------------------------------------------------

// FileName is the project configuration file name.
const FileName = ".qmdkit.yaml"

// File is the .qmdkit.yaml schema. Unset fields leave the current
// value untouched.
type File struct {
	// Model is the chat completion model identifier.
	Model string `yaml:"model,omitempty"`
	// BaseURL is the API endpoint base URL.
	BaseURL string `yaml:"base_url,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// TimeoutSeconds bounds a single completion request.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	// DetectThreshold is the Chinese-detection ratio.
	DetectThreshold float64 `yaml:"detect_threshold,omitempty"`
	// CheckBudget caps spell check content, in runes.
	CheckBudget int `yaml:"check_budget,omitempty"`
	// CheckBoundary is the spell check word-boundary fraction.
	CheckBoundary float64 `yaml:"check_boundary,omitempty"`
}

// LoadFile loads and validates .qmdkit.yaml from the given directory.
// Returns nil if no .qmdkit.yaml exists.
func LoadFile(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if f.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("%s: timeout_seconds must not be negative (got %d)", path, f.TimeoutSeconds)
	}
	if f.DetectThreshold < 0 {
		return nil, fmt.Errorf("%s: detect_threshold must not be negative (got %g)", path, f.DetectThreshold)
	}
	if f.CheckBudget < 0 {
		return nil, fmt.Errorf("%s: check_budget must not be negative (got %d)", path, f.CheckBudget)
	}
	if f.CheckBoundary < 0 || f.CheckBoundary >= 1 {
		return nil, fmt.Errorf("%s: check_boundary must be in [0, 1) (got %g)", path, f.CheckBoundary)
	}

	return &f, nil
}

// Apply overlays the file's set fields onto c.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.Model != "" {
		c.Model = f.Model
	}
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.Proxy != "" {
		c.Proxy = f.Proxy
	}
	if f.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(f.TimeoutSeconds) * time.Second
	}
	if f.DetectThreshold > 0 {
		c.DetectThreshold = f.DetectThreshold
	}
	if f.CheckBudget > 0 {
		c.CheckBudget = f.CheckBudget
	}
	if f.CheckBoundary > 0 {
		c.CheckBoundary = f.CheckBoundary
	}
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// EnvAPIKey holds the API key. It wins over EnvAPIKeyFallback.
const EnvAPIKey = "AI_Model_API_KEY"

// EnvAPIKeyFallback is the conventional OpenAI key variable.
const EnvAPIKeyFallback = "OPENAI_API_KEY"

// EnvBaseURL holds the API endpoint base URL.
const EnvBaseURL = "AI_Model_BASE_URL"

// EnvModel holds the model identifier.
const EnvModel = "AI_Model_Name"

// LoadDotEnv reads a .env file into the process environment. Variables
// that are already set keep their values. A missing file is fine.
// Filenames default to ".env" in the working directory.
func LoadDotEnv(filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("ignoring unreadable .env file")
	}
}

// ApplyEnv overlays environment variables onto c.
func ApplyEnv(c *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	} else if v := os.Getenv(EnvAPIKeyFallback); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
}
