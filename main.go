// qmdkit — Quarto markdown translator between English and Chinese.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yanbin85/qmdkit/config"
	"github.com/yanbin85/qmdkit/i18n"
	"github.com/yanbin85/qmdkit/lang"
	"github.com/yanbin85/qmdkit/proofread"
	"github.com/yanbin85/qmdkit/settings"
	"github.com/yanbin85/qmdkit/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// Credential store entries, keyed by endpoint.
const (
	providerOpenAI = "openai"
	providerCustom = "custom"
)

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var verbose bool

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qmdkit",
		Short: "Translate Quarto markdown files between English and Chinese",
		Long: `qmdkit translates Quarto markdown (.qmd) documentation between English
and Chinese through an OpenAI-compatible chat completion API.

The direction comes from the file name: intro.qmd becomes intro.zh.qmd
and intro.zh.qmd becomes intro.qmd. Fenced code blocks never reach the
model, and YAML frontmatter survives byte-for-byte except for the
translated title.

Commands:
  translate   Translate .qmd files (English <-> Chinese)
  check       Proofread .qmd files without translating
  auth        Manage API credentials`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")

	root.AddCommand(
		newTranslateCmd(),
		newCheckCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

// setupLogging configures the diagnostic logger. User-facing output goes
// through the ANSI helpers; logrus carries request traces and timings.
func setupLogging(verbose bool) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

func main() {
	i18n.Init("")
	config.LoadDotEnv()

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qmdkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Provider resolution
// ---------------------------------------------------------------------------

// resolveConfig layers provider settings: built-in defaults, then
// .qmdkit.yaml, then environment variables, then stored credentials,
// with command-line flags on top.
func resolveConfig(apiKey, baseURL, model, proxy string, timeout time.Duration) (config.Config, error) {
	cfg := config.Defaults()

	file, err := config.LoadFile(".")
	if err != nil {
		return cfg, err
	}
	file.Apply(&cfg)

	config.ApplyEnv(&cfg)

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model != "" {
		cfg.Model = model
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if proxy != "" {
		cfg.Proxy = proxy
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	applyStore(&cfg)
	return cfg, nil
}

// providerID maps an endpoint to its credential store entry.
func providerID(baseURL string) string {
	if baseURL == "" || baseURL == config.DefaultBaseURL {
		return providerOpenAI
	}
	return providerCustom
}

// applyStore fills unset provider settings from stored credentials. The
// entry is selected by endpoint: the default endpoint reads "openai",
// anything else reads "custom". When the default endpoint has no stored
// entry at all, a stored custom endpoint takes over so that one
// 'auth login' is enough for local servers.
func applyStore(cfg *config.Config) {
	info := settings.Get(providerID(cfg.BaseURL))
	if info == nil && cfg.BaseURL == config.DefaultBaseURL {
		if custom := settings.Get(providerCustom); custom != nil && custom.BaseURL != "" {
			info = custom
			cfg.BaseURL = custom.BaseURL
		}
	}
	if info == nil {
		return
	}
	if cfg.APIKey == "" {
		cfg.APIKey = info.Key
	}
	if info.Model != "" && cfg.Model == config.DefaultModel {
		cfg.Model = info.Model
	}
}

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ---------------------------------------------------------------------------
// translate (the main operation)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		// Provider selection
		apiKey  string
		baseURL string
		model   string

		// Translation behavior
		targetLang    string
		outputDir     string
		checkSpelling bool
		dryRun        bool

		// Network
		timeout time.Duration
		proxy   string
	)

	cmd := &cobra.Command{
		Use:   "translate [files...]",
		Short: "Translate .qmd files between English and Chinese",
		Long: `Translate Quarto markdown files between English and Chinese.

The direction comes from the file name: intro.qmd translates to Chinese
as intro.zh.qmd, and intro.zh.qmd translates back to English as
intro.qmd. Files with another language marker (guide.fr.qmd) fall back
to content detection. Fenced code blocks never reach the model; the
frontmatter title is translated separately and quoted for YAML safety.

Examples:
  # English to Chinese (writes intro.zh.qmd)
  qmdkit translate intro.qmd

  # Chinese back to English (writes intro.qmd)
  qmdkit translate intro.zh.qmd

  # Force a direction for ambiguous names
  qmdkit translate --target-lang zh notes.fr.qmd

  # Proofread only, change nothing
  qmdkit translate --check-spelling intro.qmd

  # Local Ollama endpoint
  qmdkit translate --base-url http://localhost:11434/v1 --api-key ollama intro.qmd`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if checkSpelling {
				runCheck(checkArgs{
					files:  args,
					apiKey: apiKey, baseURL: baseURL, model: model,
					timeout: timeout, proxy: proxy,
				})
				return
			}
			runTranslate(translateArgs{
				files:  args,
				apiKey: apiKey, baseURL: baseURL, model: model,
				targetLang: targetLang, outputDir: outputDir, dryRun: dryRun,
				timeout: timeout, proxy: proxy,
			})
		},
	}

	// Provider selection
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or AI_Model_API_KEY / OPENAI_API_KEY env var)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL (default: https://api.openai.com/v1)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default: gpt-4o-mini)")

	// Translation behavior
	cmd.Flags().StringVar(&targetLang, "target-lang", "", "Target language: en or zh (default: opposite of the source)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Write output files into this directory")
	cmd.Flags().BoolVar(&checkSpelling, "check-spelling", false, "Check spelling and grammar instead of translating")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be translated without calling the API")

	// Network
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (default: 2m)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/HTTPS proxy URL")

	// Target language completion
	_ = cmd.RegisterFlagCompletionFunc("target-lang", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"en\tEnglish",
			"zh\tChinese (中文)",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	// Model completion
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini",
			"deepseek-chat", "qwen2.5", "glm-4-flash",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	files []string

	// Provider selection
	apiKey  string
	baseURL string
	model   string

	// Translation behavior
	targetLang string
	outputDir  string
	dryRun     bool

	// Network
	timeout time.Duration
	proxy   string
}

func runTranslate(a translateArgs) {
	cfg, err := resolveConfig(a.apiKey, a.baseURL, a.model, a.proxy, a.timeout)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	var target lang.Tag
	if a.targetLang != "" {
		target, err = lang.Parse(a.targetLang)
		if err != nil {
			logError("%v", err)
			os.Exit(1)
		}
	}

	if !a.dryRun && cfg.APIKey == "" {
		logError(i18n.T("No API key found. Use --api-key, set %s or %s, or run 'qmdkit auth login'."),
			config.EnvAPIKey, config.EnvAPIKeyFallback)
		os.Exit(1)
	}

	// Graceful cancellation on Ctrl-C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning(i18n.T("Interrupted, stopping..."))
		cancel()
	}()

	if !a.dryRun {
		logInfo(i18n.T("Model: %s, endpoint: %s"), cfg.Model, cfg.BaseURL)
	}

	client := translate.NewHTTPClient(translate.Provider{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Proxy:   cfg.Proxy,
		Timeout: cfg.Timeout,
	})

	opts := translate.Options{
		Target:    target,
		OutputDir: a.outputDir,
		DryRun:    a.dryRun,
		Resolver:  lang.NewResolver(cfg.DetectThreshold),
		OnLog: func(format string, args ...any) {
			logInfo(format, args...)
		},
		OnWarn: func(format string, args ...any) {
			logWarning(format, args...)
		},
	}

	succeeded := 0
	for _, path := range a.files {
		if ctx.Err() != nil {
			break
		}
		if !fileExists(path) {
			logWarning(i18n.T("File not found: %s"), path)
			continue
		}
		result, err := translate.Translate(ctx, client, path, opts)
		if err != nil {
			logError(i18n.T("Translation failed for %s: %v"), path, err)
			continue
		}
		if !result.DryRun {
			logSuccess(i18n.T("Translated %s -> %s"), result.Source, result.Output)
		}
		succeeded++
	}

	total := len(a.files)
	if a.dryRun {
		logInfo(i18n.T("Dry run: nothing was sent or written"))
		if succeeded != total {
			os.Exit(1)
		}
		return
	}
	if succeeded == total {
		logSuccess(i18n.T("Successfully translated %d/%d files"), succeeded, total)
		return
	}
	logWarning(i18n.T("Translated %d/%d files"), succeeded, total)
	os.Exit(1)
}

// ---------------------------------------------------------------------------
// check (proofread without translating)
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	var (
		// Provider selection
		apiKey  string
		baseURL string
		model   string

		// Network
		timeout time.Duration
		proxy   string
	)

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Proofread .qmd files without translating",
		Long: `Send each file to the model for a spelling and grammar pass.

Issues are reported per file; no file is modified. Long documents are
truncated to a fixed budget before checking. The exit status is 0 when
every requested file existed and was submitted.

Examples:
  qmdkit check intro.qmd
  qmdkit check docs/*.zh.qmd`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runCheck(checkArgs{
				files:  args,
				apiKey: apiKey, baseURL: baseURL, model: model,
				timeout: timeout, proxy: proxy,
			})
		},
	}

	// Provider selection
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or AI_Model_API_KEY / OPENAI_API_KEY env var)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL (default: https://api.openai.com/v1)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default: gpt-4o-mini)")

	// Network
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (default: 2m)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/HTTPS proxy URL")

	return cmd
}

type checkArgs struct {
	files []string

	// Provider selection
	apiKey  string
	baseURL string
	model   string

	// Network
	timeout time.Duration
	proxy   string
}

func runCheck(a checkArgs) {
	cfg, err := resolveConfig(a.apiKey, a.baseURL, a.model, a.proxy, a.timeout)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	if cfg.APIKey == "" {
		logError(i18n.T("No API key found. Use --api-key, set %s or %s, or run 'qmdkit auth login'."),
			config.EnvAPIKey, config.EnvAPIKeyFallback)
		os.Exit(1)
	}

	// Graceful cancellation on Ctrl-C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning(i18n.T("Interrupted, stopping..."))
		cancel()
	}()

	logInfo(i18n.T("Model: %s, endpoint: %s"), cfg.Model, cfg.BaseURL)

	client := translate.NewHTTPClient(translate.Provider{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Proxy:   cfg.Proxy,
		Timeout: cfg.Timeout,
	})
	checker := proofread.NewChecker(cfg.CheckBudget, cfg.CheckBoundary)

	checked := 0
	for _, path := range a.files {
		if ctx.Err() != nil {
			break
		}
		if !fileExists(path) {
			logWarning(i18n.T("File not found: %s"), path)
			continue
		}
		logInfo(i18n.T("Checking %s"), path)

		report, err := checker.Check(ctx, client, path)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// A failed call degrades to a warning; the file was submitted.
			logWarning(i18n.T("Spell check failed for %s: %v"), path, err)
			checked++
			continue
		}
		checked++

		if report.Truncated {
			logInfo(i18n.T("%s: content truncated to %d characters for checking"), path, cfg.CheckBudget)
		}
		if report.Clean() {
			logSuccess(i18n.T("%s: no issues found"), path)
			continue
		}

		printReport(report)
		if n := len(report.Issues); n > 0 {
			logWarning(i18n.N("%s: found %d issue", "%s: found %d issues", n), path, n)
		} else {
			logWarning(i18n.T("%s: check returned unstructured feedback"), path)
		}
	}

	total := len(a.files)
	if checked == total {
		logSuccess(i18n.T("Checked %d/%d files"), checked, total)
		return
	}
	logWarning(i18n.T("Checked %d/%d files"), checked, total)
	os.Exit(1)
}

// printReport writes check findings to stdout; status stays on stderr.
func printReport(report proofread.Report) {
	fmt.Printf("%s:\n", report.Path)
	for _, issue := range report.Issues {
		if issue.Line != "" {
			fmt.Printf("  line %s: %s\n", issue.Line, issue)
		} else {
			fmt.Printf("  %s\n", issue)
		}
	}
	if report.Freeform != "" {
		fmt.Println("  " + strings.ReplaceAll(strings.TrimSpace(report.Freeform), "\n", "\n  "))
	}
}

// ---------------------------------------------------------------------------
// auth (credential management)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API credentials",
		Long: `Manage stored API credentials for the translation endpoint.

Keys are kept in a 0600 JSON file under your XDG data directory and are
used when neither --api-key nor the environment provides one.

Endpoints:
  openai   OpenAI API (api.openai.com, the default)
  custom   Any OpenAI-compatible endpoint (Ollama, vLLM, SiliconFlow, ...)

Examples:
  qmdkit auth login                      Interactive endpoint selection
  qmdkit auth login --provider openai    Store an OpenAI API key
  qmdkit auth logout                     Remove all credentials
  qmdkit auth list                       Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func authProviderCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{
		providerOpenAI + "\tOpenAI API (api.openai.com)",
		providerCustom + "\tAny OpenAI-compatible endpoint",
	}, cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API credentials",
		Long: `Store an API key (and optionally a custom endpoint) for translation.

If --provider is not specified, you will be prompted to choose.

Endpoints:
  openai   Paste your OpenAI API key
  custom   Endpoint URL + optional API key and default model`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider == "" {
				provider = promptProvider()
			}

			switch provider {
			case providerOpenAI:
				authLoginOpenAI()
			case providerCustom:
				authLoginCustom()
			default:
				logError(i18n.T("Unknown provider '%s'. Use 'openai' or 'custom'."), provider)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Endpoint to configure")
	_ = cmd.RegisterFlagCompletionFunc("provider", authProviderCompletion)

	return cmd
}

// promptProvider shows the endpoint menu and reads a choice from stdin.
func promptProvider() string {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "%sSelect endpoint to configure:%s\n\n", colorBlue, colorReset)
	fmt.Fprintf(os.Stderr, "  1. %s%-8s%s OpenAI API (api.openai.com)\n", colorYellow, providerOpenAI, colorReset)
	fmt.Fprintf(os.Stderr, "  2. %s%-8s%s Any OpenAI-compatible endpoint (Ollama, vLLM, SiliconFlow, ...)\n", colorYellow, providerCustom, colorReset)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Enter choice (number or name): ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}

	switch strings.TrimSpace(scanner.Text()) {
	case "1", providerOpenAI:
		return providerOpenAI
	case "2", providerCustom:
		return providerCustom
	}

	logError(i18n.T("Invalid choice. Run 'qmdkit auth login --provider openai' or '--provider custom'."))
	os.Exit(1)
	return ""
}

func authLoginOpenAI() {
	fmt.Fprintf(os.Stderr, "\n%sOpenAI API Key Setup%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  Get your API key from: %shttps://platform.openai.com/api-keys%s\n\n", colorGreen, colorReset)

	existing := settings.GetAPIKey(providerOpenAI)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key: ")
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing != "" {
			logInfo(i18n.T("Keeping existing key"))
			return
		}
		logError(i18n.T("No API key provided"))
		os.Exit(1)
	}

	if err := settings.SetAPIKey(providerOpenAI, key); err != nil {
		logError(i18n.T("Failed to save credentials: %v"), err)
		os.Exit(1)
	}

	logSuccess(i18n.T("Credentials saved to %s"), settings.FilePath())
	fmt.Fprintf(os.Stderr, "\n  You can now use: qmdkit translate intro.qmd\n\n")
}

func authLoginCustom() {
	fmt.Fprintf(os.Stderr, "\n%sCustom OpenAI-Compatible Endpoint%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)
	existing := settings.Get(providerCustom)

	// Endpoint URL
	if existing != nil && existing.BaseURL != "" {
		fmt.Fprintf(os.Stderr, "  Current endpoint: %s%s%s\n", colorYellow, existing.BaseURL, colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new endpoint URL, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter endpoint URL (e.g., http://localhost:11434/v1): ")
	}
	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	baseURL := strings.TrimSpace(scanner.Text())
	if baseURL == "" && existing != nil {
		baseURL = existing.BaseURL
	}
	if baseURL == "" {
		logError(i18n.T("Endpoint URL is required"))
		os.Exit(1)
	}

	// API key (optional for local endpoints)
	if existing != nil && existing.Key != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing.Key), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new API key, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key (or press Enter if not required): ")
	}
	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	apiKey := strings.TrimSpace(scanner.Text())
	if apiKey == "" && existing != nil {
		apiKey = existing.Key
	}

	// Default model (optional)
	fmt.Fprintf(os.Stderr, "  Default model (or press Enter to skip): ")
	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	model := strings.TrimSpace(scanner.Text())
	if model == "" && existing != nil {
		model = existing.Model
	}

	info := &settings.Info{Key: apiKey, BaseURL: baseURL, Model: model}
	if err := settings.Set(providerCustom, info); err != nil {
		logError(i18n.T("Failed to save credentials: %v"), err)
		os.Exit(1)
	}

	logSuccess(i18n.T("Credentials saved to %s"), settings.FilePath())
	fmt.Fprintf(os.Stderr, "\n  You can now use: qmdkit translate intro.qmd\n\n")
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all endpoints.

If --provider is not specified, credentials for ALL endpoints are removed.

Examples:
  qmdkit auth logout                     Remove all credentials
  qmdkit auth logout --provider openai   Remove only the OpenAI key
  qmdkit auth logout --provider custom   Remove only the custom endpoint`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider != "" {
				switch provider {
				case providerOpenAI, providerCustom:
					if err := settings.Remove(provider); err != nil {
						logError(i18n.T("Failed to remove credentials: %v"), err)
						os.Exit(1)
					}
					logSuccess(i18n.T("Credentials for %s removed"), provider)
				default:
					logError(i18n.T("Unknown provider '%s'. Use 'openai' or 'custom'."), provider)
					os.Exit(1)
				}
				return
			}

			if err := settings.RemoveAll(); err != nil {
				logError(i18n.T("Failed to remove credentials: %v"), err)
				os.Exit(1)
			}
			logSuccess(i18n.T("All stored credentials removed"))
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Endpoint to log out (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", authProviderCompletion)

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%sStored Credentials%s (%s)\n", colorBlue, colorReset, settings.FilePath())
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			fmt.Fprintln(os.Stderr)

			for _, id := range []string{providerOpenAI, providerCustom} {
				entry := settings.Get(id)
				switch {
				case entry != nil && entry.Key != "":
					status := fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
					if entry.BaseURL != "" {
						status += fmt.Sprintf("\n  %8s endpoint: %s", "", entry.BaseURL)
					}
					if entry.Model != "" {
						status += fmt.Sprintf("\n  %8s model: %s", "", entry.Model)
					}
					fmt.Fprintf(os.Stderr, "  %-8s %s\n", id, status)
				case entry != nil && entry.BaseURL != "":
					// An endpoint stored without a key (local servers)
					fmt.Fprintf(os.Stderr, "  %-8s %sconfigured%s (no key)\n", id, colorGreen, colorReset)
					fmt.Fprintf(os.Stderr, "  %8s endpoint: %s\n", "", entry.BaseURL)
				default:
					fmt.Fprintf(os.Stderr, "  %-8s %snot configured%s\n", id, colorRed, colorReset)
				}
			}

			// Environment variables
			fmt.Fprintf(os.Stderr, "\n  %sEnvironment Variables%s\n", colorYellow, colorReset)
			for _, env := range []string{config.EnvAPIKey, config.EnvAPIKeyFallback} {
				if v := os.Getenv(env); v != "" {
					fmt.Fprintf(os.Stderr, "  %s: %s%s%s (overrides stored keys)\n", env, colorGreen, settings.MaskKey(v), colorReset)
				} else {
					fmt.Fprintf(os.Stderr, "  %s: %snot set%s\n", env, colorRed, colorReset)
				}
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}
