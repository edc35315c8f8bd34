package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"boxfetch/downloader"
	"boxfetch/internal"
	"boxfetch/utils"
)

var (
	outputPath  string
	accessToken string
	password    string
	rateLimit   string
	quiet       bool
	proxyURL    string
	timeoutSecs int
	debug       bool
	logLevel    string
	logFile     string
	config      *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "boxfetch [OPTIONS] <URL>",
	Short:   "Download files from Box shared links",
	Version: "v1.0.0",
	Long: `BoxFetch downloads files from Box shared links, with or without an account.

It tries the unauthenticated shared-file endpoint first, falls back to
scraping the shared page, and finally uses the Box API when an access
token is available.

Examples:
  boxfetch https://app.box.com/s/abc123xyz
  boxfetch -o report.pdf https://app.box.com/s/abc123xyz/file/123456
  boxfetch --password s3cret https://company.box.com/s/abc123xyz
  boxfetch --token "$BOXFETCH_TOKEN" https://app.box.com/file/123456
  boxfetch info https://app.box.com/s/abc123xyz
  boxfetch token --client-id ID --client-secret SECRET --code CODE

Environment Variables:
  BOXFETCH_TOKEN       Box API access token
  BOXFETCH_PASSWORD    Shared link password
  BOXFETCH_PROXY       Proxy URL
  BOXFETCH_TIMEOUT     HTTP timeout in seconds
  BOXFETCH_RATE_LIMIT  Default rate limit (e.g., 5M)

DISCLAIMER: Respect Box's Terms of Service and copyright laws.`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		internal.LogInfo("BoxFetch starting up")
		internal.LogDebug("Configuration loaded: timeout=%d, debug=%v, quiet=%v",
			config.DefaultTimeout, config.EnableDebug, config.QuietMode)

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		internal.LogInfo("Processing download request for URL: %s", url)

		if err := validateArguments(url); err != nil {
			internal.LogError("Argument validation failed: %v", err)
			return err
		}

		var rateLimitBytes int64
		var err error
		if rateLimit != "" {
			rateLimitBytes, err = utils.ParseRateLimit(rateLimit)
			if err != nil {
				validationErr := internal.NewValidationErrorWithValue("rate_limit", "invalid format", rateLimit).
					WithSuggestion("Use formats like 1M (1 MB/s), 500K (500 KB/s), or 1024 (1024 bytes/s)")
				internal.LogValidationError(validationErr)
				return fmt.Errorf("invalid rate limit format: %v\n\nSupported formats:\n  - 1M (1 MB/s)\n  - 500K (500 KB/s)\n  - 1024 (1024 bytes/s)", err)
			}
			internal.LogDebug("Rate limit parsed: %s = %d bytes/sec", rateLimit, rateLimitBytes)
		}

		if proxyURL != "" {
			if err := validateProxyURL(proxyURL); err != nil {
				validationErr := internal.NewValidationErrorWithValue("proxy_url", err.Error(), proxyURL).
					WithSuggestion("Use formats like http://proxy:8080 or socks5://proxy:1080")
				internal.LogValidationError(validationErr)
				return fmt.Errorf("invalid proxy URL: %v", err)
			}
			internal.LogDebug("Proxy URL validated: %s", proxyURL)
		}

		return executeDownloadWorkflow(url, rateLimitBytes)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <URL>",
	Short: "Show metadata for a shared link without downloading",
	Long: `Resolve and print a shared item's name, size and kind.

With an access token the metadata comes from the Box API; without one it
is scraped from the shared link's landing page.

Examples:
  boxfetch info https://app.box.com/s/abc123xyz
  boxfetch info --token "$BOXFETCH_TOKEN" https://app.box.com/file/123456`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		if err := validateArguments(url); err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		session, err := downloader.NewLinkSession(url, credentials(), newHTTPClient())
		if err != nil {
			return err
		}

		info, err := session.FetchInfo(ctx)
		if err != nil {
			internal.LogError("Metadata resolution failed: %v", err)
			return err
		}

		fmt.Printf("Name: %s\n", displayName(info))
		fmt.Printf("Kind: %s\n", info.Kind)
		if info.Size >= 0 {
			fmt.Printf("Size: %s (%d bytes)\n", utils.FormatBytes(info.Size), info.Size)
		} else {
			fmt.Printf("Size: unknown\n")
		}

		return nil
	},
}

var (
	oauthClientID     string
	oauthClientSecret string
	oauthCode         string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange an OAuth authorization code for an access token",
	Long: `Exchange a Box OAuth 2.0 authorization code for an access token.

Without --code, prints the authorization URL to open in a browser. After
granting access, Box redirects to https://localhost?code=...; pass that
code back with --code. Codes are single-use and expire within a minute.

Examples:
  boxfetch token --client-id ID
  boxfetch token --client-id ID --client-secret SECRET --code CODE`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if oauthClientID == "" {
			return internal.NewValidationError("client_id", "client id is required").
				WithSuggestion("Create an OAuth app at https://app.box.com/developers/console")
		}

		if oauthCode == "" {
			fmt.Printf("Open this URL in a browser and grant access:\n\n  %s\n\n", downloader.AuthorizeURL(oauthClientID))
			fmt.Printf("Then re-run with --client-secret and the code from the redirect URL.\n")
			return nil
		}

		if oauthClientSecret == "" {
			return internal.NewValidationError("client_secret", "client secret is required to exchange a code")
		}

		ctx, cancel := signalContext()
		defer cancel()

		exchanger := downloader.NewOAuthExchanger(newHTTPClient())
		token, err := exchanger.Exchange(ctx, oauthClientID, oauthClientSecret, oauthCode)
		if err != nil {
			internal.LogError("Token exchange failed: %v", err)
			return err
		}

		fmt.Printf("Access token: %s\n", token.AccessToken)
		fmt.Printf("Expires in: %s\n", time.Duration(token.ExpiresIn)*time.Second)
		fmt.Printf("\nExport it for later runs:\n  export BOXFETCH_TOKEN=%s\n", token.AccessToken)

		return nil
	},
}

// loadConfiguration loads configuration from environment variables and merges with CLI flags
func loadConfiguration() error {
	config = internal.DefaultConfig()
	config.LoadFromEnv()

	if accessToken == "" {
		accessToken = config.AccessToken
	}

	if password == "" {
		password = config.Password
	}

	if proxyURL == "" {
		proxyURL = config.ProxyURL
	}

	if rateLimit == "" {
		rateLimit = config.RateLimit
	}

	if timeoutSecs <= 0 {
		timeoutSecs = config.DefaultTimeout
	} else {
		config.DefaultTimeout = timeoutSecs
	}

	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}

	if quiet {
		config.QuietMode = true
	}

	if logLevel != "" {
		config.LogLevel = logLevel
	}

	if logFile != "" {
		config.LogFile = logFile
	}

	return config.ValidateConfig()
}

// validateArguments validates all CLI arguments and flags
func validateArguments(url string) error {
	if url == "" {
		return fmt.Errorf("URL is required")
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("URL must start with http:// or https://")
	}

	return nil
}

// validateProxyURL validates the proxy URL format
func validateProxyURL(proxyURL string) error {
	if !strings.HasPrefix(proxyURL, "http://") &&
		!strings.HasPrefix(proxyURL, "https://") &&
		!strings.HasPrefix(proxyURL, "socks5://") {
		return fmt.Errorf("unsupported proxy scheme, use http://, https://, or socks5://")
	}

	return nil
}

// validateOutputPath validates the output path's directory is writable
func validateOutputPath(path string) error {
	if path == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}

	testFile := filepath.Join(dir, ".boxfetch_write_test")
	if f, err := os.Create(testFile); err != nil {
		return fmt.Errorf("cannot write to output directory: %v", err)
	} else {
		f.Close()
		os.Remove(testFile)
	}

	return nil
}

// credentials assembles the session credentials from flags and environment
func credentials() *internal.Credentials {
	return &internal.Credentials{
		AccessToken: accessToken,
		Password:    password,
	}
}

// newHTTPClient builds an HTTP client from the effective configuration
func newHTTPClient() *utils.HTTPClient {
	return utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:  time.Duration(timeoutSecs) * time.Second,
		ProxyURL: proxyURL,
	})
}

// signalContext returns a context cancelled by SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			internal.LogInfo("Received signal %v, initiating graceful shutdown...", sig)
			if !quiet {
				fmt.Printf("\nReceived %v signal, shutting down gracefully...\n", sig)
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// displayName returns the resolved item name with a fallback
func displayName(info *internal.FileInfo) string {
	if info.Name != "" {
		return info.Name
	}
	return "(unknown)"
}

func init() {
	config = internal.DefaultConfig()

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tokenCmd)

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Custom output file path")
	rootCmd.Flags().StringVar(&accessToken, "token", "", "Box API access token (env: BOXFETCH_TOKEN)")
	rootCmd.Flags().StringVar(&password, "password", "", "Shared link password (env: BOXFETCH_PASSWORD)")
	rootCmd.Flags().StringVarP(&rateLimit, "limit-rate", "r", "", "Bandwidth limit (e.g., 5M for 5MB/s) (env: BOXFETCH_RATE_LIMIT)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bar output")
	rootCmd.Flags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: BOXFETCH_PROXY)")
	rootCmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "HTTP timeout in seconds (env: BOXFETCH_TIMEOUT)")

	infoCmd.Flags().StringVar(&accessToken, "token", "", "Box API access token (env: BOXFETCH_TOKEN)")
	infoCmd.Flags().StringVar(&password, "password", "", "Shared link password (env: BOXFETCH_PASSWORD)")
	infoCmd.Flags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: BOXFETCH_PROXY)")
	infoCmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "HTTP timeout in seconds (env: BOXFETCH_TIMEOUT)")

	tokenCmd.Flags().StringVar(&oauthClientID, "client-id", "", "OAuth app client id")
	tokenCmd.Flags().StringVar(&oauthClientSecret, "client-secret", "", "OAuth app client secret")
	tokenCmd.Flags().StringVar(&oauthCode, "code", "", "Authorization code from the redirect URL")

	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging with file and line information (env: BOXFETCH_DEBUG)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: BOXFETCH_LOG_LEVEL)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (env: BOXFETCH_LOG_FILE)")
}

func Execute() error {
	return rootCmd.Execute()
}

// executeDownloadWorkflow implements the complete download workflow
func executeDownloadWorkflow(url string, rateLimitBytes int64) error {
	ctx, cancel := signalContext()
	defer cancel()

	session, err := downloader.NewLinkSession(url, credentials(), newHTTPClient())
	if err != nil {
		internal.LogError("Link parsing failed: %v", err)
		return err
	}

	internal.LogDebug("Session %s created for link: kind=%s, shared_name=%s, id=%s",
		session.ID(), session.Link().Kind, session.Link().SharedName, session.Link().ItemID())

	internal.LogInfo("Resolving shared link: %s", url)
	if !quiet {
		fmt.Printf("Resolving shared link...\n")
	}

	info, err := session.FetchInfo(ctx)
	if err != nil {
		// Metadata is a courtesy; the download strategies may still succeed
		// where resolution did not.
		internal.LogWarn("Metadata resolution failed: %v", err)
		if internal.IsType(err, internal.ErrNotFound) {
			return err
		}
		info = &internal.FileInfo{Size: -1, Kind: internal.KindUnknown}
	}

	if info.Kind == internal.KindFolder {
		return internal.NewBoxError(0, "shared link points at a folder", internal.ErrUnrecognizedLink).
			WithSuggestion("Link a single file, e.g. https://app.box.com/s/<name>/file/<id>")
	}

	// Without -o or a resolved name the destination stays empty here; the
	// session then names the file from the download response itself.
	if outputPath == "" && info.Name != "" {
		outputPath = filepath.Base(info.Name)
	}
	if outputPath != "" {
		if err := validateOutputPath(outputPath); err != nil {
			validationErr := internal.NewValidationErrorWithValue("output_path", err.Error(), outputPath)
			internal.LogValidationError(validationErr)
			return fmt.Errorf("invalid output path: %v", err)
		}
		outputPath = utils.NewFileOperations().UniquePath(outputPath)
	}

	if !quiet {
		fmt.Printf("File: %s\n", displayName(info))
		if info.Size >= 0 {
			fmt.Printf("Size: %s\n", utils.FormatBytes(info.Size))
		}
		if outputPath != "" {
			fmt.Printf("Output path: %s\n", outputPath)
		}
		if rateLimitBytes > 0 {
			fmt.Printf("Rate limit: %s (%d bytes/sec)\n", rateLimit, rateLimitBytes)
		}
		if proxyURL != "" {
			fmt.Printf("Using proxy: %s\n", proxyURL)
		}
		fmt.Println()
	}

	internal.LogInfo("Starting download to %s", outputPath)

	tracker := utils.NewProgressTracker(info.Size, quiet)
	transferConfig := &internal.TransferConfig{
		DestPath:   outputPath,
		RateLimit:  rateLimitBytes,
		Quiet:      quiet,
		OnProgress: tracker.Callback(),
	}

	if err := session.Download(ctx, transferConfig); err != nil {
		internal.LogError("Download failed: %v", err)
		if internal.IsType(err, internal.ErrCancelled) {
			if !quiet {
				fmt.Printf("\nDownload cancelled; no partial file was kept.\n")
			}
			return err
		}
		return fmt.Errorf("download failed: %w", err)
	}

	summary := tracker.Finish()
	internal.LogInfo("Download completed: %s (%d bytes in %v)", transferConfig.DestPath, summary.TotalBytes, summary.TotalTime)
	if !quiet {
		fmt.Printf("File saved to: %s\n", transferConfig.DestPath)
	}
	return nil
}
