package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"boxfetch/internal"
	"boxfetch/utils"
)

// AttemptResult is the outcome of a single strategy attempt. Body, Length
// and Filename are set only when Tag is AttemptSuccess; Length < 0 means the
// response declared no content length.
type AttemptResult struct {
	Tag      internal.AttemptTag
	Body     io.ReadCloser
	Length   int64
	Filename string
	Reason   string
}

// Strategy is one way of turning a shared link into an open byte stream.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) AttemptResult
}

// failure builds a non-success result with a formatted reason
func failure(tag internal.AttemptTag, format string, args ...interface{}) AttemptResult {
	return AttemptResult{Tag: tag, Length: -1, Reason: fmt.Sprintf(format, args...)}
}

// directDownloadURL builds the unauthenticated shared-file download endpoint
func directDownloadURL(subdomain, sharedName, fileID string) string {
	return fmt.Sprintf("https://%s.box.com/index.php?rm=box_download_shared_file&shared_name=%s&file_id=f_%s",
		subdomain, sharedName, fileID)
}

// DirectSharedFileStrategy downloads through the shared-file endpoint that
// the Box web UI itself uses. It needs both a shared name and a file id, and
// no access token.
type DirectSharedFileStrategy struct {
	client *utils.HTTPClient
}

// NewDirectSharedFileStrategy creates the direct shared-file strategy
func NewDirectSharedFileStrategy(client *utils.HTTPClient) *DirectSharedFileStrategy {
	return &DirectSharedFileStrategy{client: client}
}

// Name returns the strategy's display name
func (s *DirectSharedFileStrategy) Name() string { return "direct shared file" }

// Attempt implements Strategy.
func (s *DirectSharedFileStrategy) Attempt(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) AttemptResult {
	if link.SharedName == "" || link.FileID == "" {
		return failure(internal.AttemptTransient, "link carries no shared name and file id pair")
	}

	url := directDownloadURL(link.Subdomain, link.SharedName, link.FileID)
	return fetchDirect(ctx, s.client, url, creds)
}

// ScrapedEmbeddedURLStrategy recovers the file id (or a ready download URL)
// from the shared link's landing page, then downloads through the same
// endpoint as the direct strategy. It covers /s/<name> links that name a
// single file without an explicit id.
type ScrapedEmbeddedURLStrategy struct {
	client *utils.HTTPClient
}

// NewScrapedEmbeddedURLStrategy creates the landing-page scraping strategy
func NewScrapedEmbeddedURLStrategy(client *utils.HTTPClient) *ScrapedEmbeddedURLStrategy {
	return &ScrapedEmbeddedURLStrategy{client: client}
}

// Name returns the strategy's display name
func (s *ScrapedEmbeddedURLStrategy) Name() string { return "scraped embedded url" }

// Content is served from boxcloud.com hosts once the web app resolves a
// shared file; landing pages sometimes embed such a URL directly.
var scrapeDownloadURLRe = regexp.MustCompile(`https://[a-z0-9.-]*boxcloud\.com/[^\s"'\\]+`)

// Attempt implements Strategy.
func (s *ScrapedEmbeddedURLStrategy) Attempt(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) AttemptResult {
	if link.SharedName == "" {
		return failure(internal.AttemptTransient, "link has no shared name to scrape")
	}

	pageURL := utils.SharedPageURL(link)
	resp, err := s.client.Get(ctx, pageURL, webHeaders(creds))
	if err != nil {
		return failure(internal.AttemptTransient, "landing page fetch failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return failure(internal.AttemptAuthRequired, "landing page returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return failure(internal.AttemptNotFound, "landing page returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return failure(internal.AttemptTransient, "landing page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return failure(internal.AttemptTransient, "landing page read failed: %v", err)
	}

	if m := scrapeDownloadURLRe.Find(body); m != nil {
		return fetchDirect(ctx, s.client, string(m), creds)
	}

	if m := scrapeTypedIDRe.FindSubmatch(body); m != nil && string(m[1]) == "f" {
		url := directDownloadURL(link.Subdomain, link.SharedName, string(m[2]))
		return fetchDirect(ctx, s.client, url, creds)
	}

	return failure(internal.AttemptTransient, "no download URL or file id found in landing page")
}

// AuthenticatedAPIStrategy downloads through the Box content API. It needs an
// access token; the shared link and its password travel in the BoxAPI header
// so the token does not need direct access to the file.
type AuthenticatedAPIStrategy struct {
	client  *utils.HTTPClient
	apiBase string
}

// NewAuthenticatedAPIStrategy creates the authenticated API strategy
func NewAuthenticatedAPIStrategy(client *utils.HTTPClient) *AuthenticatedAPIStrategy {
	return &AuthenticatedAPIStrategy{client: client, apiBase: apiBaseURL}
}

// Name returns the strategy's display name
func (s *AuthenticatedAPIStrategy) Name() string { return "authenticated api" }

// Attempt implements Strategy.
func (s *AuthenticatedAPIStrategy) Attempt(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) AttemptResult {
	if !creds.HasToken() {
		return failure(internal.AttemptAuthRequired, "no access token available")
	}

	fileID := link.FileID
	if fileID == "" {
		id, result := s.sharedItemFileID(ctx, link, creds)
		if id == "" {
			return result
		}
		fileID = id
	}

	url := fmt.Sprintf("%s/files/%s/content", s.apiBase, fileID)
	resp, err := s.client.GetStream(ctx, url, apiHeaders(link, creds))
	if err != nil {
		return failure(internal.AttemptTransient, "content request failed: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return AttemptResult{
			Tag:      internal.AttemptSuccess,
			Body:     resp.Body,
			Length:   resp.ContentLength,
			Filename: utils.FilenameFromResponse(resp, ""),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return failure(internal.AttemptAuthRequired, "content endpoint returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return failure(internal.AttemptNotFound, "content endpoint returned status %d", resp.StatusCode)
	default:
		resp.Body.Close()
		return failure(internal.AttemptTransient, "content endpoint returned status %d", resp.StatusCode)
	}
}

// sharedItemFileID resolves the file id behind a shared link via the
// shared_items endpoint. The second return value carries the failure result
// when the id could not be determined.
func (s *AuthenticatedAPIStrategy) sharedItemFileID(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (string, AttemptResult) {
	resp, err := s.client.Get(ctx, s.apiBase+"/shared_items", apiHeaders(link, creds))
	if err != nil {
		return "", failure(internal.AttemptTransient, "shared item lookup failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", failure(internal.AttemptAuthRequired, "shared item lookup returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return "", failure(internal.AttemptNotFound, "shared item lookup returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", failure(internal.AttemptTransient, "shared item lookup returned status %d", resp.StatusCode)
	}

	var parsed fileInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", failure(internal.AttemptTransient, "malformed shared item response: %v", err)
	}
	if parsed.Type != "file" || parsed.ID == "" {
		return "", failure(internal.AttemptNotFound, "shared link does not resolve to a file")
	}

	return parsed.ID, AttemptResult{}
}

// fetchDirect issues a streaming GET against a web download endpoint and
// classifies the response. An HTML body means the server sent a page (login,
// password prompt, error) instead of the file.
func fetchDirect(ctx context.Context, client *utils.HTTPClient, url string, creds *internal.Credentials) AttemptResult {
	resp, err := client.GetStream(ctx, url, webHeaders(creds))
	if err != nil {
		return failure(internal.AttemptTransient, "download request failed: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return failure(internal.AttemptAuthRequired, "download endpoint returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return failure(internal.AttemptNotFound, "download endpoint returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return failure(internal.AttemptTransient, "download endpoint returned status %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); strings.Contains(strings.ToLower(ct), "text/html") {
		resp.Body.Close()
		return failure(internal.AttemptAuthRequired, "download endpoint served an HTML page instead of file content")
	}

	return AttemptResult{
		Tag:      internal.AttemptSuccess,
		Body:     resp.Body,
		Length:   resp.ContentLength,
		Filename: utils.FilenameFromResponse(resp, ""),
	}
}

// StrategyChain tries strategies in a fixed order, stopping at the first
// success. There is no retry within the chain: each strategy gets exactly one
// attempt per Acquire call.
type StrategyChain struct {
	strategies []Strategy
}

// NewStrategyChain builds the default chain: direct shared file, then
// landing-page scrape, then the authenticated API.
func NewStrategyChain(client *utils.HTTPClient) *StrategyChain {
	return &StrategyChain{
		strategies: []Strategy{
			NewDirectSharedFileStrategy(client),
			NewScrapedEmbeddedURLStrategy(client),
			NewAuthenticatedAPIStrategy(client),
		},
	}
}

// NewStrategyChainWith builds a chain from explicit strategies, in order.
func NewStrategyChainWith(strategies ...Strategy) *StrategyChain {
	return &StrategyChain{strategies: strategies}
}

// Acquire implements internal.StreamAcquirer. When every strategy fails it
// returns an AllMethodsFailed error carrying the last strategy's reason.
func (c *StrategyChain) Acquire(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.AcquiredStream, error) {
	var lastReason string

	for _, strategy := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, internal.NewCancelledError("download")
		}

		internal.LogDebug("Trying strategy: %s", strategy.Name())
		result := strategy.Attempt(ctx, link, creds)

		if result.Tag == internal.AttemptSuccess {
			internal.LogInfo("Strategy succeeded: %s", strategy.Name())
			return &internal.AcquiredStream{
				Body:     result.Body,
				Length:   result.Length,
				Filename: result.Filename,
			}, nil
		}

		lastReason = fmt.Sprintf("%s: %s (%s)", strategy.Name(), result.Reason, result.Tag)
		internal.LogDebug("Strategy failed: %s", lastReason)
	}

	return nil, internal.NewBoxError(0, fmt.Sprintf("all download methods failed; last: %s", lastReason), internal.ErrAllMethodsFailed).
		WithURL(link.RawURL)
}
