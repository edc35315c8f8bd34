package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"boxfetch/internal"
	"boxfetch/utils"
)

const (
	apiBaseURL      = "https://api.box.com/2.0"
	maxScrapeBytes  = 4 * 1024 * 1024
	passwordCookie  = "box_shared_link_password"
	boxAPIHeaderKey = "BoxAPI"
)

// Landing pages embed the item metadata as JSON inside inline scripts. These
// pick out the fields we need without parsing the whole document.
var (
	scrapeNameRe    = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	scrapeTypedIDRe = regexp.MustCompile(`"typedID"\s*:\s*"([fd])_(\d+)"`)
	scrapeSizeRe    = regexp.MustCompile(`"size"\s*:\s*(\d+)`)
)

// MetadataResolver resolves a shared item's name, size and kind. With an
// access token it asks the Box API; without one it scrapes the shared link's
// landing page.
type MetadataResolver struct {
	client  *utils.HTTPClient
	apiBase string
}

// NewMetadataResolver creates a resolver backed by the given HTTP client.
func NewMetadataResolver(client *utils.HTTPClient) *MetadataResolver {
	return &MetadataResolver{client: client, apiBase: apiBaseURL}
}

// fileInfoResponse is the subset of the Box file object we read
type fileInfoResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Size *int64 `json:"size"`
}

// Resolve implements internal.InfoResolver.
func (r *MetadataResolver) Resolve(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.FileInfo, error) {
	if creds.HasToken() {
		if link.FileID != "" {
			return r.resolveFile(ctx, link, creds)
		}
		return r.resolveSharedItem(ctx, link, creds)
	}
	return r.resolveFromPage(ctx, link, creds)
}

// resolveFile fetches metadata for a known file id from the API
func (r *MetadataResolver) resolveFile(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.FileInfo, error) {
	url := fmt.Sprintf("%s/files/%s?fields=name,size", r.apiBase, link.FileID)

	resp, err := r.client.Get(ctx, url, apiHeaders(link, creds))
	if err != nil {
		return nil, internal.NewNetworkFailureError("metadata lookup", err)
	}
	defer resp.Body.Close()

	if err := checkAPIStatus(resp, url); err != nil {
		return nil, err
	}

	return decodeFileInfo(resp.Body, url)
}

// resolveSharedItem asks the shared_items endpoint to identify the item a
// shared link points at. This is the only API route when the link carries a
// shared name but no explicit file id.
func (r *MetadataResolver) resolveSharedItem(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.FileInfo, error) {
	url := r.apiBase + "/shared_items"

	resp, err := r.client.Get(ctx, url, apiHeaders(link, creds))
	if err != nil {
		return nil, internal.NewNetworkFailureError("shared item lookup", err)
	}
	defer resp.Body.Close()

	if err := checkAPIStatus(resp, url); err != nil {
		return nil, err
	}

	return decodeFileInfo(resp.Body, url)
}

// resolveFromPage scrapes the shared link's landing page for the embedded
// item metadata.
func (r *MetadataResolver) resolveFromPage(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.FileInfo, error) {
	pageURL := utils.SharedPageURL(link)

	resp, err := r.client.Get(ctx, pageURL, webHeaders(creds))
	if err != nil {
		return nil, internal.NewNetworkFailureError("landing page fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, internal.NewAuthRequiredError(resp.StatusCode, "shared link requires authentication").WithURL(pageURL)
	case resp.StatusCode == http.StatusNotFound:
		return nil, internal.NewNotFoundError(pageURL)
	case resp.StatusCode != http.StatusOK:
		return nil, internal.NewBoxError(resp.StatusCode, "unexpected status from shared page", internal.ErrUnparseable).WithURL(pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return nil, internal.NewNetworkFailureError("landing page read", err)
	}

	info, ok := scrapeItemInfo(body)
	if !ok {
		return nil, internal.NewBoxError(resp.StatusCode, "no item metadata found in shared page", internal.ErrUnparseable).
			WithURL(pageURL).
			WithSuggestion("The link may require a password (--password) or an access token (--token)")
	}

	internal.LogDebug("Scraped metadata from shared page: name=%s size=%d kind=%s", info.Name, info.Size, info.Kind)
	return info, nil
}

// scrapeItemInfo extracts name, typed id and size from landing page HTML.
// At least one of name/typed-id must be present for the page to count as
// parseable.
func scrapeItemInfo(body []byte) (*internal.FileInfo, bool) {
	info := &internal.FileInfo{Size: -1, Kind: internal.KindUnknown}
	found := false

	if m := scrapeNameRe.FindSubmatch(body); m != nil {
		info.Name = string(m[1])
		found = true
	}

	if m := scrapeTypedIDRe.FindSubmatch(body); m != nil {
		if string(m[1]) == "f" {
			info.Kind = internal.KindFile
		} else {
			info.Kind = internal.KindFolder
		}
		found = true
	}

	if m := scrapeSizeRe.FindSubmatch(body); m != nil {
		if size, err := strconv.ParseInt(string(m[1]), 10, 64); err == nil {
			info.Size = size
		}
	}

	return info, found
}

// decodeFileInfo parses a Box API file object into a FileInfo
func decodeFileInfo(body io.Reader, url string) (*internal.FileInfo, error) {
	var parsed fileInfoResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, internal.NewBoxError(0, fmt.Sprintf("malformed API response: %v", err), internal.ErrInvalidResponse).WithURL(url)
	}

	info := &internal.FileInfo{
		Name: parsed.Name,
		Size: -1,
		Kind: internal.KindFile,
	}
	if parsed.Size != nil {
		info.Size = *parsed.Size
	}
	if parsed.Type == "folder" {
		info.Kind = internal.KindFolder
	}

	return info, nil
}

// checkAPIStatus maps non-success API statuses onto typed errors
func checkAPIStatus(resp *http.Response, url string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return internal.NewAuthRequiredError(resp.StatusCode, "access token rejected or insufficient").WithURL(url)
	case resp.StatusCode == http.StatusNotFound:
		return internal.NewNotFoundError(url)
	default:
		return internal.NewBoxError(resp.StatusCode, "unexpected API status", internal.ErrInvalidResponse).WithURL(url)
	}
}

// apiHeaders builds the headers for authenticated Box API calls. The BoxAPI
// header scopes the token to the shared link and carries its password.
func apiHeaders(link *internal.SharedLink, creds *internal.Credentials) map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + creds.AccessToken,
	}

	boxAPI := "shared_link=" + link.RawURL
	if creds != nil && creds.Password != "" {
		boxAPI += "&shared_link_password=" + creds.Password
	}
	headers[boxAPIHeaderKey] = boxAPI

	return headers
}

// webHeaders builds the headers for shared-link web endpoints. A link
// password travels as a cookie there, not as an API header.
func webHeaders(creds *internal.Credentials) map[string]string {
	if creds == nil || creds.Password == "" {
		return nil
	}
	return map[string]string{
		"Cookie": passwordCookie + "=" + creds.Password,
	}
}
