package utils

import (
	"fmt"
	"net/url"
	"strings"

	"boxfetch/internal"
)

// LinkParser extracts normalized identifiers from Box shared-link URLs.
//
// The supported shapes share no common template, so extraction walks the
// path segments instead of matching one fixed pattern:
//
//	https://app.box.com/s/<name>
//	https://app.box.com/s/<name>/file/<id>
//	https://app.box.com/file/<id>
//	https://app.box.com/folder/<id>
//	https://<subdomain>.box.com/...   (enterprise links)
type LinkParser struct{}

// NewLinkParser creates a new link parser
func NewLinkParser() *LinkParser {
	return &LinkParser{}
}

// Parse extracts a SharedLink from a raw Box URL. It fails with an
// UnrecognizedLink error when the host or path matches no known shape, and
// with a MissingID error when a /file/ or /folder/ segment is not followed
// by a decimal id.
func (p *LinkParser) Parse(rawURL string) (*internal.SharedLink, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, internal.NewUnrecognizedLinkError(rawURL).
			WithSuggestion("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, internal.NewUnrecognizedLinkError(rawURL)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, internal.NewUnrecognizedLinkError(rawURL).
			WithSuggestion("URL must use http or https protocol")
	}

	host := strings.ToLower(parsed.Hostname())
	subdomain, ok := subdomainFromHost(host)
	if !ok {
		return nil, internal.NewUnrecognizedLinkError(rawURL).
			WithSuggestion(fmt.Sprintf("host must be box.com or a box.com subdomain, got: %s", host))
	}

	link := &internal.SharedLink{
		RawURL:    rawURL,
		Subdomain: subdomain,
	}

	segments := splitPath(parsed.Path)
	for i := 0; i < len(segments); i++ {
		switch segments[i] {
		case "s":
			if i+1 < len(segments) {
				link.SharedName = segments[i+1]
				i++
			}
		case "file":
			id, err := idSegment(segments, i, "file", rawURL)
			if err != nil {
				return nil, err
			}
			link.FileID = id
			i++
		case "folder":
			id, err := idSegment(segments, i, "folder", rawURL)
			if err != nil {
				return nil, err
			}
			link.FolderID = id
			i++
		}
	}

	if link.SharedName == "" && link.FileID == "" && link.FolderID == "" {
		return nil, internal.NewUnrecognizedLinkError(rawURL)
	}

	// A file id always wins: a /s/<name>/file/<id> link names a single file
	// inside a shared folder.
	switch {
	case link.FileID != "":
		link.Kind = internal.KindFile
		link.FolderID = ""
	case link.FolderID != "":
		link.Kind = internal.KindFolder
	default:
		link.Kind = internal.KindUnknown
	}

	return link, nil
}

// subdomainFromHost extracts the enterprise subdomain from a box.com host.
// Hosts without a distinct enterprise subdomain map to "app".
func subdomainFromHost(host string) (string, bool) {
	if host == "box.com" {
		return "app", true
	}

	if !strings.HasSuffix(host, ".box.com") {
		return "", false
	}

	sub := strings.TrimSuffix(host, ".box.com")
	if sub == "" || strings.Contains(sub, ".") {
		return "", false
	}
	if sub == "www" {
		return "app", true
	}

	return sub, true
}

// splitPath returns the non-empty path segments
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// idSegment validates that the segment after /file/ or /folder/ is decimal
func idSegment(segments []string, i int, kind, rawURL string) (string, error) {
	if i+1 >= len(segments) || !isDecimal(segments[i+1]) {
		return "", internal.NewMissingIDError(rawURL, kind)
	}
	return segments[i+1], nil
}

// isDecimal reports whether s is a non-empty run of ASCII digits
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SharedPageURL returns the canonical landing-page URL for a shared link.
func SharedPageURL(link *internal.SharedLink) string {
	if link.SharedName != "" {
		return fmt.Sprintf("https://%s.box.com/s/%s", link.Subdomain, link.SharedName)
	}
	return link.RawURL
}
