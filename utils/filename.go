package utils

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vfaronov/httpheader"
)

// FilenameFromResponse extracts a usable filename from a download response,
// preferring the Content-Disposition header over the request URL. Returns
// fallback when neither yields anything safe.
func FilenameFromResponse(resp *http.Response, fallback string) string {
	if resp != nil {
		if _, name, err := httpheader.ContentDisposition(resp.Header); err == nil && name != "" {
			if clean := sanitizeFilename(name); clean != "" {
				return clean
			}
		}

		if resp.Request != nil && resp.Request.URL != nil {
			base := filepath.Base(resp.Request.URL.Path)
			if base != "" && base != "/" && base != "." && strings.Contains(base, ".") {
				if clean := sanitizeFilename(base); clean != "" {
					return clean
				}
			}
		}
	}

	return fallback
}

// sanitizeFilename strips path separators and control characters so a
// server-supplied name cannot escape the destination directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSpace(name)

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == '/' || r == '\\' || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := b.String()
	if cleaned == "." || cleaned == ".." {
		return ""
	}
	return cleaned
}
