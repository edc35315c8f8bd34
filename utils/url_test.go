package utils

import (
	"testing"

	"boxfetch/internal"
)

func TestParseSupportedShapes(t *testing.T) {
	parser := NewLinkParser()

	tests := []struct {
		name           string
		url            string
		wantSubdomain  string
		wantSharedName string
		wantFileID     string
		wantFolderID   string
		wantKind       internal.LinkKind
	}{
		{
			name:           "bare shared link",
			url:            "https://app.box.com/s/abc123xyz",
			wantSubdomain:  "app",
			wantSharedName: "abc123xyz",
			wantKind:       internal.KindUnknown,
		},
		{
			name:           "shared link with file segment",
			url:            "https://app.box.com/s/abc123xyz/file/123456",
			wantSubdomain:  "app",
			wantSharedName: "abc123xyz",
			wantFileID:     "123456",
			wantKind:       internal.KindFile,
		},
		{
			name:          "direct file link",
			url:           "https://app.box.com/file/123456",
			wantSubdomain: "app",
			wantFileID:    "123456",
			wantKind:      internal.KindFile,
		},
		{
			name:          "direct folder link",
			url:           "https://app.box.com/folder/999",
			wantSubdomain: "app",
			wantFolderID:  "999",
			wantKind:      internal.KindFolder,
		},
		{
			name:          "enterprise subdomain folder",
			url:           "https://company.box.com/folder/999",
			wantSubdomain: "company",
			wantFolderID:  "999",
			wantKind:      internal.KindFolder,
		},
		{
			name:           "enterprise subdomain shared link",
			url:            "https://company.box.com/s/abc123xyz",
			wantSubdomain:  "company",
			wantSharedName: "abc123xyz",
			wantKind:       internal.KindUnknown,
		},
		{
			name:           "www maps to app",
			url:            "https://www.box.com/s/abc123xyz",
			wantSubdomain:  "app",
			wantSharedName: "abc123xyz",
			wantKind:       internal.KindUnknown,
		},
		{
			name:          "bare domain file link",
			url:           "https://box.com/file/42",
			wantSubdomain: "app",
			wantFileID:    "42",
			wantKind:      internal.KindFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := parser.Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.url, err)
			}

			if link.Subdomain != tt.wantSubdomain {
				t.Errorf("Subdomain = %q, want %q", link.Subdomain, tt.wantSubdomain)
			}
			if link.SharedName != tt.wantSharedName {
				t.Errorf("SharedName = %q, want %q", link.SharedName, tt.wantSharedName)
			}
			if link.FileID != tt.wantFileID {
				t.Errorf("FileID = %q, want %q", link.FileID, tt.wantFileID)
			}
			if link.FolderID != tt.wantFolderID {
				t.Errorf("FolderID = %q, want %q", link.FolderID, tt.wantFolderID)
			}
			if link.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", link.Kind, tt.wantKind)
			}
			if link.RawURL != tt.url {
				t.Errorf("RawURL = %q, want %q", link.RawURL, tt.url)
			}
		})
	}
}

func TestParseFileIDWinsOverFolder(t *testing.T) {
	parser := NewLinkParser()

	link, err := parser.Parse("https://app.box.com/s/shared/folder/111/file/222")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if link.Kind != internal.KindFile {
		t.Errorf("Kind = %v, want KindFile", link.Kind)
	}
	if link.FileID != "222" {
		t.Errorf("FileID = %q, want %q", link.FileID, "222")
	}
	if link.FolderID != "" {
		t.Errorf("FolderID = %q, want empty", link.FolderID)
	}
	if link.ItemID() != "222" {
		t.Errorf("ItemID() = %q, want %q", link.ItemID(), "222")
	}
}

func TestParseUnrecognizedLinks(t *testing.T) {
	parser := NewLinkParser()

	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"whitespace url", "   "},
		{"wrong host", "https://example.com/s/abc123"},
		{"suffix lookalike host", "https://notbox.com/s/abc123"},
		{"nested subdomain", "https://a.b.box.com/s/abc123"},
		{"ftp scheme", "ftp://app.box.com/s/abc123"},
		{"no identifiers in path", "https://app.box.com/about"},
		{"empty path", "https://app.box.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.url)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.url)
			}
			if !internal.IsType(err, internal.ErrUnrecognizedLink) {
				t.Errorf("Parse(%q) error type = %v, want UnrecognizedLink", tt.url, err)
			}
		})
	}
}

func TestParseMissingID(t *testing.T) {
	parser := NewLinkParser()

	tests := []struct {
		name string
		url  string
	}{
		{"file segment without id", "https://app.box.com/file/"},
		{"file segment with non-numeric id", "https://app.box.com/file/abc"},
		{"folder segment without id", "https://app.box.com/folder"},
		{"folder segment with mixed id", "https://app.box.com/folder/12a"},
		{"shared link file without id", "https://app.box.com/s/abc123/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.url)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.url)
			}
			if !internal.IsType(err, internal.ErrMissingID) {
				t.Errorf("Parse(%q) error type = %v, want MissingID", tt.url, err)
			}
		})
	}
}

func TestSharedPageURL(t *testing.T) {
	tests := []struct {
		name string
		link *internal.SharedLink
		want string
	}{
		{
			name: "shared name builds canonical page",
			link: &internal.SharedLink{Subdomain: "app", SharedName: "abc123"},
			want: "https://app.box.com/s/abc123",
		},
		{
			name: "enterprise subdomain preserved",
			link: &internal.SharedLink{Subdomain: "company", SharedName: "abc123"},
			want: "https://company.box.com/s/abc123",
		},
		{
			name: "no shared name falls back to raw url",
			link: &internal.SharedLink{RawURL: "https://app.box.com/file/42", Subdomain: "app", FileID: "42"},
			want: "https://app.box.com/file/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SharedPageURL(tt.link); got != tt.want {
				t.Errorf("SharedPageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
