package internal

// LinkKind identifies what a shared link points at.
type LinkKind int

const (
	KindUnknown LinkKind = iota
	KindFile
	KindFolder
)

// String returns the string representation of the link kind
func (k LinkKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// SharedLink contains the normalized identifiers extracted from a Box URL.
// It is created by the link parser and not mutated afterwards. When Kind is
// not KindUnknown, exactly one of FileID/FolderID is set.
type SharedLink struct {
	RawURL     string
	Subdomain  string
	SharedName string
	FileID     string
	FolderID   string
	Kind       LinkKind
}

// ItemID returns whichever of FileID/FolderID is populated.
func (l *SharedLink) ItemID() string {
	if l.FileID != "" {
		return l.FileID
	}
	return l.FolderID
}

// Credentials carries the optional access token and shared-link password for
// a download session. The caller owns these; nothing in this package stores
// them beyond the duration of a call.
type Credentials struct {
	AccessToken string
	Password    string
}

// HasToken reports whether an access token is available.
func (c *Credentials) HasToken() bool {
	return c != nil && c.AccessToken != ""
}

// FileInfo is the metadata snapshot shown to the caller before a download.
// Size < 0 means the size is not known.
type FileInfo struct {
	Name string
	Size int64
	Kind LinkKind
}

// AttemptTag classifies the outcome of a single download strategy attempt.
type AttemptTag int

const (
	AttemptSuccess AttemptTag = iota
	AttemptAuthRequired
	AttemptNotFound
	AttemptTransient
)

// String returns the string representation of the attempt tag
func (t AttemptTag) String() string {
	switch t {
	case AttemptSuccess:
		return "Success"
	case AttemptAuthRequired:
		return "AuthRequired"
	case AttemptNotFound:
		return "NotFound"
	case AttemptTransient:
		return "TransientFailure"
	default:
		return "Unknown"
	}
}

// TransferState is the progress snapshot handed to the caller's progress
// callback. TotalBytes < 0 means the response declared no content length and
// the caller should render an indeterminate indicator.
type TransferState struct {
	BytesDownloaded int64
	TotalBytes      int64
	Cancelled       bool
}

// ProgressFunc receives a TransferState snapshot after every written chunk.
type ProgressFunc func(TransferState)

// OAuthToken is the result of a successful authorization-code exchange.
// The caller is responsible for using or storing it; nothing here does.
type OAuthToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   uint32 `json:"expires_in"`
}

// TransferConfig contains configuration for a single transfer operation
type TransferConfig struct {
	DestPath   string
	RateLimit  int64 // bytes per second, 0 disables limiting
	Quiet      bool
	OnProgress ProgressFunc
}
