package internal

import (
	"context"
	"io"
)

// InfoResolver determines a shared item's name, size and kind without
// downloading its content.
type InfoResolver interface {
	Resolve(ctx context.Context, link *SharedLink, creds *Credentials) (*FileInfo, error)
}

// AcquiredStream is an open download stream together with what the server
// said about it. Length < 0 means no declared content length; Filename is
// empty when the server named nothing.
type AcquiredStream struct {
	Body     io.ReadCloser
	Length   int64
	Filename string
}

// StreamAcquirer turns a shared link into an open byte stream by trying
// retrieval strategies in order until one succeeds.
type StreamAcquirer interface {
	Acquire(ctx context.Context, link *SharedLink, creds *Credentials) (*AcquiredStream, error)
}

// Transferrer streams an acquired response body to disk in bounded chunks.
type Transferrer interface {
	Stream(ctx context.Context, body io.ReadCloser, totalBytes int64, config *TransferConfig) error
}

// TokenExchanger exchanges an OAuth authorization code for an access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, clientID, clientSecret, code string) (*OAuthToken, error)
}

// RateLimiter controls bandwidth usage
type RateLimiter interface {
	Wait(ctx context.Context, n int) error
	SetRate(bytesPerSecond int64)
}
