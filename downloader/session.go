package downloader

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"boxfetch/internal"
	"boxfetch/utils"
)

// LinkSession ties together the parser, resolver, strategy chain and
// transfer executor for one shared link. A session runs at most one
// operation at a time; a second concurrent call fails instead of queueing.
type LinkSession struct {
	id       string
	link     *internal.SharedLink
	creds    *internal.Credentials
	client   *utils.HTTPClient
	resolver internal.InfoResolver
	acquirer internal.StreamAcquirer
	executor internal.Transferrer
	inFlight atomic.Bool
}

// NewLinkSession parses rawURL and builds a session around the result.
func NewLinkSession(rawURL string, creds *internal.Credentials, client *utils.HTTPClient) (*LinkSession, error) {
	link, err := utils.NewLinkParser().Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if creds == nil {
		creds = &internal.Credentials{}
	}
	if client == nil {
		client = utils.NewHTTPClient()
	}

	return &LinkSession{
		id:       uuid.New().String(),
		link:     link,
		creds:    creds,
		client:   client,
		resolver: NewMetadataResolver(client),
		acquirer: NewStrategyChain(client),
		executor: NewTransferExecutor(),
	}, nil
}

// ID returns the session's unique identifier, used in log correlation.
func (s *LinkSession) ID() string {
	return s.id
}

// Link returns the parsed shared link.
func (s *LinkSession) Link() *internal.SharedLink {
	return s.link
}

// begin marks the session busy, failing when an operation is already running
func (s *LinkSession) begin(operation string) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return internal.NewBoxError(0, "another operation is already running on this session", internal.ErrTransient).
			WithSuggestion("Wait for the current operation to finish before starting " + operation)
	}
	return nil
}

// FetchInfo resolves the linked item's metadata.
func (s *LinkSession) FetchInfo(ctx context.Context) (*internal.FileInfo, error) {
	if err := s.begin("metadata resolution"); err != nil {
		return nil, err
	}
	defer s.inFlight.Store(false)

	internal.LogDebug("[%s] Resolving metadata for %s", s.id, s.link.RawURL)
	return s.resolver.Resolve(ctx, s.link, s.creds)
}

// Download acquires a byte stream for the link and streams it to disk per
// the transfer configuration. When config.DestPath is empty the destination
// is derived from the server-provided filename and written back into config
// so the caller can see where the file landed.
func (s *LinkSession) Download(ctx context.Context, config *internal.TransferConfig) error {
	if err := s.begin("download"); err != nil {
		return err
	}
	defer s.inFlight.Store(false)

	internal.LogDebug("[%s] Acquiring stream for %s", s.id, s.link.RawURL)
	stream, err := s.acquirer.Acquire(ctx, s.link, s.creds)
	if err != nil {
		return err
	}

	if config.DestPath == "" {
		config.DestPath = utils.NewFileOperations().UniquePath(s.defaultDestPath(stream.Filename))
	}

	internal.LogDebug("[%s] Streaming to %s (length=%d)", s.id, config.DestPath, stream.Length)
	return s.executor.Stream(ctx, stream.Body, stream.Length, config)
}

// defaultDestPath picks an output filename from the server-provided name or,
// failing that, the link identifiers.
func (s *LinkSession) defaultDestPath(serverName string) string {
	if serverName != "" {
		return serverName
	}
	if s.link.FileID != "" {
		return "box_file_" + s.link.FileID
	}
	if s.link.SharedName != "" {
		return "box_" + s.link.SharedName
	}
	return "box_download"
}
