package downloader

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"boxfetch/internal"
)

// blockingResolver holds Resolve open until released
type blockingResolver struct {
	started  chan struct{}
	release  chan struct{}
	startOne sync.Once
}

func newBlockingResolver() *blockingResolver {
	return &blockingResolver{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingResolver) Resolve(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.FileInfo, error) {
	r.startOne.Do(func() { close(r.started) })
	<-r.release
	return &internal.FileInfo{Name: "a.bin", Size: 1, Kind: internal.KindFile}, nil
}

func TestNewLinkSessionRejectsBadURL(t *testing.T) {
	_, err := NewLinkSession("https://example.com/whatever", nil, nil)
	if err == nil {
		t.Fatal("NewLinkSession accepted a non-Box URL")
	}
	if !internal.IsType(err, internal.ErrUnrecognizedLink) {
		t.Errorf("error = %v, want UnrecognizedLink", err)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	first, err := NewLinkSession("https://app.box.com/s/abc123", nil, nil)
	if err != nil {
		t.Fatalf("NewLinkSession failed: %v", err)
	}
	second, err := NewLinkSession("https://app.box.com/s/abc123", nil, nil)
	if err != nil {
		t.Fatalf("NewLinkSession failed: %v", err)
	}

	if first.ID() == "" || first.ID() == second.ID() {
		t.Errorf("session ids not unique: %q vs %q", first.ID(), second.ID())
	}
}

func TestSessionRejectsConcurrentOperations(t *testing.T) {
	session, err := NewLinkSession("https://app.box.com/s/abc123", nil, nil)
	if err != nil {
		t.Fatalf("NewLinkSession failed: %v", err)
	}

	resolver := newBlockingResolver()
	session.resolver = resolver

	done := make(chan error, 1)
	go func() {
		_, err := session.FetchInfo(context.Background())
		done <- err
	}()

	<-resolver.started

	// A second operation while the first is in flight must fail fast.
	_, err = session.FetchInfo(context.Background())
	if err == nil {
		t.Error("second concurrent FetchInfo succeeded")
	} else if !strings.Contains(err.Error(), "already running") {
		t.Errorf("second FetchInfo error = %v, want in-flight rejection", err)
	}

	close(resolver.release)
	if err := <-done; err != nil {
		t.Errorf("first FetchInfo failed: %v", err)
	}

	// With the first operation finished the session is usable again.
	if _, err := session.FetchInfo(context.Background()); err != nil {
		t.Errorf("FetchInfo after release failed: %v", err)
	}
}

// fixedAcquirer hands out a canned stream
type fixedAcquirer struct {
	content  string
	filename string
}

func (a *fixedAcquirer) Acquire(ctx context.Context, link *internal.SharedLink, creds *internal.Credentials) (*internal.AcquiredStream, error) {
	return &internal.AcquiredStream{
		Body:     io.NopCloser(strings.NewReader(a.content)),
		Length:   int64(len(a.content)),
		Filename: a.filename,
	}, nil
}

func TestSessionDownloadStreamsToDisk(t *testing.T) {
	session, err := NewLinkSession("https://app.box.com/s/abc123", nil, nil)
	if err != nil {
		t.Fatalf("NewLinkSession failed: %v", err)
	}
	session.acquirer = &fixedAcquirer{content: "file-content"}

	dest := t.TempDir() + "/out.bin"
	config := &internal.TransferConfig{DestPath: dest}

	if err := session.Download(context.Background(), config); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading destination failed: %v", err)
	}
	if string(data) != "file-content" {
		t.Errorf("destination = %q, want %q", data, "file-content")
	}
}

func TestSessionDownloadDerivesDestFromServerFilename(t *testing.T) {
	session, err := NewLinkSession("https://app.box.com/s/abc123", nil, nil)
	if err != nil {
		t.Fatalf("NewLinkSession failed: %v", err)
	}
	session.acquirer = &fixedAcquirer{content: "named", filename: "served.pdf"}

	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	defer os.Chdir(cwd)

	config := &internal.TransferConfig{}
	if err := session.Download(context.Background(), config); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	if config.DestPath != "served.pdf" {
		t.Errorf("DestPath = %q, want the server-provided name", config.DestPath)
	}
	if _, err := os.Stat(config.DestPath); err != nil {
		t.Errorf("destination file missing: %v", err)
	}
}
