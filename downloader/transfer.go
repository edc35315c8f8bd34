package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"boxfetch/internal"
	"boxfetch/utils"
)

// partSuffix marks an in-progress download on disk. The finished file only
// appears at its final name after a complete, successful transfer.
const partSuffix = ".part"

// TransferExecutor streams a response body to disk in fixed-size chunks,
// reporting progress after every chunk and honoring context cancellation
// between chunks. A cancelled or failed transfer leaves no partial file
// behind.
type TransferExecutor struct {
	fileOps   *utils.FileOperations
	chunkSize int
	limiter   internal.RateLimiter
}

// NewTransferExecutor creates a transfer executor with the default chunk size
func NewTransferExecutor() *TransferExecutor {
	return &TransferExecutor{
		fileOps:   utils.NewFileOperations(),
		chunkSize: internal.DefaultChunkSize,
	}
}

// SetRateLimiter installs a bandwidth limiter applied per chunk.
func (t *TransferExecutor) SetRateLimiter(limiter internal.RateLimiter) {
	t.limiter = limiter
}

// Stream implements internal.Transferrer. It writes body to
// config.DestPath + ".part" and renames the part file into place only after
// the stream ends cleanly.
func (t *TransferExecutor) Stream(ctx context.Context, body io.ReadCloser, totalBytes int64, config *internal.TransferConfig) error {
	defer body.Close()

	if config == nil || config.DestPath == "" {
		return internal.NewBoxError(0, "no destination path configured", internal.ErrIOFailure)
	}

	if err := t.fileOps.EnsureDir(config.DestPath); err != nil {
		return internal.NewBoxError(0, fmt.Sprintf("cannot create output directory: %v", err), internal.ErrIOFailure)
	}

	partPath := config.DestPath + partSuffix
	file, err := os.Create(partPath)
	if err != nil {
		return internal.NewBoxError(0, fmt.Sprintf("cannot create output file: %v", err), internal.ErrIOFailure)
	}

	limiter := t.limiter
	if limiter == nil && config.RateLimit > 0 {
		limiter = utils.NewTokenBucketLimiter(config.RateLimit)
	}

	var written int64
	buf := make([]byte, t.chunkSize)

	report := func(cancelled bool) {
		if config.OnProgress != nil {
			config.OnProgress(internal.TransferState{
				BytesDownloaded: written,
				TotalBytes:      totalBytes,
				Cancelled:       cancelled,
			})
		}
	}

	abort := func() {
		file.Close()
		if rmErr := t.fileOps.RemovePartial(partPath); rmErr != nil {
			internal.LogWarn("Failed to remove partial file %s: %v", partPath, rmErr)
		}
	}

	for {
		// Cancellation is checked between chunks so a cancelled transfer
		// stops within one chunk's worth of work.
		select {
		case <-ctx.Done():
			abort()
			report(true)
			return internal.NewCancelledError("transfer")
		default:
		}

		if limiter != nil {
			if err := limiter.Wait(ctx, t.chunkSize); err != nil {
				abort()
				report(true)
				return internal.NewCancelledError("transfer")
			}
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				abort()
				return internal.NewBoxError(0, fmt.Sprintf("write failed after %d bytes: %v", written, writeErr), internal.ErrIOFailure)
			}
			written += int64(n)
			report(false)
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			abort()
			if errors.Is(readErr, context.Canceled) || ctx.Err() != nil {
				report(true)
				return internal.NewCancelledError("transfer")
			}
			return internal.NewBoxError(0, fmt.Sprintf("read failed after %d bytes: %v", written, readErr), internal.ErrIOFailure)
		}
	}

	if err := file.Close(); err != nil {
		if rmErr := t.fileOps.RemovePartial(partPath); rmErr != nil {
			internal.LogWarn("Failed to remove partial file %s: %v", partPath, rmErr)
		}
		return internal.NewBoxError(0, fmt.Sprintf("close failed: %v", err), internal.ErrIOFailure)
	}

	if totalBytes >= 0 && written != totalBytes {
		if rmErr := t.fileOps.RemovePartial(partPath); rmErr != nil {
			internal.LogWarn("Failed to remove partial file %s: %v", partPath, rmErr)
		}
		return internal.NewBoxError(0, fmt.Sprintf("stream ended after %d of %d bytes", written, totalBytes), internal.ErrIOFailure)
	}

	if err := t.fileOps.AtomicRename(partPath, config.DestPath); err != nil {
		if rmErr := t.fileOps.RemovePartial(partPath); rmErr != nil {
			internal.LogWarn("Failed to remove partial file %s: %v", partPath, rmErr)
		}
		return internal.NewBoxError(0, fmt.Sprintf("rename failed: %v", err), internal.ErrIOFailure)
	}

	internal.LogInfo("Transfer complete: %s (%d bytes)", config.DestPath, written)
	return nil
}
