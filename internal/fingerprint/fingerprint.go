package fingerprint

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"danmaku/internal/services"
)

const (
	// HashLimit caps how many leading bytes contribute to the digest.
	HashLimit = 16 * 1024 * 1024
	// ChunkSize is the read granularity between cancellation checks.
	ChunkSize = 1024 * 1024
)

// Identity describes what is known about a playing video.
type Identity struct {
	// Name is the base file name sent to the matcher.
	Name string
	// Size is nil when the size is unknown or not positive.
	Size *int64
	// Hash is empty for remote sources or unreadable files.
	Hash string
}

// HasHash reports whether a content digest was computed.
func (i Identity) HasHash() bool {
	return i.Hash != ""
}

// IsRemote reports whether location names a streamed or non-file source.
func IsRemote(location string) bool {
	lower := strings.ToLower(strings.TrimSpace(location))
	for _, prefix := range []string{"http", "rtmp", "udp"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	if idx := strings.Index(lower, "://"); idx > 0 && !strings.HasPrefix(lower, "file://") {
		return true
	}
	return false
}

// LocalPath strips a file:// scheme when present.
func LocalPath(location string) string {
	if strings.HasPrefix(strings.ToLower(location), "file://") {
		return location[len("file://"):]
	}
	return location
}

// BaseName returns the name a location is matched by.
func BaseName(location string) string {
	trimmed := strings.TrimRight(LocalPath(location), "/")
	if IsRemote(trimmed) {
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		return trimmed
	}
	return filepath.Base(trimmed)
}

// Compute builds the identity for location. Failures to stat or read a local
// file degrade to a name-only identity; only cancellation is reported as an error.
func Compute(ctx context.Context, location string) (Identity, error) {
	id := Identity{Name: BaseName(location)}
	if err := ctx.Err(); err != nil {
		return id, services.Wrap(services.ErrCancelled, "fingerprint", "compute", "run superseded", err)
	}
	if IsRemote(location) {
		return id, nil
	}
	path := LocalPath(location)
	id.Size = statSize(path)

	digest, err := hashFile(ctx, path)
	switch {
	case err == nil:
		id.Hash = digest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return id, services.Wrap(services.ErrCancelled, "fingerprint", "hash", "run superseded", err)
	}
	return id, nil
}

func statSize(path string) *int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	size := info.Size()
	if size <= 0 {
		return nil
	}
	return &size
}

// HashReader digests up to HashLimit bytes from r, checking ctx between chunks.
func HashReader(ctx context.Context, r io.Reader) (string, error) {
	sum := md5.New()
	buf := make([]byte, ChunkSize)
	remaining := int64(HashLimit)
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		want := int64(len(buf))
		if remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(r, buf[:want])
		if n > 0 {
			sum.Write(buf[:n])
			remaining -= int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read chunk: %w", err)
		}
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func hashFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return HashReader(ctx, file)
}
