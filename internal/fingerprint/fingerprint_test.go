package fingerprint

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"danmaku/internal/services"
)

func TestComputeLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Show.S01E01.mkv")
	data := bytes.Repeat([]byte("danmaku"), 1000)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	id, err := Compute(context.Background(), path)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	sum := md5.Sum(data)
	if id.Hash != hex.EncodeToString(sum[:]) {
		t.Fatalf("hash = %s, want %x", id.Hash, sum)
	}
	if id.Size == nil || *id.Size != int64(len(data)) {
		t.Fatalf("unexpected size %v", id.Size)
	}
	if id.Name != "Show.S01E01.mkv" {
		t.Fatalf("unexpected name %q", id.Name)
	}
}

func TestComputeEmptyFileHasNoSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mkv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	id, err := Compute(context.Background(), path)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if id.Size != nil {
		t.Fatalf("expected absent size for empty file, got %d", *id.Size)
	}
}

func TestComputeRemoteSkipsHashing(t *testing.T) {
	cases := map[string]string{
		"http://host/media/Show%20S01.mkv?token=1": "Show%20S01.mkv",
		"rtmp://host/live/stream":                  "stream",
		"udp://239.0.0.1:1234":                     "239.0.0.1:1234",
		"smb://nas/share/Movie.mkv":                "Movie.mkv",
	}
	for location, wantName := range cases {
		id, err := Compute(context.Background(), location)
		if err != nil {
			t.Fatalf("Compute(%q): %v", location, err)
		}
		if id.HasHash() || id.Size != nil {
			t.Fatalf("expected name-only identity for %q, got %+v", location, id)
		}
		if id.Name != wantName {
			t.Fatalf("name for %q = %q, want %q", location, id.Name, wantName)
		}
	}
}

func TestComputeMissingFileDegrades(t *testing.T) {
	id, err := Compute(context.Background(), filepath.Join(t.TempDir(), "gone.mkv"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if id.HasHash() || id.Size != nil {
		t.Fatalf("expected degraded identity, got %+v", id)
	}
}

func TestHashReaderStopsAtLimit(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, HashLimit+ChunkSize/2)
	got, err := HashReader(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	sum := md5.Sum(data[:HashLimit])
	if got != hex.EncodeToString(sum[:]) {
		t.Fatal("expected digest over the first 16 MiB only")
	}
}

type cancellingReader struct {
	cancel context.CancelFunc
	reads  int
}

func (r *cancellingReader) Read(p []byte) (int, error) {
	r.reads++
	r.cancel()
	for i := range p {
		p[i] = 1
	}
	return len(p), nil
}

func TestHashReaderObservesCancellationBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &cancellingReader{cancel: cancel}
	_, err := HashReader(ctx, io.Reader(reader))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reader.reads > 1 {
		t.Fatalf("expected at most one chunk read after cancel, got %d reads", reader.reads)
	}
}

func TestComputeCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, "/tmp/whatever.mkv")
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
