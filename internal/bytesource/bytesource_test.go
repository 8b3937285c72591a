package bytesource

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

func TestMemorySourceFetch(t *testing.T) {
	data := []byte("0123456789abcdef")
	src := NewMemorySource(data)

	got, err := src.Fetch(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "23456" {
		t.Errorf("got %q, want %q", got, "23456")
	}

	got, err = src.Fetch(context.Background(), 10, -1)
	if err != nil {
		t.Fatalf("Fetch to end: %v", err)
	}
	if string(got) != "abcdef" {
		t.Errorf("got %q, want %q", got, "abcdef")
	}
}

func TestMemorySourceShortRead(t *testing.T) {
	src := NewMemorySource([]byte("short"))
	_, err := src.Fetch(context.Background(), 0, 100)
	if !cogerr.Is(err, cogerr.ShortRead) {
		t.Fatalf("expected ShortRead, got %v", err)
	}
}

func TestFileSourceFetch(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bytesource")
	if err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte("x"), 100000)
	if _, err := f.Write(want); err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	got, err := src.Fetch(context.Background(), 0, 100000)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("mismatch, len(got)=%d want=%d", len(got), len(want))
	}
}

// countingSource counts how many Fetch calls reach it, to verify that
// ChunkedSource actually forwards to its inner source and CachedSource
// actually avoids refetching.
type countingSource struct {
	data  []byte
	calls int
}

func (c *countingSource) Fetch(ctx context.Context, offset, length int64) ([]byte, error) {
	c.calls++
	return (&MemorySource{data: c.data}).Fetch(ctx, offset, length)
}

func TestChunkedSourceAssemblesAcrossChunks(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 1000) // 10000 bytes
	inner := &countingSource{data: data}
	chunked := NewChunkedSource(inner, 1024)

	got, err := chunked.Fetch(context.Background(), 1500, 2500)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := data[1500:4000]
	if !bytes.Equal(got, want) {
		t.Errorf("mismatch: got %d bytes, want %d", len(got), len(want))
	}
	if inner.calls == 0 {
		t.Error("expected at least one inner call")
	}
}

func TestCachedSourceAvoidsRefetch(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 4096)
	inner := &countingSource{data: data}
	cached, err := NewCachedSource(inner, 1024, 1024*10)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := cached.Fetch(context.Background(), 0, 1024); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	firstCalls := inner.calls
	if _, err := cached.Fetch(context.Background(), 0, 1024); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if inner.calls != firstCalls {
		t.Errorf("expected cached second Fetch to not call inner, calls went from %d to %d", firstCalls, inner.calls)
	}
}

func TestOpenPipeline(t *testing.T) {
	data := bytes.Repeat([]byte("z"), 200000)
	raw := NewMemorySource(data)
	src, err := Open(raw, WithChunking(4096), WithCache(1<<20))
	if err != nil {
		t.Fatal(err)
	}
	got, err := src.Fetch(context.Background(), 100, 50000)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, data[100:50100]) {
		t.Error("pipeline round trip mismatch")
	}
}
