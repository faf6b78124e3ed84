package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	w, errChan := p.StreamToFile(context.Background(), "exports/job-1.csv")
	if w == nil {
		t.Fatalf("StreamToFile failed: %v", <-errChan)
	}
	if _, err := io.WriteString(w, "id\n1\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := <-errChan; err != nil {
		t.Fatalf("storage reported error: %v", err)
	}

	r, err := p.OpenFile(context.Background(), "exports/job-1.csv")
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "id\n1\n" {
		t.Errorf("content = %q", content)
	}

	if url := p.GetDownloadURL("exports/job-1.csv"); !strings.HasPrefix(url, "file://") {
		t.Errorf("url = %q, want file:// prefix", url)
	}
}

func TestLocalProviderCreatesNestedDirectories(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	w, errChan := p.StreamToFile(context.Background(), "a/b/c/artifact.json")
	if w == nil {
		t.Fatalf("StreamToFile failed: %v", <-errChan)
	}
	w.Close()
	if err := <-errChan; err != nil {
		t.Errorf("storage reported error: %v", err)
	}
}
