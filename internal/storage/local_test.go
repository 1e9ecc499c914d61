package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorage_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "http://localhost:8080/")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	url, err := store.Save(context.Background(), strings.NewReader("image bytes"), "avatar.png", "image/png")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !strings.HasPrefix(url, "http://localhost:8080/media/") {
		t.Errorf("Save() url = %q, want /media prefix", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("Save() url = %q, want .png suffix", url)
	}

	key := url[strings.LastIndex(url, "/")+1:]
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "image bytes" {
		t.Errorf("saved content = %q, want %q", data, "image bytes")
	}
}

func TestLocalStorage_UniqueKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	first, err := store.Save(context.Background(), strings.NewReader("a"), "same.png", "image/png")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Save(context.Background(), strings.NewReader("b"), "same.png", "image/png")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if first == second {
		t.Errorf("two saves of the same filename produced the same URL %q", first)
	}
}

func TestLocalStorage_NoExtension(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	url, err := store.Save(context.Background(), strings.NewReader("raw"), "blob", "application/octet-stream")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if strings.HasSuffix(url, ".") {
		t.Errorf("Save() url = %q, trailing dot", url)
	}
}
