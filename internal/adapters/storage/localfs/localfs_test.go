package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"
)

func TestPutAndOpen(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	content := "not a real mp4 but the bytes must survive"
	out, err := s.Put(ctx, ports.PutInput{
		Key:         "outputs/job_1/video.mp4",
		ContentType: "video/mp4",
		Reader:      strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if out.Key != "outputs/job_1/video.mp4" {
		t.Errorf("unexpected key: %q", out.Key)
	}
	if out.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), out.Size)
	}

	rc, ct, size, err := s.Open(ctx, "outputs/job_1/video.mp4")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Errorf("content mismatch: %q", got)
	}
	if size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), size)
	}
	if ct == "" {
		t.Error("expected a content type")
	}
}

func TestPutCreatesNestedDirectories(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	_, err := s.Put(context.Background(), ports.PutInput{
		Key:    "a/b/c/d.bin",
		Reader: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "b", "c", "d.bin")); err != nil {
		t.Errorf("object not on disk: %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{"empty key", ""},
		{"parent traversal", "../outside.txt"},
		{"nested traversal", "a/../../outside.txt"},
		{"root itself", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Put(ctx, ports.PutInput{Key: tt.key, Reader: strings.NewReader("x")}); err == nil {
				t.Error("expected Put to reject the key")
			}
			if _, _, _, err := s.Open(ctx, tt.key); err == nil {
				t.Error("expected Open to reject the key")
			}
			if err := s.Delete(ctx, tt.key); err == nil {
				t.Error("expected Delete to reject the key")
			}
		})
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "outside.txt")); !os.IsNotExist(err) {
		t.Error("traversal key escaped the root")
	}
}

func TestOpenMissingObject(t *testing.T) {
	s := New(t.TempDir())
	if _, _, _, err := s.Open(context.Background(), "missing/object.mp4"); err == nil {
		t.Error("expected an error for a missing object")
	}
}

func TestDelete(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	ctx := context.Background()

	if _, err := s.Put(ctx, ports.PutInput{Key: "x/y.bin", Reader: strings.NewReader("x")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "x/y.bin"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "x", "y.bin")); !os.IsNotExist(err) {
		t.Error("object still on disk after delete")
	}
}

func TestProvider(t *testing.T) {
	if got := New("/tmp").Provider(); got != "localfs" {
		t.Errorf("expected localfs, got %q", got)
	}
}
