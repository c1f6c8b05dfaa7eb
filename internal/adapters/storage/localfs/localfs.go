package localfs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"
)

// Store implements ports.ArchiveStore on a local directory. Object keys
// are slash-separated paths under the configured root.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Provider() string { return "localfs" }

// resolve maps an object key onto the root. Keys that would land on or
// outside the root itself are rejected.
func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	rootPrefix := filepath.Clean(s.root) + string(filepath.Separator)
	if !strings.HasPrefix(p, rootPrefix) {
		return "", fmt.Errorf("object key escapes storage root: %s", key)
	}
	return p, nil
}

func (s *Store) Put(ctx context.Context, in ports.PutInput) (ports.PutOutput, error) {
	dst, err := s.resolve(in.Key)
	if err != nil {
		return ports.PutOutput{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutOutput{}, err
	}

	f, err := os.Create(dst)
	if err != nil {
		return ports.PutOutput{}, err
	}

	n, err := io.Copy(f, in.Reader)
	if err != nil {
		f.Close()
		return ports.PutOutput{}, err
	}
	if err := f.Close(); err != nil {
		return ports.PutOutput{}, err
	}

	return ports.PutOutput{Key: in.Key, Size: n}, nil
}

func (s *Store) Open(ctx context.Context, key string) (rc io.ReadCloser, contentType string, size int64, err error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, "", 0, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, "", 0, err
	}

	if st, statErr := f.Stat(); statErr == nil {
		size = st.Size()
	}

	// Prefer extension-based type. If empty, sniff first bytes.
	contentType = mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		_, _ = f.Seek(0, 0)
		contentType = http.DetectContentType(buf[:n])
	}

	return f, contentType, size, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	return os.Remove(p)
}
