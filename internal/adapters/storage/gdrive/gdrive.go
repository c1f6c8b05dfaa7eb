package gdrive

import (
	"context"
	"fmt"
	"io"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Store implements ports.ArchiveStore backed by Google Drive. Put
// uploads under the submitted key as the Drive file name and returns
// the Drive fileId as the stored key; Open and Delete take that fileId.
type Store struct {
	srv      *drive.Service
	folderID string
}

func New(srv *drive.Service, folderID string) *Store {
	return &Store{srv: srv, folderID: folderID}
}

func (s *Store) Provider() string { return "gdrive" }

func (s *Store) Put(ctx context.Context, in ports.PutInput) (ports.PutOutput, error) {
	if in.Key == "" {
		return ports.PutOutput{}, fmt.Errorf("object key is required")
	}

	file := &drive.File{Name: in.Key}
	if s.folderID != "" {
		file.Parents = []string{s.folderID}
	}

	call := s.srv.Files.Create(file)
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.PutOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	return ports.PutOutput{Key: created.Id, Size: in.Size}, nil
}

func (s *Store) Open(ctx context.Context, key string) (rc io.ReadCloser, contentType string, size int64, err error) {
	resp, err := s.srv.Files.Get(key).
		SupportsAllDrives(true).
		Download()
	if err != nil {
		return nil, "", 0, err
	}

	contentType = resp.Header.Get("Content-Type")
	size = resp.ContentLength
	return resp.Body, contentType, size, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.srv.Files.Delete(key).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}
