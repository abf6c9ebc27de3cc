package gdrive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Syncer mirrors local files into one Drive folder. A file uploaded twice
// under the same base name is updated in place.
type Syncer struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewSyncer(ctx context.Context, credPath, folderID string) (*Syncer, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	return newSyncer(ctx, folderID, option.WithCredentials(config))
}

func newSyncer(ctx context.Context, folderID string, opts ...option.ClientOption) (*Syncer, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Syncer{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// Upload sends localPath to Drive and returns the Drive file id.
func (s *Syncer) Upload(ctx context.Context, localPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(localPath)

	if fileID, ok := s.fileIDs[name]; ok {
		_, err = s.service.Files.Update(fileID, &drive.File{}).Media(f).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("drive update %s: %w", name, err)
		}
		return fileID, nil
	}

	doc, err := s.service.Files.Create(&drive.File{
		Name:     "fft-analyzer-" + name,
		MimeType: mimeType(name),
		Parents:  []string{s.folderID},
	}).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive create %s: %w", name, err)
	}

	s.fileIDs[name] = doc.Id
	return doc.Id, nil
}

func mimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "audio/wav"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
