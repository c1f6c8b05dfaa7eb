package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/adapters/storage/gdrive"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/adapters/storage/localfs"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewStore builds the archive store selected by STORAGE_PROVIDER.
// Defaults to localfs.
func NewStore() (Store, error) {
	provider := strings.TrimSpace(os.Getenv("STORAGE_PROVIDER"))
	if provider == "" {
		provider = "localfs"
	}

	switch provider {
	case "localfs":
		root := strings.TrimSpace(os.Getenv("STORAGE_LOCAL_ROOT"))
		if root == "" {
			root = "/data"
		}
		return localfs.New(root), nil

	case "gdrive":
		return newGDriveStore()

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

func newGDriveStore() (Store, error) {
	ctx := context.Background()

	clientID, err := requireEnv("GDRIVE_CLIENT_ID")
	if err != nil {
		return nil, err
	}
	clientSecret, err := requireEnv("GDRIVE_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}
	refreshToken, err := requireEnv("GDRIVE_REFRESH_TOKEN")
	if err != nil {
		return nil, err
	}
	folderID := strings.TrimSpace(os.Getenv("GDRIVE_FOLDER_ID"))

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	// The refresh token comes from a one-shot run of cmd/gdrive-auth;
	// the oauth2 client mints access tokens from it as needed.
	tok := &oauth2.Token{RefreshToken: refreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.New(srv, folderID), nil
}

func requireEnv(k string) (string, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return "", fmt.Errorf("missing required env: %s", k)
	}
	return v, nil
}
