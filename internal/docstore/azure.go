package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/roach88/finflow/internal/parse"
)

// AzureConfig selects the blob container. ConnectionString wins over
// AccountURL; with only AccountURL the default Azure credential chain is
// used.
type AzureConfig struct {
	Container        string
	ConnectionString string
	AccountURL       string
}

// AzureUploader copies documents to a blob container and returns the blob
// URL. It satisfies engine.Uploader.
type AzureUploader struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// NewAzureUploader creates the client. No request is made until
// EnsureContainer or Upload.
func NewAzureUploader(cfg AzureConfig, logger *slog.Logger) (*AzureUploader, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("%w: container", ErrEmptyKey)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountURL != "":
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	default:
		return nil, fmt.Errorf("%w: connection string or account url", ErrEmptyKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &AzureUploader{
		client:    client,
		container: cfg.Container,
		logger:    logger.With("system", "docstore"),
	}, nil
}

// EnsureContainer creates the container if it does not exist.
func (a *AzureUploader) EnsureContainer(ctx context.Context) error {
	_, err := a.client.CreateContainer(ctx, a.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", a.container, err)
	}
	a.logger.InfoContext(ctx, "storage container ready", "container", a.container)
	return nil
}

// URL returns the address a document is uploaded to.
func (a *AzureUploader) URL(key string) string {
	return a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(key).URL()
}

// Upload streams the file at path to <doc id>/<base name>.
func (a *AzureUploader) Upload(ctx context.Context, docID, path string) (string, error) {
	key, err := Key(docID, path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	contentType := parse.MIMEType(path)
	_, err = a.client.UploadStream(ctx, a.container, key, f, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload blob %s: %w", key, err)
	}

	uri := a.URL(key)
	a.logger.DebugContext(ctx, "document uploaded", "doc_id", docID, "uri", uri)
	return uri, nil
}
