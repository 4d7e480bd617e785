package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureConfig holds configuration for Azure Blob Storage.
type AzureConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	Container        string `mapstructure:"container"`
}

// AzureBlobStorage implements Storage for one Azure Blob Storage container.
type AzureBlobStorage struct {
	container *container.Client
	name      string
}

// NewAzureBlobStorage creates a client from the connection string scoped to cfg.Container.
func NewAzureBlobStorage(cfg AzureConfig) (*AzureBlobStorage, error) {
	if cfg.Container == "" {
		return nil, errors.New("azure container name is required")
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureBlobStorage{
		container: client.ServiceClient().NewContainerClient(cfg.Container),
		name:      cfg.Container,
	}, nil
}

// Write uploads content as a block blob, replacing any existing blob at key.
func (s *AzureBlobStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := &blockblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	if _, err := s.container.NewBlockBlobClient(key).UploadStream(ctx, r, opts); err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}

	return nil
}

// Read downloads the blob at key.
func (s *AzureBlobStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.container.NewBlobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", key, err)
	}

	return resp.Body, nil
}

// ObjectURL returns the blob URL without a SAS token.
func (s *AzureBlobStorage) ObjectURL(key string) string {
	return s.container.NewBlobClient(key).URL()
}

// Container returns the container name.
func (s *AzureBlobStorage) Container() string {
	return s.name
}
