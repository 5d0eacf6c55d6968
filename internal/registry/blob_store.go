package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// BlobStore persists the registry document in Azure Blob Storage, for
// deployments where instances share one configuration.
type BlobStore struct {
	client    *azblob.Client
	container string
	blob      string
}

// NewBlobStore creates a blob-backed store using shared key credentials.
func NewBlobStore(accountName, accountKey, container, blob string) (*BlobStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &BlobStore{client: client, container: container, blob: blob}, nil
}

func (s *BlobStore) Load(ctx context.Context) (*Document, error) {
	downloadResponse, err := s.client.DownloadStream(ctx, s.container, s.blob, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("download %s/%s: %w", s.container, s.blob, err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	data, err := io.ReadAll(retryReader)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.container, s.blob, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", s.container, s.blob, err)
	}
	return &doc, nil
}

func (s *BlobStore) Save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, s.blob, data, nil); err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.container, s.blob, err)
	}
	return nil
}
