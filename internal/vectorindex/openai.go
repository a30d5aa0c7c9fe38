package vectorindex

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIIndex backs RemoteIndex with an OpenAI vector store. Files are
// uploaded through the files API with the assistants purpose, then attached
// to the configured vector store.
type OpenAIIndex struct {
	client        *openai.Client
	vectorStoreID string
}

// NewOpenAIIndex creates an index client for one vector store.
func NewOpenAIIndex(apiKey, vectorStoreID string) (*OpenAIIndex, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if vectorStoreID == "" {
		return nil, fmt.Errorf("vector store id is required")
	}
	return &OpenAIIndex{
		client:        openai.NewClient(apiKey),
		vectorStoreID: vectorStoreID,
	}, nil
}

func (o *OpenAIIndex) CreateFile(ctx context.Context, name string, content []byte) (string, error) {
	file, err := o.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   content,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("uploading file %q: %w", name, err)
	}
	return file.ID, nil
}

func (o *OpenAIIndex) AttachFile(ctx context.Context, fileID string) error {
	_, err := o.client.CreateVectorStoreFile(ctx, o.vectorStoreID, openai.VectorStoreFileRequest{
		FileID: fileID,
	})
	if err != nil {
		return fmt.Errorf("attaching file %s: %w", fileID, err)
	}
	return nil
}

func (o *OpenAIIndex) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	limit := 100
	var files []RemoteFile
	var after *string
	for {
		page, err := o.client.ListVectorStoreFiles(ctx, o.vectorStoreID, openai.Pagination{
			Limit: &limit,
			After: after,
		})
		if err != nil {
			return nil, fmt.Errorf("listing vector store files: %w", err)
		}
		for _, f := range page.VectorStoreFiles {
			files = append(files, RemoteFile{ID: f.ID})
		}
		if len(page.VectorStoreFiles) < limit {
			return files, nil
		}
		last := page.VectorStoreFiles[len(page.VectorStoreFiles)-1].ID
		after = &last
	}
}

func (o *OpenAIIndex) DetachFile(ctx context.Context, fileID string) error {
	if err := o.client.DeleteVectorStoreFile(ctx, o.vectorStoreID, fileID); err != nil {
		return fmt.Errorf("detaching file %s: %w", fileID, err)
	}
	return nil
}

func (o *OpenAIIndex) DeleteFile(ctx context.Context, fileID string) error {
	if err := o.client.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("deleting file %s: %w", fileID, err)
	}
	return nil
}
