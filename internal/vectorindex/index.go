// Package vectorindex abstracts the remote hosted vector index that mirrors
// the local document corpus. The engine reconciles local documents against
// it; implementations handle the provider wire details.
package vectorindex

import "context"

// RemoteFile is a document's representation in the remote index.
type RemoteFile struct {
	// ID is the provider's file identifier.
	ID string
	// Name is the filename the document was uploaded under.
	Name string
}

// RemoteIndex uploads, lists and removes document files in a hosted vector
// index. A file exists in two stages: uploaded (CreateFile) and attached to
// the index (AttachFile); reconciliation relies on being able to roll back
// the first stage when the second fails.
type RemoteIndex interface {
	// CreateFile uploads content under the given name and returns the
	// provider file ID. The file is not yet part of the index.
	CreateFile(ctx context.Context, name string, content []byte) (string, error)
	// AttachFile adds a previously uploaded file to the index.
	AttachFile(ctx context.Context, fileID string) error
	// ListFiles returns every file currently attached to the index.
	ListFiles(ctx context.Context) ([]RemoteFile, error)
	// DetachFile removes a file from the index without deleting it.
	DetachFile(ctx context.Context, fileID string) error
	// DeleteFile permanently deletes an uploaded file.
	DeleteFile(ctx context.Context, fileID string) error
}
