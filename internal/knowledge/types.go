// Package knowledge owns the relational document, chunk and processing-job
// records and the chunk/embedding pipeline over them.
package knowledge

import "time"

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusActive  DocumentStatus = "active"
	StatusDeleted DocumentStatus = "deleted"
)

// Document is a titled unit of reference text. Documents are soft-deleted:
// a delete tombstones the row and removes its chunks, it never hard-removes
// the record.
type Document struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	DocType      string         `json:"doc_type"`
	Category     string         `json:"category"`
	Namespace    string         `json:"namespace"`
	Status       DocumentStatus `json:"status"`
	RemoteFileID string         `json:"remote_file_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	SyncedAt     *time.Time     `json:"synced_at,omitempty"`
}

// Chunk is one contiguous, ordered fragment of a document's content.
// Chunks for a document always form a contiguous 0..N-1 index sequence.
type Chunk struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	Content        string    `json:"content"`
	Index          int       `json:"chunk_index"`
	TokenCount     int       `json:"token_count"`
	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	EmbeddingDims  int       `json:"embedding_dims,omitempty"`
	Method         string    `json:"method,omitempty"`

	// Seq is the chunk's global insertion order, used as the search
	// tie-break for equal scores. Populated on reads.
	Seq int64 `json:"-"`

	// Joined document fields, populated by reads that join documents.
	DocumentTitle string `json:"document_title,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`
}

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one chunking/embedding run for one document. Jobs are never
// deleted or reused; a retry creates a fresh job.
type Job struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	JobType     string     `json:"job_type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	ErrorMsg    string     `json:"error_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Stats summarizes the processed corpus.
type Stats struct {
	TotalChunks        int     `json:"total_chunks"`
	ProcessedDocuments int     `json:"processed_documents"`
	AvgChunksPerDoc    float64 `json:"average_chunks_per_document"`
	AvgTokensPerChunk  float64 `json:"average_tokens_per_chunk"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Namespace string
	DocType   string
	Status    DocumentStatus
}
