package knowledge

import (
	"context"
	"fmt"
	"log"

	"github.com/coachkit/knowledge-engine/internal/chunker"
	"github.com/coachkit/knowledge-engine/internal/embeddings"
)

// ProgressFunc receives job lifecycle updates as a processing run advances.
type ProgressFunc func(job Job)

// Processor runs the chunk/embed/store pipeline for documents. When the
// batch generator is nil, documents are chunked for lexical search only.
type Processor struct {
	store      *Store
	batcher    *embeddings.BatchGenerator
	chunkOpts  chunker.Options
	onProgress ProgressFunc
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithChunkOptions overrides the default chunking options.
func WithChunkOptions(opts chunker.Options) ProcessorOption {
	return func(p *Processor) { p.chunkOpts = opts }
}

// WithEmbeddings enables embedding generation through the given batcher.
func WithEmbeddings(batcher *embeddings.BatchGenerator) ProcessorOption {
	return func(p *Processor) { p.batcher = batcher }
}

// WithProgress registers a callback for job updates.
func WithProgress(fn ProgressFunc) ProcessorOption {
	return func(p *Processor) { p.onProgress = fn }
}

// OnProgress replaces the progress callback. Set it before any processing
// starts; it is not synchronized against running jobs.
func (p *Processor) OnProgress(fn ProgressFunc) { p.onProgress = fn }

// NewProcessor creates a processing pipeline over the store.
func NewProcessor(store *Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:     store,
		chunkOpts: chunker.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// jobType reports what kind of run this processor performs.
func (p *Processor) jobType() string {
	if p.batcher != nil {
		return "embedding"
	}
	return "chunking"
}

// Process chunks a document, optionally embeds the chunks, and atomically
// replaces the document's stored chunk set. On any failure the job is marked
// failed and the document keeps its previous chunks.
func (p *Processor) Process(ctx context.Context, documentID string) (*Job, error) {
	doc, job, err := p.begin(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := p.run(ctx, job, doc); err != nil {
		return job, err
	}
	return job, nil
}

// ProcessAsync creates the job synchronously and runs the pipeline in the
// background, so callers can hand the job ID back immediately.
func (p *Processor) ProcessAsync(ctx context.Context, documentID string) (*Job, error) {
	doc, job, err := p.begin(ctx, documentID)
	if err != nil {
		return nil, err
	}
	go func() {
		// Detached from the request context: the run completes its current
		// unit of work or fails it, it is not cancelled mid-batch.
		if err := p.run(context.Background(), job, doc); err != nil {
			log.Printf("knowledge: processing %s: %v", documentID, err)
		}
	}()
	return job, nil
}

// ProcessPending processes every active document that has no chunks yet.
// Per-document failures are collected and do not stop the run.
func (p *Processor) ProcessPending(ctx context.Context) (int, []error) {
	docs, err := p.store.DocumentsWithoutChunks(ctx)
	if err != nil {
		return 0, []error{err}
	}

	var processed int
	var errs []error
	for _, doc := range docs {
		if _, err := p.Process(ctx, doc.ID); err != nil {
			errs = append(errs, fmt.Errorf("processing %s: %w", doc.Title, err))
			continue
		}
		processed++
	}
	return processed, errs
}

func (p *Processor) begin(ctx context.Context, documentID string) (*Document, *Job, error) {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil || doc.Status != StatusActive {
		return nil, nil, fmt.Errorf("document %s not found", documentID)
	}

	job, err := p.store.CreateJob(ctx, documentID, p.jobType())
	if err != nil {
		return nil, nil, err
	}
	p.notify(*job)
	return doc, job, nil
}

func (p *Processor) run(ctx context.Context, job *Job, doc *Document) error {
	p.update(ctx, job, JobProcessing, 10, "")

	chunks := chunker.Split(doc.Content, p.chunkOpts)
	p.update(ctx, job, JobProcessing, 30, "")

	records := make([]Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = Chunk{
			DocumentID: doc.ID,
			Content:    c.Content,
			Index:      c.Index,
			TokenCount: c.TokenCount,
			Method:     "paragraph",
		}
	}

	if p.batcher != nil && len(records) > 0 {
		texts := make([]string, len(records))
		for i, r := range records {
			texts[i] = r.Content
		}
		vectors, err := p.batcher.GenerateAll(ctx, texts)
		if err != nil {
			// Fail closed: no partial vector set is ever stored and the
			// previous chunk set stays visible.
			p.update(ctx, job, JobFailed, job.Progress, err.Error())
			return fmt.Errorf("generating embeddings: %w", err)
		}
		for i := range records {
			records[i].Embedding = vectors[i]
			records[i].EmbeddingModel = p.batcher.Model()
			records[i].EmbeddingDims = len(vectors[i])
		}
	}
	p.update(ctx, job, JobProcessing, 70, "")

	if err := p.store.ReplaceChunks(ctx, doc.ID, records); err != nil {
		p.update(ctx, job, JobFailed, job.Progress, err.Error())
		return fmt.Errorf("storing chunks: %w", err)
	}

	p.update(ctx, job, JobCompleted, 100, "")
	return nil
}

func (p *Processor) update(ctx context.Context, job *Job, status JobStatus, progress int, errMsg string) {
	if err := p.store.UpdateJob(ctx, job.ID, status, progress, errMsg); err != nil {
		log.Printf("knowledge: updating job %s: %v", job.ID, err)
		return
	}
	job.Status = status
	job.Progress = progress
	job.ErrorMsg = errMsg
	p.notify(*job)
}

func (p *Processor) notify(job Job) {
	if p.onProgress != nil {
		p.onProgress(job)
	}
}
