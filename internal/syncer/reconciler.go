// Package syncer reconciles local documents against their remote vector
// index, namespace by namespace. A full sync converges the remote index on
// the local active set: missing documents are uploaded, stale ones are
// replaced, and remote files with no local owner are removed.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/vectorindex"
)

// Mode selects how much of the corpus a sync run considers.
type Mode string

const (
	// ModeFull reconciles every active document and removes remote orphans.
	ModeFull Mode = "full"
	// ModeIncremental only uploads documents that have never been synced.
	ModeIncremental Mode = "incremental"
)

// Action names what a sync run did to one document or remote file.
type Action string

const (
	ActionUpload Action = "upload"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// historyLimit bounds how many past runs are retained per namespace.
const historyLimit = 10

// ErrSyncRunning is returned when a namespace already has a run in flight.
var ErrSyncRunning = errors.New("sync already running")

// Operation records the outcome of one reconciliation step.
type Operation struct {
	DocumentID string    `json:"document_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	RemoteID   string    `json:"remote_id,omitempty"`
	Action     Action    `json:"action"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Result summarizes one sync run.
type Result struct {
	Namespace  string      `json:"namespace"`
	Mode       Mode        `json:"mode"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Uploaded   int         `json:"uploaded"`
	Updated    int         `json:"updated"`
	Deleted    int         `json:"deleted"`
	Failed     int         `json:"failed"`
	Operations []Operation `json:"operations"`
}

// Success reports whether every step of the run succeeded.
func (r *Result) Success() bool { return r.Failed == 0 }

// IndexFunc resolves the remote index serving a namespace.
type IndexFunc func(namespace string) (vectorindex.RemoteIndex, error)

// Reconciler drives sync runs and keeps a bounded per-namespace history of
// their results.
type Reconciler struct {
	store   *knowledge.Store
	indexes IndexFunc

	mu      sync.Mutex
	running map[string]bool
	history map[string][]Result
}

// NewReconciler creates a reconciler resolving remote indexes via indexes.
func NewReconciler(store *knowledge.Store, indexes IndexFunc) *Reconciler {
	return &Reconciler{
		store:   store,
		indexes: indexes,
		running: make(map[string]bool),
		history: make(map[string][]Result),
	}
}

// Sync reconciles one namespace. Only one run per namespace may be in
// flight; a second concurrent call fails immediately.
func (r *Reconciler) Sync(ctx context.Context, namespace string, mode Mode) (*Result, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if mode == "" {
		mode = ModeFull
	}

	r.mu.Lock()
	if r.running[namespace] {
		r.mu.Unlock()
		return nil, fmt.Errorf("namespace %q: %w", namespace, ErrSyncRunning)
	}
	r.running[namespace] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.running, namespace)
		r.mu.Unlock()
	}()

	index, err := r.indexes(namespace)
	if err != nil {
		return nil, fmt.Errorf("resolving index for %q: %w", namespace, err)
	}

	result := &Result{
		Namespace:  namespace,
		Mode:       mode,
		StartedAt:  time.Now().UTC(),
		Operations: []Operation{},
	}

	docs, err := r.store.ListDocuments(ctx, knowledge.DocumentFilter{
		Namespace: namespace,
		Status:    knowledge.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	switch mode {
	case ModeIncremental:
		r.syncIncremental(ctx, index, namespace, docs, result)
	case ModeFull:
		if err := r.syncFull(ctx, index, namespace, docs, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown sync mode %q", mode)
	}

	result.FinishedAt = time.Now().UTC()
	log.Printf("syncer: %s sync of %q done: %d uploaded, %d updated, %d deleted, %d failed",
		mode, namespace, result.Uploaded, result.Updated, result.Deleted, result.Failed)

	r.mu.Lock()
	runs := append(r.history[namespace], *result)
	if len(runs) > historyLimit {
		runs = runs[len(runs)-historyLimit:]
	}
	r.history[namespace] = runs
	r.mu.Unlock()

	return result, nil
}

// UploadDocument saves a document locally and immediately pushes it to the
// namespace's remote index. A remote failure never undoes the local save;
// the returned operation records it so the caller can surface the partial
// outcome and retry with a later sync.
func (r *Reconciler) UploadDocument(ctx context.Context, namespace string, doc knowledge.Document) (*knowledge.Document, Operation, error) {
	if namespace == "" {
		return nil, Operation{}, fmt.Errorf("namespace is required")
	}
	doc.Namespace = namespace
	saved, err := r.store.CreateDocument(ctx, doc)
	if err != nil {
		return nil, Operation{}, fmt.Errorf("saving document: %w", err)
	}

	op := Operation{DocumentID: saved.ID, Title: saved.Title, Action: ActionUpload, Timestamp: time.Now().UTC()}
	index, err := r.indexes(namespace)
	if err != nil {
		op.Message = fmt.Sprintf("resolving index for %q: %v", namespace, err)
		return saved, op, nil
	}

	scratch := &Result{}
	r.upload(ctx, index, namespace, *saved, ActionUpload, scratch)
	if n := len(scratch.Operations); n > 0 {
		op = scratch.Operations[n-1]
	}
	return saved, op, nil
}

// History returns the retained runs for a namespace, oldest first.
func (r *Reconciler) History(namespace string) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := r.history[namespace]
	out := make([]Result, len(runs))
	copy(out, runs)
	return out
}

func (r *Reconciler) syncIncremental(ctx context.Context, index vectorindex.RemoteIndex, namespace string, docs []knowledge.Document, result *Result) {
	for _, doc := range docs {
		if doc.RemoteFileID != "" {
			continue
		}
		r.upload(ctx, index, namespace, doc, ActionUpload, result)
	}
}

func (r *Reconciler) syncFull(ctx context.Context, index vectorindex.RemoteIndex, namespace string, docs []knowledge.Document, result *Result) error {
	remote, err := index.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("listing remote files: %w", err)
	}
	remoteIDs := make(map[string]bool, len(remote))
	for _, f := range remote {
		remoteIDs[f.ID] = true
	}

	owned := make(map[string]bool)
	for _, doc := range docs {
		switch {
		case doc.RemoteFileID == "":
			if id := r.upload(ctx, index, namespace, doc, ActionUpload, result); id != "" {
				owned[id] = true
			}
		case !remoteIDs[doc.RemoteFileID]:
			// The stored reference points at a file the remote no longer
			// has; treat it as a fresh upload.
			if id := r.upload(ctx, index, namespace, doc, ActionUpload, result); id != "" {
				owned[id] = true
			}
		case doc.SyncedAt == nil || doc.UpdatedAt.After(*doc.SyncedAt):
			// The old file is handled either way: replaced on success,
			// still referenced on failure. Not a candidate for the
			// orphan scan below.
			owned[doc.RemoteFileID] = true
			if id := r.update(ctx, index, namespace, doc, result); id != "" {
				owned[id] = true
			}
		default:
			owned[doc.RemoteFileID] = true
		}
	}

	// Remote files nothing local owns are leftovers from deletions or
	// failed swaps.
	for _, f := range remote {
		if owned[f.ID] {
			continue
		}
		op := Operation{RemoteID: f.ID, Action: ActionDelete, Timestamp: time.Now().UTC()}
		if err := r.removeRemote(ctx, index, f.ID); err != nil {
			op.Message = err.Error()
			result.Failed++
			log.Printf("syncer: removing orphan %s: %v", f.ID, err)
		} else {
			op.Success = true
			result.Deleted++
		}
		result.Operations = append(result.Operations, op)
	}
	return nil
}

// upload pushes a document to the remote index and records the new
// reference locally. Returns the new remote file ID, or "" on failure.
func (r *Reconciler) upload(ctx context.Context, index vectorindex.RemoteIndex, namespace string, doc knowledge.Document, action Action, result *Result) string {
	op := Operation{DocumentID: doc.ID, Title: doc.Title, Action: action, Timestamp: time.Now().UTC()}
	fail := func(err error) string {
		op.Message = err.Error()
		result.Failed++
		result.Operations = append(result.Operations, op)
		log.Printf("syncer: %s %q in %q: %v", action, doc.Title, namespace, err)
		return ""
	}

	fileID, err := index.CreateFile(ctx, fileName(namespace, doc), fileContent(doc))
	if err != nil {
		return fail(err)
	}
	if err := index.AttachFile(ctx, fileID); err != nil {
		// Roll the upload back so it does not linger as an orphan.
		if delErr := index.DeleteFile(ctx, fileID); delErr != nil {
			log.Printf("syncer: rolling back file %s: %v", fileID, delErr)
		}
		return fail(err)
	}
	if err := r.store.SetRemoteFile(ctx, doc.ID, fileID); err != nil {
		return fail(err)
	}

	op.Success = true
	op.RemoteID = fileID
	result.Operations = append(result.Operations, op)
	switch action {
	case ActionUpdate:
		result.Updated++
	default:
		result.Uploaded++
	}
	return fileID
}

// update replaces a stale remote file. The new version is uploaded and
// attached before the local reference moves, and only then is the old file
// removed: a failure partway never leaves the document without a valid
// remote copy. A failed removal of the old file is reported on the
// operation but leaves it as an orphan for the next full sync.
func (r *Reconciler) update(ctx context.Context, index vectorindex.RemoteIndex, namespace string, doc knowledge.Document, result *Result) string {
	oldID := doc.RemoteFileID
	newID := r.upload(ctx, index, namespace, doc, ActionUpdate, result)
	if newID == "" {
		return ""
	}

	if err := r.removeRemote(ctx, index, oldID); err != nil {
		log.Printf("syncer: removing replaced file %s: %v", oldID, err)
		last := &result.Operations[len(result.Operations)-1]
		last.Message = fmt.Sprintf("replaced, but old file %s not removed: %v", oldID, err)
	}
	return newID
}

func (r *Reconciler) removeRemote(ctx context.Context, index vectorindex.RemoteIndex, fileID string) error {
	if err := index.DetachFile(ctx, fileID); err != nil {
		return err
	}
	return index.DeleteFile(ctx, fileID)
}

func fileName(namespace string, doc knowledge.Document) string {
	return fmt.Sprintf("%s-%s.txt", namespace, doc.ID)
}

func fileContent(doc knowledge.Document) []byte {
	return []byte(fmt.Sprintf("# %s\n\n%s\n", doc.Title, doc.Content))
}
