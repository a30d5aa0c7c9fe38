package syncer

import (
	"context"
	"fmt"

	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

// State summarizes how far a namespace has converged.
type State string

const (
	// StateSynced means every active document is current in the remote
	// index and the index holds nothing else.
	StateSynced State = "synced"
	// StatePartial means some documents are synced but a full sync would
	// still change something.
	StatePartial State = "partial"
	// StateUnsynced means no document has reached the remote index yet.
	StateUnsynced State = "unsynced"
)

// Status describes a namespace's sync position.
type Status struct {
	Namespace      string `json:"namespace"`
	State          State  `json:"state"`
	LocalDocuments int    `json:"local_documents"`
	Linked         int    `json:"linked"`
	Pending        int    `json:"pending"`
	RemoteFiles    int    `json:"remote_files"`
	Orphans        int    `json:"orphans"`
	LastRuns       int    `json:"last_runs"`
}

// Status inspects local references and the remote file list without
// changing either side.
func (r *Reconciler) Status(ctx context.Context, namespace string) (*Status, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	index, err := r.indexes(namespace)
	if err != nil {
		return nil, fmt.Errorf("resolving index for %q: %w", namespace, err)
	}

	docs, err := r.store.ListDocuments(ctx, knowledge.DocumentFilter{
		Namespace: namespace,
		Status:    knowledge.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	remote, err := index.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote files: %w", err)
	}
	remoteIDs := make(map[string]bool, len(remote))
	for _, f := range remote {
		remoteIDs[f.ID] = true
	}

	status := &Status{
		Namespace:      namespace,
		LocalDocuments: len(docs),
		RemoteFiles:    len(remote),
	}

	owned := make(map[string]bool)
	for _, doc := range docs {
		current := doc.RemoteFileID != "" &&
			remoteIDs[doc.RemoteFileID] &&
			doc.SyncedAt != nil &&
			!doc.UpdatedAt.After(*doc.SyncedAt)
		if doc.RemoteFileID != "" {
			status.Linked++
			owned[doc.RemoteFileID] = true
		}
		if !current {
			status.Pending++
		}
	}
	for _, f := range remote {
		if !owned[f.ID] {
			status.Orphans++
		}
	}

	r.mu.Lock()
	status.LastRuns = len(r.history[namespace])
	r.mu.Unlock()

	switch {
	case status.Pending == 0 && status.Orphans == 0:
		status.State = StateSynced
	case status.Linked == 0:
		status.State = StateUnsynced
	default:
		status.State = StatePartial
	}
	return status, nil
}
