// Package importer ingests files from disk into the document store. Each
// imported file becomes one document titled by its relative path, so a
// re-import of the same tree updates changed files instead of duplicating
// them.
package importer

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/progress"
)

// Options controls one import run.
type Options struct {
	Dir       string
	Include   []string
	Exclude   []string
	DocType   string
	Namespace string
	Category  string
	// Process chunks and embeds each imported document immediately.
	Process bool
}

// Result summarizes an import run.
type Result struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Importer loads files into the store, optionally running the processing
// pipeline on each.
type Importer struct {
	store     *knowledge.Store
	processor *knowledge.Processor
	reporter  progress.Reporter
}

// New creates an importer. The processor may be nil when imports should
// only store documents; the reporter may be nil to silence progress.
func New(store *knowledge.Store, processor *knowledge.Processor, reporter progress.Reporter) *Importer {
	return &Importer{store: store, processor: processor, reporter: reporter}
}

// Import walks opts.Dir and upserts every matching file as a document.
// Unchanged files are skipped; per-file failures do not stop the run.
func (imp *Importer) Import(ctx context.Context, opts Options) (*Result, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("import directory is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	files, err := Walk(WalkConfig{
		RootDir: opts.Dir,
		Include: opts.Include,
		Exclude: opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	if imp.reporter != nil {
		imp.reporter.Start("Importing documents", len(files))
		defer imp.reporter.Finish()
	}

	result := &Result{}
	for i, f := range files {
		if imp.reporter != nil {
			imp.reporter.Update(i+1, f.RelPath)
		}
		if err := imp.importFile(ctx, f, opts, result); err != nil {
			result.Failed++
			log.Printf("importer: %s: %v", f.RelPath, err)
		}
	}
	return result, nil
}

func (imp *Importer) importFile(ctx context.Context, f FileInfo, opts Options, result *Result) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	content := string(data)
	if content == "" {
		result.Skipped++
		return nil
	}

	existing, err := imp.store.FindByTitle(ctx, opts.Namespace, f.RelPath)
	if err != nil {
		return err
	}

	var docID string
	switch {
	case existing == nil:
		doc, err := imp.store.CreateDocument(ctx, knowledge.Document{
			Title:     f.RelPath,
			Content:   content,
			DocType:   opts.DocType,
			Category:  opts.Category,
			Namespace: opts.Namespace,
		})
		if err != nil {
			return err
		}
		docID = doc.ID
		result.Imported++
	case existing.Content == content:
		result.Skipped++
		return nil
	default:
		if err := imp.store.UpdateDocumentContent(ctx, existing.ID, existing.Title, content, existing.Category); err != nil {
			return err
		}
		docID = existing.ID
		result.Updated++
	}

	if opts.Process && imp.processor != nil {
		if _, err := imp.processor.Process(ctx, docID); err != nil {
			return fmt.Errorf("processing: %w", err)
		}
	}
	return nil
}
