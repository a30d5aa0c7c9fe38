package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/coachkit/knowledge-engine/internal/db"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

func setupTestStore(t *testing.T) *knowledge.Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return knowledge.NewStore(database)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestImportCreatesDocuments(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", "# Coaching Guide\n\nSet goals early.")
	writeFile(t, dir, "notes/session.md", "Session notes on feedback.")

	imp := New(store, nil, nil)
	result, err := imp.Import(context.Background(), Options{
		Dir:       dir,
		Include:   []string{"**/*.md"},
		Namespace: "coach-a",
		DocType:   "reference",
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 2 || result.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	doc, err := store.FindByTitle(context.Background(), "coach-a", "notes/session.md")
	if err != nil {
		t.Fatalf("finding document: %v", err)
	}
	if doc == nil {
		t.Fatal("nested file was not imported under its relative path")
	}
	if doc.DocType != "reference" {
		t.Errorf("doc type not applied, got %q", doc.DocType)
	}
}

func TestReimportSkipsUnchangedAndUpdatesChanged(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "stable.md", "Stays the same.")
	writeFile(t, dir, "moving.md", "First version.")

	imp := New(store, nil, nil)
	opts := Options{Dir: dir, Include: []string{"*.md"}, Namespace: "coach-a"}

	if _, err := imp.Import(context.Background(), opts); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	writeFile(t, dir, "moving.md", "Second version.")
	result, err := imp.Import(context.Background(), opts)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if result.Imported != 0 || result.Updated != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	doc, err := store.FindByTitle(context.Background(), "coach-a", "moving.md")
	if err != nil {
		t.Fatalf("finding document: %v", err)
	}
	if doc.Content != "Second version." {
		t.Errorf("content not updated, got %q", doc.Content)
	}
}

func TestImportRespectsExcludes(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "keep.md", "Keep this.")
	writeFile(t, dir, "drafts/skip.md", "Skip this.")

	imp := New(store, nil, nil)
	result, err := imp.Import(context.Background(), Options{
		Dir:       dir,
		Include:   []string{"**/*.md"},
		Exclude:   []string{"drafts/**"},
		Namespace: "coach-a",
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("expected 1 import, got %+v", result)
	}
}

func TestImportSkipsBinaryFiles(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "text.txt", "plain text")
	if err := os.WriteFile(filepath.Join(dir, "blob.txt"), []byte{0x00, 0x01, 0x02, 'a'}, 0644); err != nil {
		t.Fatalf("writing binary file: %v", err)
	}

	imp := New(store, nil, nil)
	result, err := imp.Import(context.Background(), Options{
		Dir:       dir,
		Namespace: "coach-a",
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("expected binary file to be skipped, got %+v", result)
	}
}

func TestImportWithProcessing(t *testing.T) {
	store := setupTestStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "doc.md", "Processing happens inline for this file.")

	processor := knowledge.NewProcessor(store)
	imp := New(store, processor, nil)
	result, err := imp.Import(context.Background(), Options{
		Dir:       dir,
		Namespace: "coach-a",
		Process:   true,
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	doc, err := store.FindByTitle(context.Background(), "coach-a", "doc.md")
	if err != nil {
		t.Fatalf("finding document: %v", err)
	}
	chunks, err := store.ChunksForDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("loading chunks: %v", err)
	}
	if len(chunks) == 0 {
		t.Error("imported document was not chunked")
	}
}

func TestImportRequiresNamespace(t *testing.T) {
	store := setupTestStore(t)
	imp := New(store, nil, nil)
	if _, err := imp.Import(context.Background(), Options{Dir: t.TempDir()}); err == nil {
		t.Error("expected error for missing namespace")
	}
}
