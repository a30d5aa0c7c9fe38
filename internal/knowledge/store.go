package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/coachkit/knowledge-engine/internal/db"
)

// Store persists documents, chunks and processing jobs.
type Store struct {
	db *db.DB
}

// NewStore creates a store over the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateDocument inserts a new active document and returns it with its
// generated ID and timestamps.
func (s *Store) CreateDocument(ctx context.Context, d Document) (*Document, error) {
	if d.Title == "" {
		return nil, fmt.Errorf("document title is required")
	}
	if d.Content == "" {
		return nil, fmt.Errorf("document content is required")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.DocType == "" {
		d.DocType = "reference"
	}
	d.Status = StatusActive
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, doc_type, category, namespace, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.DocType, d.Category, d.Namespace, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return &d, nil
}

const documentColumns = `id, title, content, doc_type, category, namespace, status, remote_file_id, created_at, updated_at, synced_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var d Document
	var remoteFileID sql.NullString
	var syncedAt sql.NullTime
	err := row.Scan(&d.ID, &d.Title, &d.Content, &d.DocType, &d.Category, &d.Namespace,
		&d.Status, &remoteFileID, &d.CreatedAt, &d.UpdatedAt, &syncedAt)
	if err != nil {
		return nil, err
	}
	d.RemoteFileID = remoteFileID.String
	if syncedAt.Valid {
		t := syncedAt.Time
		d.SyncedAt = &t
	}
	return &d, nil
}

// GetDocument retrieves a document by ID, including tombstoned ones.
// Returns nil when the document does not exist.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

// ListDocuments returns documents matching the filter, newest first.
// An empty Status defaults to active.
func (s *Store) ListDocuments(ctx context.Context, f DocumentFilter) ([]Document, error) {
	if f.Status == "" {
		f.Status = StatusActive
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE status = ?`
	args := []any{f.Status}
	if f.Namespace != "" {
		query += ` AND namespace = ?`
		args = append(args, f.Namespace)
	}
	if f.DocType != "" {
		query += ` AND doc_type = ?`
		args = append(args, f.DocType)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// UpdateDocumentContent replaces a document's title, content and category
// and bumps updated_at, which marks it stale for the next full sync.
func (s *Store) UpdateDocumentContent(ctx context.Context, id, title, content, category string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, content = ?, category = ?, updated_at = ? WHERE id = ? AND status = 'active'`,
		title, content, category, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

// DeleteDocument soft-deletes a document: the row is tombstoned, its remote
// reference is cleared and its chunks are removed, all in one transaction.
// A deleted document has no live chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = 'deleted', remote_file_id = NULL, updated_at = ? WHERE id = ? AND status = 'active'`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("tombstoning document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s not found", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("deleting document chunks: %w", err)
	}

	return tx.Commit()
}

// SetRemoteFile records a successful remote upload: the document becomes
// linked to fileID and synced_at is stamped.
func (s *Store) SetRemoteFile(ctx context.Context, id, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET remote_file_id = ?, synced_at = ? WHERE id = ?`,
		fileID, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting remote file id: %w", err)
	}
	return nil
}

// ClearRemoteFile unlinks a document from its remote entry.
func (s *Store) ClearRemoteFile(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET remote_file_id = NULL, synced_at = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("clearing remote file id: %w", err)
	}
	return nil
}

// FindByRemoteFile returns the active document linked to fileID, or nil.
func (s *Store) FindByRemoteFile(ctx context.Context, fileID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE remote_file_id = ? AND status = 'active'`, fileID)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding document by remote file: %w", err)
	}
	return d, nil
}

// FindByTitle returns the active document with the given title in a
// namespace, or nil if none exists. Titles are how file imports recognize
// documents they created earlier.
func (s *Store) FindByTitle(ctx context.Context, namespace, title string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE namespace = ? AND title = ? AND status = 'active'`,
		namespace, title)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding document by title: %w", err)
	}
	return d, nil
}

// ReplaceChunks atomically swaps a document's chunk set: prior chunks are
// deleted and the new ones inserted within one transaction, so readers only
// ever observe the old set or the new set.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning chunk transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clearing existing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (id, document_id, content, chunk_index, token_count, embedding, embedding_model, embedding_dims, method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		var blob []byte
		if len(c.Embedding) > 0 {
			blob = encodeVector(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, documentID, c.Content, c.Index, c.TokenCount,
			blob, c.EmbeddingModel, c.EmbeddingDims, c.Method, now); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

const chunkColumns = `c.id, c.document_id, c.content, c.chunk_index, c.token_count, c.embedding, c.embedding_model, c.embedding_dims, c.method, c.rowid, d.title, d.doc_type`

func scanChunk(rows *sql.Rows) (*Chunk, error) {
	var c Chunk
	var blob []byte
	err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Index, &c.TokenCount,
		&blob, &c.EmbeddingModel, &c.EmbeddingDims, &c.Method, &c.Seq, &c.DocumentTitle, &c.DocumentType)
	if err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		c.Embedding = decodeVector(blob)
	}
	return &c, nil
}

// ChunksForDocument returns a document's chunks in index order, regardless
// of the document's status.
func (s *Store) ChunksForDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+`
		 FROM document_chunks c JOIN documents d ON c.document_id = d.id
		 WHERE c.document_id = ? ORDER BY c.chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

// ActiveChunks returns every chunk belonging to an active document, in
// insertion order. This is the corpus the search indexes are built from.
func (s *Store) ActiveChunks(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+`
		 FROM document_chunks c JOIN documents d ON c.document_id = d.id
		 WHERE d.status = 'active' ORDER BY c.rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying active chunks: %w", err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

func collectChunks(rows *sql.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// DocumentsWithoutChunks returns active documents that have not been
// processed yet, oldest first.
func (s *Store) DocumentsWithoutChunks(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents d
		 WHERE d.status = 'active'
		 AND NOT EXISTS (SELECT 1 FROM document_chunks c WHERE c.document_id = d.id)
		 ORDER BY d.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Stats summarizes the processed corpus across active documents.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var avgTokens sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT c.document_id), AVG(c.token_count)
		 FROM document_chunks c JOIN documents d ON c.document_id = d.id
		 WHERE d.status = 'active'`).Scan(&st.TotalChunks, &st.ProcessedDocuments, &avgTokens)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	st.AvgTokensPerChunk = avgTokens.Float64
	if st.ProcessedDocuments > 0 {
		st.AvgChunksPerDoc = float64(st.TotalChunks) / float64(st.ProcessedDocuments)
	}
	return &st, nil
}

// encodeVector packs a float32 slice into a little-endian blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 slice.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
