package services

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"multimodal-rag-platform/internal/index"
	"multimodal-rag-platform/internal/logger"
	"multimodal-rag-platform/models"
	"multimodal-rag-platform/utils"
)

const (
	indexFileName     = "index.json"
	documentsFileName = "documents.json"
)

// DocumentStore owns the in-memory record list and flat vector index and
// their on-disk persistence. It is the single shared mutable state of the
// service; all access goes through the store's lock.
//
// Persistence quirk, kept intentionally: Save rebuilds the persisted index
// from only the vectors passed in that call, so vectors from earlier save
// batches are discarded. The record list is always written in full. Deleting
// records never touches the index, which leaves the two misaligned until the
// next full ingest. Both behaviors match the persisted-state contract the
// HTTP surface exposes and are asserted by tests.
type DocumentStore struct {
	mu      sync.RWMutex
	dataDir string
	index   *index.Flat
	records []models.DocumentRecord
}

// NewDocumentStore creates a store rooted at dataDir and loads any
// previously persisted state. A missing index or record file yields an
// empty store without error.
func NewDocumentStore(dataDir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &DocumentStore{dataDir: dataDir}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DocumentStore) indexPath() string {
	return filepath.Join(s.dataDir, indexFileName)
}

func (s *DocumentStore) documentsPath() string {
	return filepath.Join(s.dataDir, documentsFileName)
}

// load reads both persisted files. If either is absent the store starts
// empty; a present record file with a missing index file is not reconciled.
func (s *DocumentStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.indexPath()); err != nil {
		s.index = nil
		s.records = nil
		return nil
	}
	if _, err := os.Stat(s.documentsPath()); err != nil {
		s.index = nil
		s.records = nil
		return nil
	}

	idx, err := index.ReadFile(s.indexPath())
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	data, err := os.ReadFile(s.documentsPath())
	if err != nil {
		return fmt.Errorf("failed to read documents file: %w", err)
	}
	var records []models.DocumentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse documents file: %w", err)
	}

	s.index = idx
	s.records = records
	logger.Info("Document store loaded", "records", len(records), "index_size", idx.Len())
	return nil
}

// Save persists the store: the index is rebuilt from only the vectors in
// newEmbeddings, the record list is replaced by allRecords, and both are
// written to disk, overwriting prior contents.
func (s *DocumentStore) Save(newEmbeddings []models.NewEmbedding, allRecords []models.DocumentRecord) error {
	if len(newEmbeddings) == 0 {
		return fmt.Errorf("no embeddings to save")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := index.New(len(newEmbeddings[0].Embedding))
	for _, item := range newEmbeddings {
		if err := idx.Add(item.Embedding); err != nil {
			return fmt.Errorf("failed to index embedding for %s: %w", item.DocID, err)
		}
	}

	if err := idx.WriteFile(s.indexPath()); err != nil {
		return err
	}

	data, err := json.Marshal(allRecords)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(s.documentsPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write documents file: %w", err)
	}

	s.index = idx
	s.records = allRecords
	logger.Info("Document store saved", "records", len(allRecords), "index_size", idx.Len())
	return nil
}

// Records returns a copy of the current record list.
func (s *DocumentStore) Records() []models.DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.DocumentRecord, len(s.records))
	copy(records, s.records)
	return records
}

// Snapshot returns the current index and a copy of the record list for a
// consistent search pass. The returned index is replaced wholesale on save
// and never mutated in place, so readers may scan it without the lock.
func (s *DocumentStore) Snapshot() (*index.Flat, []models.DocumentRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.DocumentRecord, len(s.records))
	copy(records, s.records)
	return s.index, records
}

// IndexSize reports the number of indexed vectors.
func (s *DocumentStore) IndexSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Ready reports whether any vectors are indexed. A not-ready store is
// distinct from a ready store with no matching results.
func (s *DocumentStore) Ready() bool {
	return s.IndexSize() > 0
}

// Status summarizes the store for the status endpoint.
func (s *DocumentStore) Status() models.SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := models.SystemStatus{
		Status:         "empty",
		TotalDocuments: len(s.records),
		IndexSize:      s.index.Len(),
	}
	for _, rec := range s.records {
		switch rec.ContentType {
		case models.ContentTypeText:
			status.TextDocuments++
		case models.ContentTypeImage:
			status.ImageDocuments++
		}
	}
	if s.index.Len() > 0 {
		status.Status = "active"
	}
	return status
}

// DeleteByPrefix removes every record whose id starts with the given prefix
// and returns the number removed. Multi-page documents share the document id
// prefix. The vector index is left untouched.
func (s *DocumentStore) DeleteByPrefix(docID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	removed := 0
	for _, rec := range s.records {
		if strings.HasPrefix(rec.DocID, docID) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed
}

// Clear wipes in-memory state and all persisted files: index, record list
// and stored image previews.
func (s *DocumentStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = nil
	s.records = nil

	for _, path := range []string{s.indexPath(), s.documentsPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	previews, err := filepath.Glob(filepath.Join(s.dataDir, "*.png"))
	if err != nil {
		return fmt.Errorf("failed to list image previews: %w", err)
	}
	for _, path := range previews {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove preview %s: %w", path, err)
		}
	}

	logger.Info("Document store cleared")
	return nil
}

// SaveImagePreview writes a page image to the data directory as PNG and
// returns its path. The file is named by record id.
func (s *DocumentStore) SaveImagePreview(img image.Image, filename string) (string, error) {
	data, err := utils.EncodePNG(img)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dataDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image preview: %w", err)
	}
	return path, nil
}
