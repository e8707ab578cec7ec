package models

import "time"

// Content type constants for document records
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// DocumentRecord represents one indexed unit of content: either the full
// extracted text of a PDF or a single rasterized page image.
type DocumentRecord struct {
	DocID       string `json:"doc_id"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Page        int    `json:"page,omitempty"`    // image records only
	Content     string `json:"content,omitempty"` // text records only
	Preview     string `json:"preview,omitempty"` // text snippet or image file path
}

// NewEmbedding pairs a freshly computed vector with its record id for a
// store save. The store builds the persisted index from these alone.
type NewEmbedding struct {
	Embedding   []float32 `json:"embedding"`
	DocID       string    `json:"doc_id"`
	ContentType string    `json:"content_type"`
}

// Hit is a retrieved DocumentRecord annotated with a similarity score.
type Hit struct {
	DocumentRecord
	Similarity float64 `json:"similarity"`
}

// QueryRequest is the body of POST /query
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// QuerySource is one entry in the query response source list.
// Image hits carry Page, text hits carry Preview.
type QuerySource struct {
	DocID       string  `json:"doc_id"`
	Source      string  `json:"source"`
	ContentType string  `json:"content_type"`
	Similarity  float64 `json:"similarity"`
	Page        int     `json:"page,omitempty"`
	Preview     string  `json:"preview,omitempty"`
}

// QueryResponse is the response of POST /query
type QueryResponse struct {
	Answer    string        `json:"answer"`
	Sources   []QuerySource `json:"sources"`
	Query     string        `json:"query"`
	Timestamp time.Time     `json:"timestamp"`
}

// DocumentInfo is the public metadata of a record for GET /documents
type DocumentInfo struct {
	DocID       string `json:"doc_id"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Page        int    `json:"page,omitempty"`
	Preview     string `json:"preview,omitempty"`
}

// SystemStatus is the response of GET /status
type SystemStatus struct {
	Status         string `json:"status"` // active, empty
	TotalDocuments int    `json:"total_documents"`
	TextDocuments  int    `json:"text_documents"`
	ImageDocuments int    `json:"image_documents"`
	IndexSize      int    `json:"index_size"`
}

// ProcessedFile summarizes the ingestion of one uploaded PDF.
type ProcessedFile struct {
	Filename   string `json:"filename"`
	DocID      string `json:"doc_id"`
	TextPages  int    `json:"text_pages"`
	ImagePages int    `json:"image_pages"`
}

// UploadResponse is the response of POST /documents/upload
type UploadResponse struct {
	Message           string          `json:"message"`
	ProcessedFiles    []ProcessedFile `json:"processed_files"`
	TotalIndexedItems int             `json:"total_indexed_items"`
}
