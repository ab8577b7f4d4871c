package types

import "time"

const (
	DOCUMENT_STATUS_UPLOADED = "uploaded"
	DOCUMENT_STATUS_REVIEW   = "review"
	DOCUMENT_STATUS_APPROVED = "approved"
	DOCUMENT_STATUS_REJECTED = "rejected"
)

// A document stays INDEX_STATUS_INDEXING only while its chunks are embedded;
// one left in that state was interrupted and can be cleaned up.
const (
	INDEX_STATUS_INDEXING          = "indexing"
	INDEX_STATUS_INDEXED           = "indexed"
	INDEX_STATUS_PARTIALLY_INDEXED = "partially_indexed"
	INDEX_STATUS_INGESTION_FAILED  = "ingestion_failed"
)

const (
	SUMMARY_SOURCE_FILE = "file"
	SUMMARY_SOURCE_TEXT = "text"
	SUMMARY_SOURCE_NONE = "none"
)

// DueDateLayout is the only accepted due date format.
const DueDateLayout = "2006-01-02"

// Attachment points at a blob in the blob store.
type Attachment struct {
	FileID   string `bson:"file_id" json:"fileId"`
	Filename string `bson:"filename" json:"filename"`
	MimeType string `bson:"mime_type" json:"mimeType"`
	Size     int64  `bson:"size" json:"size"`
}

// Document is the metadata record of an uploaded correspondence.
type Document struct {
	ID             string       `bson:"_id,omitempty" json:"id"`
	OrganizationID string       `bson:"organization_id,omitempty" json:"organizationId,omitempty"`
	Subject        string       `bson:"subject" json:"subject"`
	Author         string       `bson:"author" json:"author"`
	Status         string       `bson:"status" json:"status"`
	DueDate        string       `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Attachments    []Attachment `bson:"attachments" json:"attachments"`
	Summary        string       `bson:"summary" json:"summary"`
	SummarySource  string       `bson:"summary_source" json:"summarySource"`
	IndexStatus    string       `bson:"index_status" json:"indexStatus"`
	ChunkCount     int          `bson:"chunk_count" json:"chunkCount"`
	FailedChunks   []int        `bson:"failed_chunks,omitempty" json:"failedChunks,omitempty"`
	Language       string       `bson:"language,omitempty" json:"language,omitempty"`
	CreatedAt      time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `bson:"updated_at" json:"updatedAt"`
}

// Chunk is one embedded text window of a document.
type Chunk struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	DocumentID     string    `bson:"document_id" json:"documentId"`
	OrganizationID string    `bson:"organization_id,omitempty" json:"organizationId,omitempty"`
	Page           int       `bson:"page" json:"page"`
	Text           string    `bson:"text" json:"text"`
	Embedding      []float32 `bson:"embedding" json:"-"`
	TokenCount     int       `bson:"token_count" json:"tokenCount"`
	Language       string    `bson:"language,omitempty" json:"language,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// ScoredChunk is a chunk returned by the vector index with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// BlobInfo describes a stored attachment blob.
type BlobInfo struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	DocumentID  string
	UploadedAt  time.Time
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	OrganizationID string
	Status         string
	Query          string
}

// AutoMeta is metadata derived from the extracted text.
type AutoMeta struct {
	Title     string `json:"title"`
	Language  string `json:"language"`
	WordCount int    `json:"wordCount"`
	CharCount int    `json:"charCount"`
}

// FilePreview describes the stored attachment of a fresh upload.
type FilePreview struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// IsValidDocumentStatus reports whether status is one of the workflow states.
func IsValidDocumentStatus(status string) bool {
	switch status {
	case DOCUMENT_STATUS_UPLOADED, DOCUMENT_STATUS_REVIEW, DOCUMENT_STATUS_APPROVED, DOCUMENT_STATUS_REJECTED:
		return true
	}
	return false
}

// CanTransition reports whether a document may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case DOCUMENT_STATUS_UPLOADED:
		return to == DOCUMENT_STATUS_REVIEW
	case DOCUMENT_STATUS_REVIEW:
		return to == DOCUMENT_STATUS_APPROVED || to == DOCUMENT_STATUS_REJECTED
	case DOCUMENT_STATUS_REJECTED:
		return to == DOCUMENT_STATUS_REVIEW
	}
	return false
}
