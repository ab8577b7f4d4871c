package types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

// IngestResult is the outcome of a single ingestion.
type IngestResult struct {
	Ok            bool        `json:"ok"`
	DocID         string      `json:"docId"`
	Summary       string      `json:"summary"`
	SummarySource string      `json:"summarySource"`
	AutoMeta      AutoMeta    `json:"autoMeta"`
	FilePreview   FilePreview `json:"filePreview"`
	ChunkCount    int         `json:"chunkCount"`
	FailedChunks  []int       `json:"failedChunks"`
	IndexStatus   string      `json:"indexStatus"`
	UploadID      string      `json:"uploadId,omitempty"`
}

type PreviewResponse struct {
	Ok      bool   `json:"ok"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

type SearchHit struct {
	ChunkText  string  `json:"chunkText"`
	DocumentID string  `json:"documentId"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Subject    string  `json:"subject,omitempty"`
}

type SearchResponse struct {
	Query      string      `json:"query"`
	HitCount   int         `json:"hitCount"`
	Hits       []SearchHit `json:"hits"`
	Answer     string      `json:"answer,omitempty"`
	Transcript *string     `json:"transcript,omitempty"`
	QDim       *int        `json:"qdim,omitempty"`
}

type PaginateResponse struct {
	Items []*Document `json:"items"`
	Total int64       `json:"total"`
	Page  int64       `json:"page"`
	Limit int64       `json:"limit"`
}

// ProgressEvent is pushed to websocket subscribers while a file is ingested.
type ProgressEvent struct {
	UploadID string `json:"uploadId"`
	Stage    string `json:"stage"`
	Done     int    `json:"done,omitempty"`
	Total    int    `json:"total,omitempty"`
	DocID    string `json:"docId,omitempty"`
	Message  string `json:"message,omitempty"`
}

const (
	PROGRESS_STAGE_EXTRACT   = "extract"
	PROGRESS_STAGE_SUMMARIZE = "summarize"
	PROGRESS_STAGE_STORE     = "store"
	PROGRESS_STAGE_EMBED     = "embed"
	PROGRESS_STAGE_DONE      = "done"
	PROGRESS_STAGE_FAILED    = "failed"
)
