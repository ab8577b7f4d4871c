package types

// IngestRequest carries one uploaded file and its form metadata.
type IngestRequest struct {
	Data           []byte
	Filename       string
	MimeType       string
	Subject        string
	Author         string
	Date           string
	Status         string
	OrganizationID string
	UploadID       string
}

type SearchRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"topK,omitempty"`
	WithAnswer     bool     `json:"withAnswer,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
	OrganizationID string   `json:"organizationId,omitempty"`
}

// VectorQuery is what the search orchestrator asks of a chunk index.
type VectorQuery struct {
	Vector         []float32
	NumCandidates  int
	Limit          int
	MinScore       float64
	OrganizationID string
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type PaginateDocumentRequest struct {
	Page  int64 `form:"page"`
	Limit int64 `form:"limit"`
}
