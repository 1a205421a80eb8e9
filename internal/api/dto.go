package api

import (
	"encoding/json"

	"github.com/starford/raido/internal/store"
)

// DatasetListResponse wraps one page of search results.
type DatasetListResponse struct {
	Datasets    []store.DatasetRecord `json:"datasets"`
	TotalCount  int                   `json:"total_count"`
	TotalPages  int                   `json:"total_pages"`
	CurrentPage int                   `json:"current_page"`
}

// TagListResponse wraps the tag vocabulary.
type TagListResponse struct {
	Tags []store.Tag `json:"tags"`
}

// StartExportRequest is the request body for dispatching an export job.
type StartExportRequest struct {
	ProjectID   string          `json:"project_id"`
	DatasetID   string          `json:"dataset_id"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Band        string          `json:"band"`
	Region      json.RawMessage `json:"region"`
	Scale       float64         `json:"scale,omitempty"`
	Format      string          `json:"format,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Folder      string          `json:"folder,omitempty"`
	FilePrefix  string          `json:"file_prefix,omitempty"`
}

// ExportJobResponse is returned after a job is dispatched.
type ExportJobResponse struct {
	Handle      string `json:"handle"`
	State       string `json:"state"`
	Description string `json:"description"`
}

// ExportStatusResponse reports the live state of a job.
type ExportStatusResponse struct {
	Handle string `json:"handle"`
	State  string `json:"state"`
}
