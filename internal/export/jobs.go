// Package export validates export requests and dispatches them to the
// external Earth Engine job system.
package export

import (
	"context"

	"github.com/starford/raido/pkg/geojson"
)

// ProjectContext is the opaque project/credential context for the Earth
// Engine job system. It is an explicit argument on every call, never ambient
// process state, so concurrent callers with different projects cannot
// contaminate each other.
type ProjectContext struct {
	ProjectID string
	Token     string
}

// Status is the point-in-time state of an export job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// Export formats accepted by the dispatcher.
const (
	FormatGeoTIFF  = "GeoTIFF"
	FormatTFRecord = "TFRecord"
)

// Export destinations.
const (
	DestinationDrive    = "drive"
	DestinationDownload = "download"
)

// JobSpec is the validated description handed to the job system. Everything in
// it has already passed dispatcher validation.
type JobSpec struct {
	DatasetID   string
	StartDate   string
	EndDate     string
	Band        string
	Region      *geojson.Geometry
	Format      string
	Scale       float64
	Destination string
	Folder      string
	FilePrefix  string
	Description string
}

// Job is the opaque handle plus point-in-time status returned on creation.
type Job struct {
	Handle      string `json:"handle"`
	State       Status `json:"state"`
	Description string `json:"description"`
}

// JobSystem is the external system that owns and executes export jobs.
type JobSystem interface {
	// CreateExportJob starts one export job and returns its opaque handle.
	CreateExportJob(ctx context.Context, project ProjectContext, spec JobSpec) (*Job, error)
	// PollJob returns the live status of the job behind handle.
	PollJob(ctx context.Context, project ProjectContext, handle string) (Status, error)
}
