package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/starford/raido/internal/apperr"
)

// DefaultEarthEngineURL is the production Earth Engine REST endpoint.
const DefaultEarthEngineURL = "https://earthengine.googleapis.com/v1"

// EarthEngineJobs implements JobSystem against the Earth Engine REST API.
// Requests carry the caller's bearer token from the ProjectContext and have a
// bounded timeout. There is deliberately no retry: a retried create could
// start the same export twice.
type EarthEngineJobs struct {
	baseURL string
	client  *resty.Client
	logger  *slog.Logger
}

// NewEarthEngineJobs creates a client for the Earth Engine endpoint at baseURL
// (empty = production).
func NewEarthEngineJobs(baseURL string, timeout time.Duration, logger *slog.Logger) *EarthEngineJobs {
	if baseURL == "" {
		baseURL = DefaultEarthEngineURL
	}
	return &EarthEngineJobs{
		baseURL: baseURL,
		client:  resty.New().SetTimeout(timeout),
		logger:  logger,
	}
}

// operation is the subset of the Earth Engine long-running operation shape the
// client reads.
type operation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Metadata struct {
		State       string `json:"state"`
		Description string `json:"description"`
	} `json:"metadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type exportImageRequest struct {
	Expression  exportExpression `json:"expression"`
	Description string           `json:"description"`
	Options     map[string]any   `json:"fileExportOptions"`
	MaxPixels   string           `json:"maxPixels"`
}

type exportExpression struct {
	DatasetID string         `json:"datasetId"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Band      string         `json:"band"`
	Region    any            `json:"region"`
	Grid      map[string]any `json:"grid"`
}

// CreateExportJob starts one image export and returns the operation name as
// the opaque job handle.
func (e *EarthEngineJobs) CreateExportJob(ctx context.Context, project ProjectContext, spec JobSpec) (*Job, error) {
	if project.ProjectID == "" {
		return nil, apperr.InvalidArgumentf("project id is required")
	}

	body := exportImageRequest{
		Expression: exportExpression{
			DatasetID: spec.DatasetID,
			StartDate: spec.StartDate,
			EndDate:   spec.EndDate,
			Band:      spec.Band,
			Region:    spec.Region,
			Grid: map[string]any{
				"crsCode": "EPSG:4326",
				"scale":   spec.Scale,
			},
		},
		Description: spec.Description,
		Options: map[string]any{
			"fileFormat":     spec.Format,
			"destination":    spec.Destination,
			"folder":         spec.Folder,
			"fileNamePrefix": spec.FilePrefix,
		},
		MaxPixels: "1e13",
	}

	var op operation
	resp, err := e.client.R().
		SetContext(ctx).
		SetAuthToken(project.Token).
		SetBody(body).
		SetResult(&op).
		Post(fmt.Sprintf("%s/projects/%s/image:export", e.baseURL, project.ProjectID))
	if err != nil {
		return nil, apperr.External("earthengine", fmt.Errorf("create export: %w", err))
	}
	if resp.IsError() {
		return nil, apperr.Externalf("earthengine", "create export returned status %d: %s",
			resp.StatusCode(), resp.String())
	}
	if op.Name == "" {
		return nil, apperr.Externalf("earthengine", "create export returned no operation name")
	}

	e.logger.Debug("earthengine: export created",
		slog.String("operation", op.Name),
		slog.String("state", op.Metadata.State))
	return &Job{
		Handle:      op.Name,
		State:       mapState(op.Metadata.State, op.Done, op.Error != nil),
		Description: spec.Description,
	}, nil
}

// PollJob reads the live state of the operation behind handle.
func (e *EarthEngineJobs) PollJob(ctx context.Context, project ProjectContext, handle string) (Status, error) {
	var op operation
	resp, err := e.client.R().
		SetContext(ctx).
		SetAuthToken(project.Token).
		SetResult(&op).
		Get(fmt.Sprintf("%s/%s", e.baseURL, handle))
	if err != nil {
		return StatusUnknown, apperr.External("earthengine", fmt.Errorf("poll job: %w", err))
	}
	if resp.StatusCode() == 404 {
		return StatusUnknown, fmt.Errorf("export job %s: %w", handle, apperr.ErrNotFound)
	}
	if resp.IsError() {
		return StatusUnknown, apperr.Externalf("earthengine", "poll job returned status %d: %s",
			resp.StatusCode(), resp.String())
	}
	return mapState(op.Metadata.State, op.Done, op.Error != nil), nil
}

// mapState folds Earth Engine operation states into the dispatcher's status
// enum. Anything unrecognized reports unknown rather than guessing.
func mapState(state string, done, failed bool) Status {
	switch state {
	case "PENDING", "READY":
		return StatusPending
	case "RUNNING", "CANCELLING":
		return StatusRunning
	case "SUCCEEDED", "COMPLETED":
		return StatusCompleted
	case "FAILED", "CANCELLED":
		return StatusFailed
	}
	if done {
		if failed {
			return StatusFailed
		}
		return StatusCompleted
	}
	return StatusUnknown
}
