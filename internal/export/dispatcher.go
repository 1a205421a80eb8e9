package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/pkg/geojson"
)

// Defaults applied when a request leaves format or scale unset.
const (
	DefaultFormat = FormatGeoTIFF
	DefaultScale  = 1000
	DefaultFolder = "GEE-Downloads"
)

const dateLayout = "2006-01-02"

// Request is one user-submitted export. Format, Scale, Destination, and
// Folder may be left empty/zero to take the defaults.
type Request struct {
	DatasetID   string          `json:"dataset_id"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Band        string          `json:"band"`
	Region      json.RawMessage `json:"region"`
	Format      string          `json:"format"`
	Scale       float64         `json:"scale"`
	Destination string          `json:"destination"`
	Folder      string          `json:"folder"`
	FilePrefix  string          `json:"file_prefix"`
}

func (r *Request) applyDefaults() {
	if r.Format == "" {
		r.Format = DefaultFormat
	}
	if r.Scale == 0 {
		r.Scale = DefaultScale
	}
	if r.Destination == "" {
		r.Destination = DestinationDrive
	}
	if r.Folder == "" {
		r.Folder = DefaultFolder
	}
}

func (r *Request) validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.DatasetID, validation.Required),
		validation.Field(&r.StartDate, validation.Required),
		validation.Field(&r.EndDate, validation.Required),
		validation.Field(&r.Band, validation.Required),
		validation.Field(&r.Region, validation.Required),
		validation.Field(&r.Format, validation.In(FormatGeoTIFF, FormatTFRecord)),
		validation.Field(&r.Destination, validation.In(DestinationDrive, DestinationDownload)),
		validation.Field(&r.Scale, validation.Min(0.0).Exclusive()),
	)
	if err != nil {
		return apperr.InvalidArgumentf("%s", err.Error())
	}
	return nil
}

// Dispatcher validates export requests against the metadata store and hands
// them to the job system. It keeps no state about job progress: status reads
// go straight through to the external system.
type Dispatcher struct {
	store  store.MetadataStore
	jobs   JobSystem
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given store and job system.
func NewDispatcher(st store.MetadataStore, jobs JobSystem, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: st, jobs: jobs, logger: logger}
}

// StartExport validates req and creates one export job. Validation failures
// return ErrInvalidArgument (or ErrNotFound for a missing dataset) before any
// external call is made; job creation is never retried here, so a failure
// cannot silently duplicate a job.
func (d *Dispatcher) StartExport(ctx context.Context, project ProjectContext, req Request) (*Job, error) {
	req.applyDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, apperr.InvalidArgumentf("start_date %q is not a YYYY-MM-DD date", req.StartDate)
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, apperr.InvalidArgumentf("end_date %q is not a YYYY-MM-DD date", req.EndDate)
	}
	if end.Before(start) {
		return nil, apperr.InvalidArgumentf("end_date %s is before start_date %s", req.EndDate, req.StartDate)
	}

	region, err := geojson.ParseRegion(req.Region)
	if err != nil {
		return nil, apperr.InvalidArgumentf("region: %s", err.Error())
	}

	ds, err := d.store.GetDataset(req.DatasetID)
	if err != nil {
		return nil, err
	}
	if len(ds.Bands) > 0 && !ds.HasBand(req.Band) {
		return nil, apperr.InvalidArgumentf("dataset %s has no band %q", req.DatasetID, req.Band)
	}
	if err := checkTemporalRange(ds, start, end); err != nil {
		return nil, err
	}

	spec := JobSpec{
		DatasetID:   req.DatasetID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Band:        req.Band,
		Region:      region,
		Format:      req.Format,
		Scale:       req.Scale,
		Destination: req.Destination,
		Folder:      req.Folder,
		Description: exportDescription(req),
	}
	spec.FilePrefix = req.FilePrefix
	if spec.FilePrefix == "" {
		spec.FilePrefix = spec.Description
	}

	job, err := d.jobs.CreateExportJob(ctx, project, spec)
	if err != nil {
		if apperr.IsExternal(err) {
			return nil, err
		}
		return nil, apperr.External("earthengine", err)
	}
	d.logger.Info("export: job started",
		slog.String("dataset", req.DatasetID),
		slog.String("band", req.Band),
		slog.String("handle", job.Handle))
	return job, nil
}

// GetStatus is a stateless read-through to the external job system. Nothing is
// cached or persisted, so callers can poll at their own cadence.
func (d *Dispatcher) GetStatus(ctx context.Context, project ProjectContext, handle string) (Status, error) {
	if strings.TrimSpace(handle) == "" {
		return StatusUnknown, apperr.InvalidArgumentf("job handle is required")
	}
	status, err := d.jobs.PollJob(ctx, project, handle)
	if err != nil {
		if apperr.IsExternal(err) || errors.Is(err, apperr.ErrNotFound) {
			return StatusUnknown, err
		}
		return StatusUnknown, apperr.External("earthengine", err)
	}
	return status, nil
}

// checkTemporalRange enforces the dataset's known temporal bounds. An unknown
// bound imposes no constraint.
func checkTemporalRange(ds *store.DatasetRecord, start, end time.Time) error {
	if ds.StartDate != "" {
		if min, err := time.Parse(dateLayout, ds.StartDate); err == nil && start.Before(min) {
			return apperr.InvalidArgumentf("start_date %s precedes dataset range start %s",
				start.Format(dateLayout), ds.StartDate)
		}
	}
	if ds.EndDate != "" {
		if max, err := time.Parse(dateLayout, ds.EndDate); err == nil && end.After(max) {
			return apperr.InvalidArgumentf("end_date %s exceeds dataset range end %s",
				end.Format(dateLayout), ds.EndDate)
		}
	}
	return nil
}

// exportDescription names the job the way operators will see it in the task
// list: last id segment, band, and date range.
func exportDescription(req Request) string {
	id := req.DatasetID
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return fmt.Sprintf("%s_%s_%s_%s", id, req.Band, req.StartDate, req.EndDate)
}
