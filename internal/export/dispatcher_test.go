package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubJobs records every external call so tests can assert fail-fast behavior.
type stubJobs struct {
	creates    int
	polls      int
	createErr  error
	pollStatus Status
	lastSpec   JobSpec
}

func (s *stubJobs) CreateExportJob(_ context.Context, _ ProjectContext, spec JobSpec) (*Job, error) {
	s.creates++
	s.lastSpec = spec
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &Job{Handle: "projects/test/operations/OP1", State: StatusPending, Description: spec.Description}, nil
}

func (s *stubJobs) PollJob(context.Context, ProjectContext, string) (Status, error) {
	s.polls++
	if s.pollStatus == "" {
		return StatusRunning, nil
	}
	return s.pollStatus, nil
}

func testEnv(t *testing.T) (*Dispatcher, *stubJobs) {
	t.Helper()
	f, err := os.CreateTemp("", "raido-export-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := store.Open(f.Name())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.UpsertBatch([]store.DatasetRecord{
		{
			ID:        "ECMWF/ERA5/DAILY",
			Title:     "ERA5 Daily",
			StartDate: "1979-01-02",
			EndDate:   "2020-07-09",
			Bands: []store.Band{
				{Name: "minimum_2m_air_temperature", Units: "K"},
				{Name: "total_precipitation", Units: "m"},
			},
		},
		{ID: "NO/BANDS/KNOWN", Title: "Bandless"},
	})
	if err != nil {
		t.Fatal(err)
	}

	jobs := &stubJobs{}
	return NewDispatcher(db, jobs, discardLogger()), jobs
}

func validRequest() Request {
	return Request{
		DatasetID: "ECMWF/ERA5/DAILY",
		StartDate: "2000-01-01",
		EndDate:   "2000-02-01",
		Band:      "minimum_2m_air_temperature",
		Region:    json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,0]]]}`),
	}
}

func TestStartExportHappyPath(t *testing.T) {
	d, jobs := testEnv(t)

	job, err := d.StartExport(context.Background(), ProjectContext{ProjectID: "p"}, validRequest())
	if err != nil {
		t.Fatalf("StartExport: %v", err)
	}
	if job.Handle == "" || job.State != StatusPending {
		t.Errorf("job = %+v", job)
	}
	if jobs.creates != 1 {
		t.Errorf("creates = %d", jobs.creates)
	}
	// Defaults applied.
	if jobs.lastSpec.Format != FormatGeoTIFF || jobs.lastSpec.Scale != 1000 || jobs.lastSpec.Destination != DestinationDrive {
		t.Errorf("spec defaults = %+v", jobs.lastSpec)
	}
	if !strings.Contains(jobs.lastSpec.Description, "DAILY_minimum_2m_air_temperature") {
		t.Errorf("description = %q", jobs.lastSpec.Description)
	}
}

func TestStartExportValidationFailsFast(t *testing.T) {
	d, jobs := testEnv(t)

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"end before start", func(r *Request) { r.StartDate, r.EndDate = "2000-02-01", "2000-01-01" }},
		{"bad start date", func(r *Request) { r.StartDate = "01/02/2000" }},
		{"missing band", func(r *Request) { r.Band = "" }},
		{"unknown band", func(r *Request) { r.Band = "no_such_band" }},
		{"negative scale", func(r *Request) { r.Scale = -5 }},
		{"unknown format", func(r *Request) { r.Format = "PNG" }},
		{"unknown destination", func(r *Request) { r.Destination = "ftp" }},
		{"malformed region", func(r *Request) { r.Region = json.RawMessage(`{"type":"Point","coordinates":[0,0]}`) }},
		{"start before dataset range", func(r *Request) { r.StartDate = "1950-01-01" }},
		{"end after dataset range", func(r *Request) { r.EndDate = "2030-01-01" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := d.StartExport(context.Background(), ProjectContext{ProjectID: "p"}, req)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
	if jobs.creates != 0 {
		t.Fatalf("invalid requests reached the external system %d times", jobs.creates)
	}
}

func TestStartExportUnknownDataset(t *testing.T) {
	d, jobs := testEnv(t)

	req := validRequest()
	req.DatasetID = "DOES/NOT/EXIST"
	_, err := d.StartExport(context.Background(), ProjectContext{ProjectID: "p"}, req)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if jobs.creates != 0 {
		t.Error("missing dataset still reached the external system")
	}
}

func TestStartExportUnknownRangeAndBandsUnconstrained(t *testing.T) {
	d, _ := testEnv(t)

	// Dataset with no known bands and no known temporal range: both checks
	// impose no constraint.
	req := validRequest()
	req.DatasetID = "NO/BANDS/KNOWN"
	req.Band = "anything"
	req.StartDate, req.EndDate = "1800-01-01", "2100-01-01"
	if _, err := d.StartExport(context.Background(), ProjectContext{ProjectID: "p"}, req); err != nil {
		t.Fatalf("StartExport: %v", err)
	}
}

func TestStartExportExternalFailureSurfaces(t *testing.T) {
	d, jobs := testEnv(t)
	jobs.createErr = apperr.Externalf("earthengine", "quota exceeded")

	_, err := d.StartExport(context.Background(), ProjectContext{ProjectID: "p"}, validRequest())
	if !apperr.IsExternal(err) {
		t.Fatalf("err = %v, want ExternalError", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("external message lost: %v", err)
	}
	// Exactly one attempt: job creation is never retried.
	if jobs.creates != 1 {
		t.Errorf("creates = %d, want 1", jobs.creates)
	}
}

func TestGetStatusReadsThrough(t *testing.T) {
	d, jobs := testEnv(t)
	jobs.pollStatus = StatusCompleted

	for i := 0; i < 3; i++ {
		st, err := d.GetStatus(context.Background(), ProjectContext{ProjectID: "p"}, "projects/test/operations/OP1")
		if err != nil {
			t.Fatal(err)
		}
		if st != StatusCompleted {
			t.Errorf("status = %s", st)
		}
	}
	// Every call re-queries the external system: no local caching.
	if jobs.polls != 3 {
		t.Errorf("polls = %d, want 3", jobs.polls)
	}
}

func TestGetStatusRequiresHandle(t *testing.T) {
	d, jobs := testEnv(t)
	if _, err := d.GetStatus(context.Background(), ProjectContext{}, "  "); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if jobs.polls != 0 {
		t.Error("empty handle reached the external system")
	}
}

func TestMapState(t *testing.T) {
	cases := map[string]Status{
		"PENDING":    StatusPending,
		"READY":      StatusPending,
		"RUNNING":    StatusRunning,
		"CANCELLING": StatusRunning,
		"SUCCEEDED":  StatusCompleted,
		"COMPLETED":  StatusCompleted,
		"FAILED":     StatusFailed,
		"CANCELLED":  StatusFailed,
		"WEIRD":      StatusUnknown,
		"":           StatusUnknown,
	}
	for state, want := range cases {
		if got := mapState(state, false, false); got != want {
			t.Errorf("mapState(%q) = %s, want %s", state, got, want)
		}
	}
	if got := mapState("", true, true); got != StatusFailed {
		t.Errorf("done+failed = %s", got)
	}
	if got := mapState("", true, false); got != StatusCompleted {
		t.Errorf("done = %s", got)
	}
}
