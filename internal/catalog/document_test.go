package catalog

import (
	"testing"
)

func TestMapDocumentFieldPolicy(t *testing.T) {
	d := MapDocument(&Document{
		ID:         "  ECMWF/ERA5/DAILY ",
		Title:      "ERA5 Daily",
		Provider:   "ECMWF",
		Tags:       "climate, era5, Climate, ,reanalysis",
		StartDate:  "1979-01-02",
		EndDate:    "2020-07-09",
		TermsOfUse: "https://example.org/terms",
	}, discardLogger())

	if d.ID != "ECMWF/ERA5/DAILY" {
		t.Errorf("id = %q", d.ID)
	}
	if d.TermsURL != "https://example.org/terms" {
		t.Errorf("terms_url = %q", d.TermsURL)
	}
	// Tags trimmed, empties dropped, case-insensitive dupes collapsed.
	if len(d.Tags) != 3 {
		t.Errorf("tags = %v", d.Tags)
	}
	if d.StartDate != "1979-01-02" || d.EndDate != "2020-07-09" {
		t.Errorf("dates = %q..%q", d.StartDate, d.EndDate)
	}
}

func TestMapDocumentDropsBadDates(t *testing.T) {
	d := MapDocument(&Document{ID: "X", StartDate: "sometime in 1999", EndDate: "2020-01-01"}, discardLogger())
	if d.StartDate != "" {
		t.Errorf("unparsable start_date kept: %q", d.StartDate)
	}
	if d.EndDate != "2020-01-01" {
		t.Errorf("end_date = %q", d.EndDate)
	}

	// Inverted range is dropped entirely rather than stored.
	d = MapDocument(&Document{ID: "X", StartDate: "2021-01-01", EndDate: "2020-01-01"}, discardLogger())
	if d.StartDate != "" || d.EndDate != "" {
		t.Errorf("inverted range kept: %q..%q", d.StartDate, d.EndDate)
	}
}

func TestMapDocumentBands(t *testing.T) {
	lo, hi := 5.0, 1.0
	d := MapDocument(&Document{
		ID: "X",
		Bands: []BandDocument{
			{ID: "B1", Units: "K", DataType: "float"},
			{ID: ""},                                    // unnamed: dropped
			{ID: "B1"},                                  // duplicate: dropped
			{ID: "B2", MinValue: &lo, MaxValue: &hi},    // inverted range: nulled
		},
	}, discardLogger())

	if len(d.Bands) != 2 {
		t.Fatalf("bands = %+v", d.Bands)
	}
	if d.Bands[0].Name != "B1" || d.Bands[0].Units != "K" {
		t.Errorf("band 0 = %+v", d.Bands[0])
	}
	if d.Bands[1].MinValue != nil || d.Bands[1].MaxValue != nil {
		t.Errorf("inverted band range kept: %+v", d.Bands[1])
	}
}
