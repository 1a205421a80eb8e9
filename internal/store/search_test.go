package store

import (
	"errors"
	"testing"

	"github.com/starford/raido/internal/apperr"
)

func searchDB(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)
	if err := db.UpsertBatch(sampleRecords()); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	return db
}

func itemIDs(res *SearchResult) []string {
	ids := make([]string, len(res.Items))
	for i, d := range res.Items {
		ids[i] = d.ID
	}
	return ids
}

func TestSearchTextMatchesAnyField(t *testing.T) {
	db := searchDB(t)

	// "land" appears in both records (title/keywords), case-insensitively.
	res, err := db.Search(SearchParams{Query: "LAND", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount != 2 {
		t.Fatalf("total = %d, want 2 (got %v)", res.TotalCount, itemIDs(res))
	}

	// Substring of the id only.
	res, err = db.Search(SearchParams{Query: "mcd12q1", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "MODIS/006/MCD12Q1" {
		t.Errorf("id search got %v", itemIDs(res))
	}

	// Description-only term.
	res, err = db.Search(SearchParams{Query: "reflectance imagery", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "LANDSAT/LC08/C02/T1_L2" {
		t.Errorf("description search got %v", itemIDs(res))
	}
}

func TestSearchTagsAreIntersected(t *testing.T) {
	db := searchDB(t)

	res, err := db.Search(SearchParams{Tags: []string{"land"}, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 2 {
		t.Errorf("tag 'land' got %v", itemIDs(res))
	}

	res, err = db.Search(SearchParams{Tags: []string{"land", "imagery"}, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "LANDSAT/LC08/C02/T1_L2" {
		t.Errorf("tags land+imagery got %v", itemIDs(res))
	}

	res, err = db.Search(SearchParams{Tags: []string{"land", "ocean"}, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 0 {
		t.Errorf("impossible tag combo got %v", itemIDs(res))
	}
}

func TestSearchTagsCaseVariantRows(t *testing.T) {
	db := searchDB(t)

	// Tag names are unique only by exact spelling, so "Land" and "land" can
	// coexist as separate vocabulary rows. A dataset carrying both must still
	// count as matching the single tag "land".
	err := db.UpsertBatch([]DatasetRecord{
		{ID: "COPERNICUS/S2", Title: "Sentinel-2", Tags: []string{"Land", "land"}},
	})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	res, err := db.Search(SearchParams{Tags: []string{"land"}, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 3 {
		t.Errorf("tag 'land' got %v, want Sentinel-2 included", itemIDs(res))
	}

	res, err = db.Search(SearchParams{Tags: []string{"land", "imagery"}, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "LANDSAT/LC08/C02/T1_L2" {
		t.Errorf("tags land+imagery got %v", itemIDs(res))
	}
}

func TestSearchTextAndTagsCombine(t *testing.T) {
	db := searchDB(t)

	// "land" matches both by text, but only Landsat 8 carries "imagery".
	res, err := db.Search(SearchParams{Query: "land", Tags: []string{"imagery"}, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 1 || res.Items[0].ID != "LANDSAT/LC08/C02/T1_L2" {
		t.Errorf("combined filter got %v", itemIDs(res))
	}
}

func TestSearchPaginationIsStable(t *testing.T) {
	db := searchDB(t)

	p1, err := db.Search(SearchParams{Sort: SortTitle, Page: 1, PerPage: 1})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := db.Search(SearchParams{Sort: SortTitle, Page: 2, PerPage: 1})
	if err != nil {
		t.Fatal(err)
	}

	if p1.TotalPages != 2 || p2.TotalPages != 2 {
		t.Fatalf("total pages = %d/%d, want 2", p1.TotalPages, p2.TotalPages)
	}
	if len(p1.Items) != 1 || p1.Items[0].Title != "Landsat 8" {
		t.Errorf("page 1 = %v", itemIDs(p1))
	}
	if len(p2.Items) != 1 || p2.Items[0].Title != "MODIS Land Cover" {
		t.Errorf("page 2 = %v", itemIDs(p2))
	}
	if p1.Items[0].ID == p2.Items[0].ID {
		t.Error("duplicate item across pages")
	}
}

func TestSearchPageBeyondEnd(t *testing.T) {
	db := searchDB(t)

	res, err := db.Search(SearchParams{Page: 50, PerPage: 10})
	if err != nil {
		t.Fatalf("page beyond end should not error: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("items = %v, want empty", itemIDs(res))
	}
	if res.TotalCount != 2 || res.CurrentPage != 50 {
		t.Errorf("total = %d, page = %d", res.TotalCount, res.CurrentPage)
	}
}

func TestSearchSortByProvider(t *testing.T) {
	db := searchDB(t)

	res, err := db.Search(SearchParams{Sort: SortProvider, Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 || res.Items[0].Provider != "NASA LP DAAC" || res.Items[1].Provider != "USGS" {
		t.Errorf("provider order = %v", itemIDs(res))
	}
}

func TestSearchInvalidParams(t *testing.T) {
	db := searchDB(t)

	cases := []SearchParams{
		{Page: 0, PerPage: 10},
		{Page: 1, PerPage: 0},
		{Page: -1, PerPage: 10},
		{Page: 1, PerPage: 10, Sort: "relevance"},
	}
	for _, p := range cases {
		if _, err := db.Search(p); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("Search(%+v) err = %v, want ErrInvalidArgument", p, err)
		}
	}
}

func TestSearchLikeMetacharactersAreLiteral(t *testing.T) {
	db := searchDB(t)

	res, err := db.Search(SearchParams{Query: "100%", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount != 0 {
		t.Errorf("%%-query matched %v", itemIDs(res))
	}
}
