package catalogservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

func testService(t *testing.T) (*Service, store.MetadataStore) {
	t.Helper()
	db := testutil.TestStore(t)
	err := db.UpsertBatch([]store.DatasetRecord{
		{ID: "A/ONE", Title: "Alpha", Provider: "NASA", Tags: []string{"land"}},
		{ID: "B/TWO", Title: "Beta", Provider: "ESA", Tags: []string{"land", "imagery"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewService(db), db
}

func TestSearchCachesRepeatedQueries(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	params := store.SearchParams{Query: "alpha", Page: 1, PerPage: 10}

	first, err := svc.Search(ctx, params)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalCount != 1 {
		t.Fatalf("total = %d", first.TotalCount)
	}

	// Mutate the store behind the cache: the stale result should still be
	// served until invalidation.
	if err := db.UpsertBatch([]store.DatasetRecord{{ID: "C/THREE", Title: "Alpha Two"}}); err != nil {
		t.Fatal(err)
	}
	cached, err := svc.Search(ctx, params)
	if err != nil {
		t.Fatal(err)
	}
	if cached.TotalCount != 1 {
		t.Errorf("cache bypassed: total = %d", cached.TotalCount)
	}

	svc.InvalidateCache()
	fresh, err := svc.Search(ctx, params)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.TotalCount != 2 {
		t.Errorf("after invalidation total = %d, want 2", fresh.TotalCount)
	}
}

func TestSearchCacheKeyNormalization(t *testing.T) {
	a := cacheKey(store.SearchParams{Query: " Land ", Tags: []string{"Imagery", "land"}, Page: 1, PerPage: 20})
	b := cacheKey(store.SearchParams{Query: "land", Tags: []string{"land", "imagery"}, Page: 1, PerPage: 20})
	if a != b {
		t.Errorf("equivalent queries got distinct keys:\n%q\n%q", a, b)
	}
	c := cacheKey(store.SearchParams{Query: "land", Tags: []string{"land", "imagery"}, Page: 2, PerPage: 20})
	if a == c {
		t.Error("different pages share a cache key")
	}
}

func TestSearchValidatesBeforeCache(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Search(context.Background(), store.SearchParams{Page: 0, PerPage: 10})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestGetDatasetPassesThrough(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	rec, err := svc.GetDataset(ctx, "A/ONE")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Alpha" {
		t.Errorf("title = %q", rec.Title)
	}
	if _, err := svc.GetDataset(ctx, "NOPE"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListTags(t *testing.T) {
	svc, _ := testService(t)
	tags, err := svc.ListTags(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Errorf("tags = %d, want 2", len(tags))
	}
}
