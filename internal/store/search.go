package store

import (
	"fmt"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// Sort keys accepted by Search.
const (
	SortTitle     = "title"
	SortProvider  = "provider"
	SortUpdatedAt = "updated_at"
)

// SearchParams selects, orders, and pages a subset of the dataset catalog.
type SearchParams struct {
	// Query is matched case-insensitively as a substring against id, title,
	// description, and keywords (OR across fields). Empty means no text filter.
	Query string
	// Tags restricts results to datasets carrying ALL listed tag names.
	Tags []string
	// Sort is one of SortTitle, SortProvider, SortUpdatedAt (empty = title).
	Sort string
	// Page is 1-indexed; PerPage bounds the page size. Both must be positive.
	Page    int
	PerPage int
}

// Validate checks the paging and sort parameters.
func (p *SearchParams) Validate() error {
	if p.Page < 1 {
		return apperr.InvalidArgumentf("page must be positive, got %d", p.Page)
	}
	if p.PerPage < 1 {
		return apperr.InvalidArgumentf("per_page must be positive, got %d", p.PerPage)
	}
	switch p.Sort {
	case "", SortTitle, SortProvider, SortUpdatedAt:
		return nil
	default:
		return apperr.InvalidArgumentf("unknown sort key %q", p.Sort)
	}
}

// SearchResult is one page of matching datasets.
type SearchResult struct {
	Items       []DatasetRecord
	TotalCount  int
	TotalPages  int
	CurrentPage int
}

// Search runs the combined text+tag filter with stable ordering and offset
// pagination. The sort key is ascending with id as tie-break, so a stable
// dataset never yields duplicate or missing items across pages. A page past
// the end returns an empty item list, not an error.
func (db *DB) Search(p SearchParams) (*SearchResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	where, args := buildSearchFilter(p)

	var total int
	countQ := `SELECT count(*) FROM datasets d` + where
	if err := db.conn.QueryRow(countQ, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("store: search count: %w", err)
	}

	res := &SearchResult{
		Items:       []DatasetRecord{},
		TotalCount:  total,
		TotalPages:  (total + p.PerPage - 1) / p.PerPage,
		CurrentPage: p.Page,
	}
	if total == 0 {
		return res, nil
	}

	orderBy := map[string]string{
		"":            "d.title COLLATE NOCASE",
		SortTitle:     "d.title COLLATE NOCASE",
		SortProvider:  "d.provider COLLATE NOCASE",
		SortUpdatedAt: "d.updated_at",
	}[p.Sort]

	pageQ := `SELECT ` + datasetColumns + ` FROM datasets d` + where +
		` ORDER BY ` + orderBy + ` ASC, d.id ASC LIMIT ? OFFSET ?`
	pageArgs := append(args, p.PerPage, (p.Page-1)*p.PerPage)

	rows, err := db.conn.Query(pageQ, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: search page: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan search row: %w", err)
		}
		res.Items = append(res.Items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Enrich the page items only; the filter never needs band data.
	for i := range res.Items {
		id := res.Items[i].ID
		if res.Items[i].Bands, err = db.datasetBands(id); err != nil {
			return nil, err
		}
		if res.Items[i].Tags, err = db.datasetTags(id); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// buildSearchFilter assembles the WHERE clause shared by the count and page
// queries: AND of the text predicate (OR across fields) and the tag predicate
// (intersection of tag membership).
func buildSearchFilter(p SearchParams) (string, []any) {
	var conds []string
	var args []any

	if q := strings.TrimSpace(p.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		conds = append(conds,
			`(d.id LIKE ? ESCAPE '\' OR d.title LIKE ? ESCAPE '\' OR d.description LIKE ? ESCAPE '\' OR d.keywords LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}

	tags := normalizeTags(p.Tags)
	if len(tags) > 0 {
		placeholders := strings.Repeat("?, ", len(tags))
		conds = append(conds, `d.id IN (
			SELECT dt.dataset_id FROM dataset_tags dt
			JOIN tags t ON t.id = dt.tag_id
			WHERE lower(t.name) IN (`+placeholders[:len(placeholders)-2]+`)
			GROUP BY dt.dataset_id
			HAVING count(DISTINCT lower(t.name)) = ?
		)`)
		for _, t := range tags {
			args = append(args, t)
		}
		args = append(args, len(tags))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// normalizeTags lowercases, trims, and dedupes tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// escapeLike escapes LIKE metacharacters so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
