package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Query is a fluent builder over the REST layer's filter syntax. It
// supports the subset the app needs: equality, null checks, date ranges,
// ordering and pagination.
type Query struct {
	client *Client
	table  string
	params url.Values
}

func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	q.params.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

func (q *Query) Gte(column string, value any) *Query {
	q.params.Add(column, fmt.Sprintf("gte.%v", value))
	return q
}

func (q *Query) Lte(column string, value any) *Query {
	q.params.Add(column, fmt.Sprintf("lte.%v", value))
	return q
}

func (q *Query) IsNull(column string) *Query {
	q.params.Add(column, "is.null")
	return q
}

func (q *Query) NotNull(column string) *Query {
	q.params.Add(column, "not.is.null")
	return q
}

func (q *Query) Order(column string, descending bool) *Query {
	dir := "asc"
	if descending {
		dir = "desc"
	}

	q.params.Set("order", column+"."+dir)

	return q
}

// Range selects rows [from, to] inclusive, zero-based.
func (q *Query) Range(from, to int) *Query {
	q.params.Set("offset", strconv.Itoa(from))
	q.params.Set("limit", strconv.Itoa(to-from+1))

	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

func (q *Query) path() string {
	return "/rest/v1/" + q.table
}

// Get runs the query and decodes the rows into dest.
func (q *Query) Get(ctx context.Context, dest any) error {
	return q.client.do(ctx, http.MethodGet, q.path(), q.params, nil, nil, "", dest)
}

// Single runs the query expecting exactly one row, decoded into dest.
func (q *Query) Single(ctx context.Context, dest any) error {
	headers := http.Header{"Accept": []string{"application/vnd.pgrst.object+json"}}
	return q.client.do(ctx, http.MethodGet, q.path(), q.params, headers, nil, "", dest)
}

// Insert writes one or more rows; the created rows are decoded into dest
// when dest is non-nil.
func (q *Query) Insert(ctx context.Context, rows any, dest any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}

	headers := http.Header{"Prefer": []string{"return=representation"}}

	return q.client.do(ctx, http.MethodPost, q.path(), q.params, headers, bytes.NewReader(body), "application/json", dest)
}

// Upsert writes rows, merging on conflict with existing ones.
func (q *Query) Upsert(ctx context.Context, rows any, dest any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}

	headers := http.Header{"Prefer": []string{"return=representation,resolution=merge-duplicates"}}

	return q.client.do(ctx, http.MethodPost, q.path(), q.params, headers, bytes.NewReader(body), "application/json", dest)
}

// Update patches all rows matching the accumulated filters.
func (q *Query) Update(ctx context.Context, patch any, dest any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshaling patch: %w", err)
	}

	headers := http.Header{"Prefer": []string{"return=representation"}}

	return q.client.do(ctx, http.MethodPatch, q.path(), q.params, headers, bytes.NewReader(body), "application/json", dest)
}

// Delete removes all rows matching the accumulated filters.
func (q *Query) Delete(ctx context.Context) error {
	return q.client.do(ctx, http.MethodDelete, q.path(), q.params, nil, nil, "", nil)
}
