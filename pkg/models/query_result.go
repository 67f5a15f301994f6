package models

import "time"

// QueryResult is the uniform container for executed query output. It is
// immutable once constructed.
type QueryResult struct {
	Columns         []string  `json:"columns"`
	Rows            [][]any   `json:"rows"`
	RowCount        int       `json:"row_count"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	SQL             string    `json:"sql"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewQueryResult builds a result from raw rows. RowCount is always
// len(rows).
func NewQueryResult(columns []string, rows [][]any, executionTimeMS int64, sql string) *QueryResult {
	return &QueryResult{
		Columns:         columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMS: executionTimeMS,
		SQL:             sql,
		CreatedAt:       time.Now().UTC(),
	}
}

// ResultPage is one page of a paginated result.
type ResultPage struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Page    int      `json:"page"`
	Size    int      `json:"size"`
	Total   int      `json:"total"`
	Pages   int      `json:"pages"`
}

// Page slices the result rows for a 1-based page of the given size. Pages
// beyond the end return empty row sets with the same pagination metadata.
func (r *QueryResult) Page(page, size int) *ResultPage {
	if page < 1 {
		page = 1
	}

	if size < 1 {
		size = 1
	}

	start := (page - 1) * size
	end := start + size

	if start > len(r.Rows) {
		start = len(r.Rows)
	}

	if end > len(r.Rows) {
		end = len(r.Rows)
	}

	return &ResultPage{
		Columns: r.Columns,
		Rows:    r.Rows[start:end],
		Page:    page,
		Size:    size,
		Total:   r.RowCount,
		Pages:   (r.RowCount + size - 1) / size,
	}
}
