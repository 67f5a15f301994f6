package models

// Column describes one column of an accessible table. Masked columns have
// their values redacted during result processing.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Masked      bool   `json:"masked,omitempty"`
}

// Table is the schema context unit supplied by the metadata collaborator.
// It drives both SQL generation and table-level authorization.
type Table struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Columns     []Column `json:"columns"`
}
