// Package entities defines the JSON shapes written to the target directory.
// The layout follows the DBnomics source-data conventions: provider.json and
// category_tree.json at the root, then dataset.json and series.jsonl per
// dataset directory.
package entities

// Provider describes the data provider, written once as provider.json.
type Provider struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Region  string `json:"region,omitempty"`
	Website string `json:"website"`
}

// CategoryNode is one entry of category_tree.json.
type CategoryNode struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SeriesRef is the series summary embedded in dataset.json.
type SeriesRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Dataset is the content of one dataset.json.
type Dataset struct {
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	UpdatedAt string      `json:"updated_at"` // provider update date, YYYY-MM-DD
	Series    []SeriesRef `json:"series"`
}

// Observation is one (period, value) pair. Value is the normalized numeric
// text, or "NA" when the cell was empty or not a number.
type Observation struct {
	Period string `json:"period"`
	Value  string `json:"value"`
}

// Series is one line of series.jsonl.
type Series struct {
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Observations []Observation `json:"observations"`
}
