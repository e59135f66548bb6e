package mcp

import (
	"github.com/Aman-CERP/recdex/internal/record"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"bleve query string, e.g. 'level:ERROR props.user_id:7'; '*' matches everything"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default from configuration"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"results in rank order"`
}

// SearchResultOutput is one ranked record.
type SearchResultOutput struct {
	Fingerprint string           `json:"fingerprint" jsonschema:"shape key of the index holding the record"`
	Address     string           `json:"address" jsonschema:"location of the record within its index"`
	Score       float64          `json:"score" jsonschema:"relevance score"`
	Fields      map[string][]any `json:"fields,omitempty" jsonschema:"dotted field path to stored values"`
	Error       string           `json:"error,omitempty" jsonschema:"set when the hit could not be loaded"`
}

// IndexRecordInput defines the input schema for the index_record tool.
type IndexRecordInput struct {
	Record map[string]any `json:"record" jsonschema:"the JSON object to index"`
}

// IndexRecordOutput reports where a record was stored.
type IndexRecordOutput struct {
	Fingerprint string `json:"fingerprint"`
	Address     string `json:"address"`
}

// IndexStatusInput defines the input for the index_status tool (no params).
type IndexStatusInput struct{}

// IndexStatusOutput describes every index.
type IndexStatusOutput struct {
	Indexes   int               `json:"indexes"`
	Documents uint64            `json:"documents"`
	DataDir   string            `json:"data_dir,omitempty"`
	PerIndex  []IndexInfoOutput `json:"per_index"`
}

// IndexInfoOutput describes one index.
type IndexInfoOutput struct {
	Fingerprint string               `json:"fingerprint"`
	Documents   uint64               `json:"documents"`
	Segment     uint64               `json:"segment"`
	Schema      []record.SchemaField `json:"schema"`
}

// ToSearchResultOutput converts a searcher result to the tool output format.
func ToSearchResultOutput(r searcher.Result) SearchResultOutput {
	if r.Err != nil {
		return SearchResultOutput{Error: r.Err.Error()}
	}
	d := r.Document
	return SearchResultOutput{
		Fingerprint: record.FormatFingerprint(d.Fingerprint),
		Address:     d.Address.String(),
		Score:       d.Score,
		Fields:      d.Fields,
	}
}
