package batch

import (
	"encoding/json"
	"fmt"

	"github.com/DishanH/Pali-sub001/internal/extract"
)

// ExchangeUnit is the wire form of one unit in the batch exchange format.
// On export targetFields carries an empty string per requested language; the
// collaborator fills the values in and the same shape comes back on import.
type ExchangeUnit struct {
	SourceText    string            `json:"sourceText"`
	TargetFields  map[string]string `json:"targetFields"`
	UsageCount    int               `json:"usageCount"`
	SampleContext string            `json:"sampleContext"`
}

// Export serialises a batch to the exchange format, ordered as extracted.
func Export(b Batch) ([]byte, error) {
	out := make([]ExchangeUnit, 0, len(b.Units))
	for _, u := range b.Units {
		fields := make(map[string]string, len(u.Missing))
		for _, lang := range u.Missing {
			fields[string(lang)] = ""
		}
		out = append(out, ExchangeUnit{
			SourceText:    u.SourceText,
			TargetFields:  fields,
			UsageCount:    u.UsageCount,
			SampleContext: string(u.Location()),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// Import parses a filled exchange document. Units whose sourceText is not in
// want are rejected: a response must answer the batch it was issued for.
func Import(data []byte, want []*extract.Unit) ([]ExchangeUnit, error) {
	var units []ExchangeUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("parsing exchange document: %w", err)
	}

	known := make(map[string]bool, len(want))
	for _, u := range want {
		known[u.SourceText] = true
	}
	for _, eu := range units {
		if !known[eu.SourceText] {
			return nil, fmt.Errorf("exchange document contains unexpected source text %.40q", eu.SourceText)
		}
	}
	return units, nil
}
