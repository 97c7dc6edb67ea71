package common

import (
	"io"

	"github.com/goccy/go-json"
)

// WriteJSON writes results as one JSON array.
func WriteJSON(w io.Writer, results []*Result, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if results == nil {
		results = []*Result{}
	}
	return enc.Encode(results)
}
