package openapi

import "encoding/json"

// MarshalJSON serializes the document to indented JSON.
func MarshalJSON(spec *Spec) ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}
