package output

import (
	"encoding/json"
	"io"
)

// EncodeJSON encodes data as JSON to the writer
func EncodeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
