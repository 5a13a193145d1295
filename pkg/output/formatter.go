package output

import (
	"fmt"
	"os"
	"strings"
)

// Format represents an output format type
type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
)

// ParseFormat parses a format string into a Format type
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return Table, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("invalid format: %s (valid: table, json)", s)
	}
}

// FormatOutput renders data in the requested format, dispatching to the
// type-specific renderer (TableData, KeyValueData) or falling back to JSON
// for anything else.
func FormatOutput(data interface{}, format Format) error {
	switch v := data.(type) {
	case *TableData:
		return formatTableData(v, format)
	case *KeyValueData:
		return formatKeyValueData(v, format)
	default:
		return formatGeneric(data, format)
	}
}

func formatGeneric(data interface{}, format Format) error {
	switch format {
	case JSON, Table:
		return EncodeJSON(os.Stdout, data)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
