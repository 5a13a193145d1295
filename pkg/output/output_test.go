package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", Table, false},
		{"", Table, false},
		{"JSON", JSON, false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseFormat(%q) expected error, got nil", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseFormat(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]string{"name": "lodash"}
	if err := EncodeJSON(&buf, data); err != nil {
		t.Fatalf("EncodeJSON() error: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if decoded["name"] != "lodash" {
		t.Fatalf("decoded[name] = %q, want lodash", decoded["name"])
	}
}

func TestKeyValueBuilder(t *testing.T) {
	kv := NewKeyValue("Cache Status").Add("tier", "local").AddSection().Add("hits", "12")
	if len(kv.data.Pairs) != 3 {
		t.Fatalf("expected 3 pairs (including section break), got %d", len(kv.data.Pairs))
	}
	if kv.data.Pairs[0].Key != "tier" || kv.data.Pairs[0].Value != "local" {
		t.Fatalf("unexpected first pair: %+v", kv.data.Pairs[0])
	}
}

func TestTableBuilder(t *testing.T) {
	tbl := NewTable("NAME", "COMMIT").AddRow("lodash", "abc123")
	if len(tbl.data.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tbl.data.Rows))
	}
	if tbl.data.Headers[0] != "NAME" {
		t.Fatalf("unexpected header: %v", tbl.data.Headers)
	}
}
