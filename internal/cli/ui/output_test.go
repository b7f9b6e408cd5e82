package ui

import (
	"bytes"
	"testing"
)

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"json", "JSON", "table"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) returned error: %v", in, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"records": 3}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"records\": 3\n}\n" {
		t.Errorf("unexpected json %q", buf.String())
	}
}
