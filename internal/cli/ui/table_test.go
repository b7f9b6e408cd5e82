package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "ID", "Name", "Version")

	table.AddRow("0x57494447", "Widget", "1")
	table.AddRow("0x454c454d", "Element", "2")
	table.AddRow("0x42544e20")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID          Name     Version") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "─") {
		t.Errorf("missing separator in %q", lines[1])
	}
	if !strings.Contains(lines[3], "Element") {
		t.Errorf("missing row data in %q", lines[3])
	}
	if lines[4] != "0x42544e20" {
		t.Errorf("short row should render without trailing padding, got %q", lines[4])
	}
	if table.Len() != 3 {
		t.Errorf("expected 3 rows, got %d", table.Len())
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output for a table without headers, got %q", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Root", "Widget")
	kv.AddRow("Objects", "4")
	kv.Render()

	want := "Root:    Widget\nObjects: 4\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Types", true)
	if buf.String() != "Types\n─────\n" {
		t.Errorf("unexpected header %q", buf.String())
	}
}
