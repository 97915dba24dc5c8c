package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type quotaRow struct {
	ID        string `json:"id"`
	FaceValue uint64 `json:"face_value" table:"VALUE"`
	Envelope  string `json:"envelope" table:",wide"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json: wrong formatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml: wrong formatter")
	}
	tf, ok := NewFormatter("other", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Errorf("fallback = %#v, want wide table", tf)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, quotaRow{ID: "ab", FaceValue: 7}); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["id"] != "ab" || got["face_value"] != float64(7) {
		t.Errorf("got %v", got)
	}
	if !strings.Contains(buf.String(), "\n  \"id\"") {
		t.Errorf("output not indented:\n%s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := []quotaRow{{ID: "ab", FaceValue: 7, Envelope: "03ab"}}
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatal(err)
	}
	want := "- id: ab\n  face_value: 7\n  envelope: 03ab\n"
	if buf.String() != want {
		t.Errorf("yaml =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestYAMLFormatter_Nested(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"authority": map[string]string{"code": "qa1xyz"}}
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "authority:\n  code: qa1xyz\n" {
		t.Errorf("yaml =\n%s", buf.String())
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	rows := []*quotaRow{
		{ID: "aa", FaceValue: 100, Envelope: "03aa"},
		{ID: "bb", FaceValue: 5},
	}

	var narrow bytes.Buffer
	if err := (&TableFormatter{}).Format(&narrow, rows); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(narrow.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), narrow.String())
	}
	if strings.Fields(lines[0])[0] != "ID" || strings.Contains(lines[0], "ENVELOPE") {
		t.Errorf("narrow header = %q", lines[0])
	}
	if f := strings.Fields(lines[1]); f[0] != "aa" || f[1] != "100" {
		t.Errorf("row = %q", lines[1])
	}

	var wide bytes.Buffer
	(&TableFormatter{Wide: true}).Format(&wide, rows)
	lines = strings.Split(strings.TrimSpace(wide.String()), "\n")
	if got := strings.Fields(lines[0]); len(got) != 3 || got[2] != "ENVELOPE" {
		t.Errorf("wide header = %v", got)
	}
	if got := strings.Fields(lines[2]); got[2] != "-" {
		t.Errorf("empty cell = %q, want -", got[2])
	}
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{NoHeaders: true}).Format(&buf, []string{"x", "y"})
	if buf.String() != "x\ny\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	type record struct {
		State     string          `json:"state"`
		CreatedAt time.Time       `json:"create_time"`
		Explain   json.RawMessage `json:"explain_info"`
		Hidden    string          `table:"-"`
	}
	var buf bytes.Buffer
	rec := record{
		State:     "issued",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Explain:   json.RawMessage(`{"face_value":1}`),
		Hidden:    "nope",
	}
	if err := (&TableFormatter{}).Format(&buf, rec); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"STATE", "issued", "2026-01-02T03:04:05Z", `{"face_value":1}`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "nope") {
		t.Error("hidden field rendered")
	}
}

func TestTableFormatter_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{NoHeaders: true}).Format(&buf, map[string]int{"b": 2, "a": 1})
	if got := strings.Fields(buf.String()); strings.Join(got, " ") != "a 1 b 2" {
		t.Errorf("got %v", got)
	}
}

func TestTableFormatter_FallbackJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, 42); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "42" {
		t.Errorf("got %q", buf.String())
	}
}

func TestTable_Render(t *testing.T) {
	tbl := &Table{Headers: []string{"CODE", "PUBLIC_KEY"}}
	tbl.AddRow("qa1abc", "02ff")
	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "CODE    PUBLIC_KEY\nqa1abc  02ff\n" {
		t.Errorf("got %q", buf.String())
	}
}
