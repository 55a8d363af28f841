package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewUTF8Reader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "utf8 bom stripped",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("Identifier,Title")...),
			expected: "Identifier,Title",
		},
		{
			name:     "no bom",
			input:    []byte("Identifier,Title"),
			expected: "Identifier,Title",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte("caf\xe9,1"),
			expected: "caf\uFFFD,1",
		},
		{
			name:     "multibyte preserved",
			input:    []byte("Größe,Ñandú"),
			expected: "Größe,Ñandú",
		},
		{
			name:     "utf16 little endian with bom",
			input:    []byte{0xFF, 0xFE, 'S', 0, 'K', 0, 'U', 0},
			expected: "SKU",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUTF8Reader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("NewUTF8Reader() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"Identifier,Title,Description,Price", ','},
		{"Identifier;Title;Description;Price", ';'},
		{"Identifier;,Title;,Description;,Price;", ','},
		{"Identifier", ','},
	}

	for _, tt := range tests {
		if got := SniffDelimiter(tt.line); got != tt.want {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestNewCSVReader_Semicolons(t *testing.T) {
	input := "\xEF\xBB\xBFIdentifier;Title\nA-1;Widget\nA-2;\"Quoted; title\"\n"
	cr := newCSVReader(strings.NewReader(input))

	records, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0][0] != "Identifier" {
		t.Errorf("header[0] = %q, want %q", records[0][0], "Identifier")
	}
	if records[2][1] != "Quoted; title" {
		t.Errorf("records[2][1] = %q, want %q", records[2][1], "Quoted; title")
	}
}

func TestNewCSVReader_RaggedRows(t *testing.T) {
	cr := newCSVReader(strings.NewReader("a,b,c\n1\n1,2,3,4\n"))

	records, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records[1]) != 1 || len(records[2]) != 4 {
		t.Errorf("ragged rows not preserved: %v", records)
	}
}
