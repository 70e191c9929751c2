package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"paper.pdf", true},
		{"notes.MD", true},
		{"report.docx", true},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.filename); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestParse_TextLocal(t *testing.T) {
	c := NewClient("http://unreachable.invalid", "")
	got, err := c.Parse(context.Background(), "notes.txt", []byte("hello\n\nworld"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Markdown != "hello\n\nworld" {
		t.Errorf("markdown = %q", got.Markdown)
	}
	if len(got.Blocks) != 0 {
		t.Errorf("text files must take the markdown degrade path, got blocks %v", got.Blocks)
	}
}

func TestParse_RejectsUnsupportedAndEmpty(t *testing.T) {
	c := NewClient("http://unreachable.invalid", "")
	if _, err := c.Parse(context.Background(), "binary.exe", []byte("x")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := c.Parse(context.Background(), "doc.pdf", nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestParse_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart upload, got %s", r.Header.Get("Content-Type"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content_list": []map[string]any{
				{"type": "title", "text": "Intro", "page_idx": 0},
			},
			"engine":  "layout-parser",
			"version": "2.1",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	got, err := c.Parse(context.Background(), "doc.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Blocks) != 1 || got.Engine != "layout-parser" {
		t.Errorf("result = %+v", got)
	}
}

func TestParse_RemoteEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content_list": []any{}, "markdown": "  "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Parse(context.Background(), "doc.pdf", []byte("%PDF")); err == nil {
		t.Fatal("expected error for empty parser output")
	}
}
