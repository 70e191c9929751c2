package blocks

import (
	"reflect"
	"testing"
)

func TestNormalize_TypeVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Kind
	}{
		{"string type", map[string]any{"type": "table", "text": "| a |"}, KindTable},
		{"content_type key", map[string]any{"content_type": "title", "text": "Intro"}, KindHeading},
		{"block_type key", map[string]any{"block_type": "code", "text": "x = 1"}, KindCode},
		{"numeric type code", map[string]any{"type": float64(1), "text": "Intro"}, KindHeading},
		{"unknown falls back to text", map[string]any{"type": "weird_thing", "text": "hi"}, KindText},
		{"missing type defaults to text", map[string]any{"text": "hi"}, KindText},
		{"noise", map[string]any{"type": "page_number", "text": "3"}, KindNoise},
		{"equation", map[string]any{"type": "interline_equation", "text": "E=mc^2"}, KindEquation},
		{"case insensitive", map[string]any{"type": "Table", "text": "| a |"}, KindTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]map[string]any{tt.raw})
			if len(got) != 1 {
				t.Fatalf("expected 1 block, got %d", len(got))
			}
			if got[0].Kind != tt.want {
				t.Errorf("kind = %v, want %v", got[0].Kind, tt.want)
			}
		})
	}
}

func TestNormalize_TextResolution(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"text key", map[string]any{"type": "text", "text": "hello"}, "hello"},
		{"content fallback", map[string]any{"type": "text", "content": "from content"}, "from content"},
		{"md fallback", map[string]any{"type": "text", "md": "from md"}, "from md"},
		{"table_body preferred for tables", map[string]any{"type": "table", "text": "caption", "table_body": "| a | b |"}, "| a | b |"},
		{"whitespace trimmed", map[string]any{"type": "text", "text": "  padded  "}, "padded"},
		{"empty text skipped for next key", map[string]any{"type": "text", "text": "  ", "content": "real"}, "real"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]map[string]any{tt.raw})
			if got[0].Text != tt.want {
				t.Errorf("text = %q, want %q", got[0].Text, tt.want)
			}
		})
	}
}

func TestNormalize_Pages(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want []int
	}{
		{"single page_idx", map[string]any{"text": "a", "page_idx": float64(4)}, []int{4}},
		{"page list", map[string]any{"text": "a", "page_numbers": []any{float64(1), float64(2)}}, []int{1, 2}},
		{"no page info", map[string]any{"text": "a"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]map[string]any{tt.raw})
			if !reflect.DeepEqual(got[0].Pages, tt.want) {
				t.Errorf("pages = %v, want %v", got[0].Pages, tt.want)
			}
		})
	}
}

func TestNormalize_ImageRef(t *testing.T) {
	got := Normalize([]map[string]any{
		{"type": "image", "text": "fig 1", "image_url": " https://bucket/img.png "},
	})
	if got[0].ImageRef != "https://bucket/img.png" {
		t.Errorf("image ref = %q", got[0].ImageRef)
	}
}

func TestFromMarkdown(t *testing.T) {
	src := []byte("# Title\n\nSome intro paragraph.\n\n| a | b |\n| - | - |\n| 1 | 2 |\n\n![diagram](https://x/y.png)\n\n```\nprint(1)\n```\n")

	got := FromMarkdown(src)
	if len(got) != 5 {
		t.Fatalf("expected 5 blocks, got %d: %+v", len(got), got)
	}

	if got[0].Kind != KindHeading || got[0].Text != "# Title" {
		t.Errorf("heading block = %+v", got[0])
	}
	if got[1].Kind != KindText {
		t.Errorf("paragraph kind = %v", got[1].Kind)
	}
	if got[2].Kind != KindTable {
		t.Errorf("table kind = %v", got[2].Kind)
	}
	if got[3].Kind != KindImage || got[3].ImageRef != "https://x/y.png" {
		t.Errorf("image block = %+v", got[3])
	}
	if got[4].Kind != KindCode || got[4].Text != "print(1)" {
		t.Errorf("code block = %+v", got[4])
	}
}

func TestFromMarkdown_ListsAndBlockquotes(t *testing.T) {
	src := []byte("# Title\n\nIntro paragraph.\n\n- first important point\n- second important point\n\n> quoted conclusion\n")

	got := FromMarkdown(src)
	if len(got) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %+v", len(got), got)
	}
	if got[2].Kind != KindText {
		t.Errorf("list kind = %v", got[2].Kind)
	}
	if got[2].Text != "- first important point\n- second important point" {
		t.Errorf("list text = %q", got[2].Text)
	}
	if got[3].Kind != KindText || got[3].Text != "> quoted conclusion" {
		t.Errorf("blockquote block = %+v", got[3])
	}
}

func TestFromMarkdown_NestedAndOrderedLists(t *testing.T) {
	src := []byte("1. outer step\n2. another step\n   - nested detail\n")

	got := FromMarkdown(src)
	if len(got) != 1 {
		t.Fatalf("expected 1 block, got %d: %+v", len(got), got)
	}
	want := "1. outer step\n2. another step\n  - nested detail"
	if got[0].Text != want {
		t.Errorf("list text = %q, want %q", got[0].Text, want)
	}
}

func TestFromMarkdown_Empty(t *testing.T) {
	if got := FromMarkdown([]byte("   \n  ")); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}
