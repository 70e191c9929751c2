// Package blocks defines the canonical block schema produced by the
// structured parser boundary. Parser output arrives as loosely-typed JSON
// with per-version field drift; Normalize resolves it once into a closed
// set of block kinds so downstream code never probes raw fields again.
package blocks

import (
	"strings"
)

// Kind is the closed set of canonical block kinds.
type Kind int

const (
	KindText Kind = iota
	KindHeading
	KindTable
	KindImage
	KindCode
	KindEquation
	KindNoise
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	case KindCode:
		return "code"
	case KindEquation:
		return "equation"
	case KindNoise:
		return "noise"
	default:
		return "text"
	}
}

// Block is the canonical shape every downstream component consumes.
type Block struct {
	Kind     Kind
	Text     string
	Pages    []int
	ImageRef string // object-storage URL for image blocks, if resolved
}

// noiseTypes are parser block types dropped unconditionally.
var noiseTypes = map[string]bool{
	"header":      true,
	"footer":      true,
	"page_number": true,
	"phonetic":    true,
}

// tableTypes, imageTypes and codeTypes are the atomic families: consecutive
// blocks of one family merge into a single chunk downstream.
var tableTypes = map[string]bool{
	"table":          true,
	"table_caption":  true,
	"table_footnote": true,
}

var imageTypes = map[string]bool{
	"image":          true,
	"image_caption":  true,
	"image_footnote": true,
	"image_body":     true,
	"figure":         true,
	"figure_caption": true,
	"caption":        true,
	"img":            true,
	"picture":        true,
}

var codeTypes = map[string]bool{
	"code":         true,
	"code_caption": true,
	"algorithm":    true,
}

var headingTypes = map[string]bool{
	"title":   true,
	"heading": true,
}

var equationTypes = map[string]bool{
	"equation":           true,
	"interline_equation": true,
}

// numericTypes maps the integer type codes some parser versions emit.
var numericTypes = map[int]string{
	0: "text",
	1: "title",
	2: "text",
	3: "table",
	4: "image",
	5: "image_caption",
}

// Normalize maps raw parser blocks into canonical Blocks. It tolerates every
// known field variant: type as string or int (under type/content_type/
// block_type), text under text/content/md (table_body for table blocks), and
// page indices as a single int or a list. Unknown type names fall back to
// text. Blocks with no text at all are kept (an image block may carry only a
// reference); fully empty blocks are dropped by the chunker, not here.
func Normalize(raw []map[string]any) []Block {
	out := make([]Block, 0, len(raw))
	for _, rb := range raw {
		typ := rawType(rb)
		b := Block{
			Kind:  classify(typ),
			Pages: rawPages(rb),
		}
		b.Text = rawText(rb, b.Kind)
		if ref, ok := rb["image_url"].(string); ok {
			b.ImageRef = strings.TrimSpace(ref)
		}
		out = append(out, b)
	}
	return out
}

// classify resolves a normalized type name into a canonical kind.
func classify(typ string) Kind {
	switch {
	case noiseTypes[typ]:
		return KindNoise
	case headingTypes[typ]:
		return KindHeading
	case tableTypes[typ]:
		return KindTable
	case imageTypes[typ]:
		return KindImage
	case codeTypes[typ]:
		return KindCode
	case equationTypes[typ]:
		return KindEquation
	default:
		return KindText
	}
}

func rawType(rb map[string]any) string {
	for _, key := range []string{"type", "content_type", "block_type"} {
		switch v := rb[key].(type) {
		case string:
			if s := strings.ToLower(strings.TrimSpace(v)); s != "" {
				return s
			}
		case float64:
			// JSON numbers decode as float64.
			if s, ok := numericTypes[int(v)]; ok {
				return s
			}
		case int:
			if s, ok := numericTypes[v]; ok {
				return s
			}
		}
	}
	return "text"
}

func rawText(rb map[string]any, kind Kind) string {
	keys := []string{"text", "content", "md"}
	if kind == KindTable {
		// Table-model parser variants put the rendered table under table_body.
		keys = []string{"table_body", "text", "content", "md"}
	}
	for _, key := range keys {
		if s, ok := rb[key].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return ""
}

func rawPages(rb map[string]any) []int {
	for _, key := range []string{"page_idx", "page_no", "page_numbers"} {
		switch v := rb[key].(type) {
		case float64:
			return []int{int(v)}
		case int:
			return []int{v}
		case []any:
			pages := make([]int, 0, len(v))
			for _, p := range v {
				switch n := p.(type) {
				case float64:
					pages = append(pages, int(n))
				case int:
					pages = append(pages, n)
				}
			}
			if len(pages) > 0 {
				return pages
			}
		}
	}
	return nil
}
