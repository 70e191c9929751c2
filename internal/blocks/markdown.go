package blocks

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownImageRe matches an inline markdown image and captures its URL.
var markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

// FromMarkdown segments a markdown document into canonical blocks so the
// degrade path (parser returned no structured blocks) runs through the exact
// same chunker as structured output. Headings become heading blocks;
// paragraphs are classified as table, image or text by content; fenced code
// becomes code blocks. Page information is unavailable in markdown, so Pages
// is always nil.
func FromMarkdown(source []byte) []Block {
	if len(strings.TrimSpace(string(source))) == 0 {
		return nil
	}

	// Pipe tables are left to textual detection below, so the Table
	// extension stays off and tables arrive as paragraphs.
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var out []Block
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			line := nodeText(n, source)
			if line == "" {
				continue
			}
			out = append(out, Block{
				Kind: KindHeading,
				Text: strings.Repeat("#", n.Level) + " " + line,
			})
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			code := nodeText(node, source)
			if code == "" {
				continue
			}
			out = append(out, Block{Kind: KindCode, Text: code})
		case *ast.List:
			if txt := listText(n, source, 0); txt != "" {
				out = append(out, Block{Kind: KindText, Text: txt})
			}
		case *ast.Blockquote:
			if txt := containerText(n, source); txt != "" {
				out = append(out, Block{
					Kind: KindText,
					Text: "> " + strings.ReplaceAll(txt, "\n", "\n> "),
				})
			}
		default:
			raw := nodeText(node, source)
			if raw == "" && node.HasChildren() {
				raw = containerText(node, source)
			}
			if raw == "" {
				continue
			}
			out = append(out, classifyMarkdownSegment(raw))
		}
	}
	return out
}

// classifyMarkdownSegment mirrors the structured parser's typing for plain
// markdown content: two or more pipe-delimited lines make a table, an inline
// image makes an image block, everything else is text.
func classifyMarkdownSegment(raw string) Block {
	lines := strings.Split(raw, "\n")
	pipeLines := 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|") {
			pipeLines++
		}
	}
	if pipeLines >= 2 {
		return Block{Kind: KindTable, Text: raw}
	}
	if m := markdownImageRe.FindStringSubmatch(raw); m != nil {
		return Block{Kind: KindImage, Text: raw, ImageRef: strings.TrimSpace(m[1])}
	}
	return Block{Kind: KindText, Text: raw}
}

// listText flattens a list into marker-prefixed lines, recursing into
// nested lists with two-space indent per level.
func listText(list *ast.List, source []byte, depth int) string {
	indent := strings.Repeat("  ", depth)
	index := list.Start
	if index == 0 {
		index = 1
	}
	var sb strings.Builder
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			var t string
			if nested, ok := child.(*ast.List); ok {
				t = listText(nested, source, depth+1)
			} else {
				t = nodeText(child, source)
				if t == "" && child.HasChildren() {
					t = containerText(child, source)
				}
			}
			if t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		marker := "- "
		if list.IsOrdered() {
			marker = strconv.Itoa(index) + ". "
			index++
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(indent + marker + strings.Join(parts, "\n"))
	}
	return sb.String()
}

// containerText collects the text of a container node's children; container
// nodes carry no source lines of their own.
func containerText(node ast.Node, source []byte) string {
	var parts []string
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		var t string
		if nested, ok := child.(*ast.List); ok {
			t = listText(nested, source, 0)
		} else {
			t = nodeText(child, source)
			if t == "" && child.HasChildren() {
				t = containerText(child, source)
			}
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// nodeText reassembles a block node's raw source lines.
func nodeText(node ast.Node, source []byte) string {
	lines := node.Lines()
	if lines == nil || lines.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimRight(sb.String(), "\n")
}
