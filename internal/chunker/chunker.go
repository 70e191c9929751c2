// Package chunker implements layout-aware parent/child chunking. Parents
// span heading-to-heading sections and carry full context for generation;
// children are the short embeddable units inside them. Parents are stored
// but never embedded.
package chunker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"knowledgebase/internal/blocks"
	"knowledgebase/internal/models"
)

// Config controls chunk sizing and the soft-split signals.
type Config struct {
	MaxChildTokens      int
	MaxParentTokens     int
	MinParentTokens     int // parent must reach this before a soft split fires
	MinChildren         int // and hold at least this many pending children
	PseudoTitleMaxChars int
	OverlapTokens       int
	SplitOnPseudoTitle  bool
	SplitOnPageBreak    bool
	SplitOnTypeShift    bool
}

// DefaultConfig returns the production chunking parameters.
func DefaultConfig() Config {
	return Config{
		MaxChildTokens:      512,
		MaxParentTokens:     2000,
		MinParentTokens:     600,
		MinChildren:         3,
		PseudoTitleMaxChars: 64,
		OverlapTokens:       64,
		SplitOnPseudoTitle:  true,
		SplitOnPageBreak:    true,
		SplitOnTypeShift:    true,
	}
}

// Chunker is a single-pass state machine over a document's canonical blocks.
// It holds no cross-document state and is safe to share across goroutines.
type Chunker struct {
	cfg Config
}

// New clamps the config to safe floors and returns a Chunker.
func New(cfg Config) *Chunker {
	if cfg.MaxChildTokens < 64 {
		cfg.MaxChildTokens = 64
	}
	if cfg.MaxParentTokens < 256 {
		cfg.MaxParentTokens = 256
	}
	if cfg.MinParentTokens < 128 {
		cfg.MinParentTokens = 128
	}
	if cfg.MinChildren < 1 {
		cfg.MinChildren = 1
	}
	if cfg.PseudoTitleMaxChars < 16 {
		cfg.PseudoTitleMaxChars = 16
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	// Overlap must stay strictly under the child window or the window can
	// never advance.
	if cfg.OverlapTokens >= cfg.MaxChildTokens {
		cfg.OverlapTokens = cfg.MaxChildTokens / 2
	}
	return &Chunker{cfg: cfg}
}

// pseudoTitleRes matches heading-looking lines the parser left typed as text:
// markdown hashes, CJK chapter markers, numbered section labels and common
// standalone section names.
var pseudoTitleRes = []*regexp.Regexp{
	regexp.MustCompile(`^\s{0,3}#{1,6}\s+\S+`),
	regexp.MustCompile(`^\s*第[一二三四五六七八九十百千万0-9]+[章节部分篇]`),
	regexp.MustCompile(`^\s*(\d+(\.\d+){0,3}|[一二三四五六七八九十]+)\s*[、.)）．]\s*\S+`),
	regexp.MustCompile(`^\s*(附录|目录|前言|引言|总结|结论|参考文献|致谢)\s*$`),
}

var sentenceEndRe = regexp.MustCompile(`[。！？!?；;]$`)

func (c *Chunker) isPseudoTitle(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" || strings.Contains(s, "\n") {
		return false
	}
	if len([]rune(s)) > c.cfg.PseudoTitleMaxChars {
		return false
	}
	if sentenceEndRe.MatchString(s) {
		return false
	}
	for _, re := range pseudoTitleRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// chunkState carries the per-document pass state.
type chunkState struct {
	documentID string
	notebookID string

	out        []models.Chunk
	chunkIndex int

	parentID      string
	parentContent []string
	parentPages   map[int]bool
	parentTokens  int
	children      []models.Chunk

	lastKind    blocks.Kind
	hasLastKind bool

	tableBuf []blocks.Block
	imageBuf []blocks.Block
	codeBuf  []blocks.Block
}

// Chunk converts a document's ordered canonical blocks into the parent/child
// chunk sequence, parents emitted immediately before their children. Empty
// input or input that is all noise yields an empty slice; the caller treats
// that as a parse failure.
func (c *Chunker) Chunk(documentID, notebookID string, in []blocks.Block) []models.Chunk {
	if len(in) == 0 {
		return nil
	}

	st := &chunkState{
		documentID:  documentID,
		notebookID:  notebookID,
		parentID:    uuid.New().String(),
		parentPages: map[int]bool{},
	}

	for _, b := range in {
		if b.Kind == blocks.KindNoise {
			continue
		}

		// Settle any atomic buffer whose family run just ended.
		if b.Kind != blocks.KindTable {
			c.flushTable(st)
		}
		if b.Kind != blocks.KindImage {
			c.flushImage(st)
		}
		if b.Kind != blocks.KindCode {
			c.flushCode(st)
		}

		switch b.Kind {
		case blocks.KindTable:
			st.tableBuf = append(st.tableBuf, b)
			continue
		case blocks.KindImage:
			st.imageBuf = append(st.imageBuf, b)
			continue
		case blocks.KindCode:
			st.codeBuf = append(st.codeBuf, b)
			continue
		}

		text := strings.TrimSpace(b.Text)
		if b.Kind == blocks.KindEquation && text != "" {
			text = "$$\n" + text + "\n$$"
		}
		if text == "" {
			continue
		}
		blockTokens := EstimateTokens(text)

		isHeading := b.Kind == blocks.KindHeading ||
			(c.cfg.SplitOnPseudoTitle && b.Kind == blocks.KindText && c.isPseudoTitle(text))

		// A heading always closes the current parent and seeds the next.
		if isHeading {
			c.flushParent(st)
			st.parentContent = append(st.parentContent, text)
			addPages(st.parentPages, b.Pages)
			st.parentTokens += blockTokens
			st.hasLastKind = false
			continue
		}

		// Soft split, checked only once the parent has real body: page
		// crossing first, then content-kind shift.
		if len(st.parentContent) > 0 &&
			st.parentTokens >= c.cfg.MinParentTokens &&
			len(st.children) >= c.cfg.MinChildren {
			softSplit := false
			if c.cfg.SplitOnPageBreak && len(b.Pages) > 0 && len(st.parentPages) > 0 && !pagesSubset(b.Pages, st.parentPages) {
				softSplit = true
			}
			if !softSplit && c.cfg.SplitOnTypeShift && st.hasLastKind && b.Kind != st.lastKind {
				softSplit = true
			}
			if softSplit {
				c.flushParent(st)
			}
		}

		// Hard safety valve bounds parent size even without any heading.
		if len(st.parentContent) > 0 &&
			(st.parentTokens >= c.cfg.MaxParentTokens || st.parentTokens+blockTokens > c.cfg.MaxParentTokens) {
			c.flushParent(st)
		}

		st.parentContent = append(st.parentContent, text)
		addPages(st.parentPages, b.Pages)
		st.parentTokens += blockTokens

		if blockTokens > c.cfg.MaxChildTokens {
			for _, frag := range recursiveSplit(text, c.cfg.MaxChildTokens, c.cfg.OverlapTokens) {
				frag = strings.TrimSpace(frag)
				if frag == "" {
					continue
				}
				st.children = append(st.children, c.newChild(st, frag, models.ChunkTypeText, b.Pages))
			}
		} else {
			st.children = append(st.children, c.newChild(st, text, models.ChunkTypeText, b.Pages))
		}
		st.lastKind = b.Kind
		st.hasLastKind = true
	}

	c.flushTable(st)
	c.flushImage(st)
	c.flushCode(st)
	c.flushParent(st)

	return st.out
}

func (c *Chunker) newChild(st *chunkState, content string, typ models.ChunkType, pages []int) models.Chunk {
	return models.Chunk{
		ID:          uuid.New().String(),
		DocumentID:  st.documentID,
		NotebookID:  st.notebookID,
		PageNumbers: sortedPages(pages),
		Type:        typ,
		Content:     content,
		TokenCount:  EstimateTokens(content),
		IsActive:    true,
	}
}

// flushParent emits the accumulated parent followed by its buffered children
// and resets the parent state. Children collected without any parent body
// are emitted standalone.
func (c *Chunker) flushParent(st *chunkState) {
	if len(st.parentContent) > 0 {
		content := strings.Join(st.parentContent, "\n\n")
		parent := models.Chunk{
			ID:          st.parentID,
			DocumentID:  st.documentID,
			NotebookID:  st.notebookID,
			ChunkIndex:  st.chunkIndex,
			PageNumbers: pageSetSlice(st.parentPages),
			Type:        models.ChunkTypeText,
			Content:     content,
			TokenCount:  EstimateTokens(content),
			IsParent:    true,
			IsActive:    true,
		}
		st.out = append(st.out, parent)
		st.chunkIndex++
		for _, child := range st.children {
			child.ParentChunkID = st.parentID
			child.ChunkIndex = st.chunkIndex
			st.out = append(st.out, child)
			st.chunkIndex++
		}
	} else {
		for _, child := range st.children {
			child.ChunkIndex = st.chunkIndex
			st.out = append(st.out, child)
			st.chunkIndex++
		}
	}

	st.parentID = uuid.New().String()
	st.parentContent = nil
	st.parentPages = map[int]bool{}
	st.parentTokens = 0
	st.children = nil
}

// flushTable collapses the buffered table run into one atomic child.
func (c *Chunker) flushTable(st *chunkState) {
	if len(st.tableBuf) == 0 {
		return
	}
	combined, pages := joinBuffer(st.tableBuf)
	st.tableBuf = nil
	if combined == "" {
		return
	}
	c.appendAtomic(st, combined, models.ChunkTypeTable, pages, blocks.KindTable)
}

// flushImage emits one child per image that carries a resolved object URL
// (content is "url\ncaption") and merges the captionless remainder into one
// fallback child.
func (c *Chunker) flushImage(st *chunkState) {
	if len(st.imageBuf) == 0 {
		return
	}
	buf := st.imageBuf
	st.imageBuf = nil

	var rest []blocks.Block
	emitted := false
	for _, b := range buf {
		if b.ImageRef == "" {
			rest = append(rest, b)
			continue
		}
		content := b.ImageRef
		if t := strings.TrimSpace(b.Text); t != "" {
			content += "\n" + t
		}
		c.appendAtomic(st, content, models.ChunkTypeImageCaption, b.Pages, blocks.KindImage)
		emitted = true
	}
	if len(rest) > 0 || !emitted {
		combined, pages := joinBuffer(rest)
		if combined == "" {
			combined = "[image]"
		}
		c.appendAtomic(st, combined, models.ChunkTypeImageCaption, pages, blocks.KindImage)
	}
}

// flushCode collapses the buffered code run into one fenced child.
func (c *Chunker) flushCode(st *chunkState) {
	if len(st.codeBuf) == 0 {
		return
	}
	combined, pages := joinBuffer(st.codeBuf)
	st.codeBuf = nil
	if combined == "" {
		return
	}
	wrapped := "```\n" + combined + "\n```"
	c.appendAtomic(st, wrapped, models.ChunkTypeCode, pages, blocks.KindCode)
}

// appendAtomic adds an atomic child to the current parent buffer.
func (c *Chunker) appendAtomic(st *chunkState, content string, typ models.ChunkType, pages []int, kind blocks.Kind) {
	st.parentContent = append(st.parentContent, content)
	addPages(st.parentPages, pages)
	st.parentTokens += EstimateTokens(content)
	st.children = append(st.children, c.newChild(st, content, typ, pages))
	st.lastKind = kind
	st.hasLastKind = true
}

func joinBuffer(buf []blocks.Block) (string, []int) {
	var parts []string
	pages := map[int]bool{}
	for _, b := range buf {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
		addPages(pages, b.Pages)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), pageSetSlice(pages)
}

func addPages(set map[int]bool, pages []int) {
	for _, p := range pages {
		set[p] = true
	}
}

func pagesSubset(pages []int, set map[int]bool) bool {
	for _, p := range pages {
		if !set[p] {
			return false
		}
	}
	return true
}

func pageSetSlice(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func sortedPages(pages []int) []int {
	if len(pages) == 0 {
		return nil
	}
	out := append([]int(nil), pages...)
	sort.Ints(out)
	return out
}
