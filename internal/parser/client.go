// Package parser is the boundary to the external structured document parser.
// The service returns an ordered block list for layout-aware formats; plain
// text and markdown are handled locally and flow through the markdown
// degrade path instead.
package parser

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_parser.go -package=mocks knowledgebase/internal/parser Parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// supportedExtensions maps file extensions to the engine that parses them.
var supportedExtensions = map[string]string{
	".pdf":      "structured",
	".docx":     "structured",
	".pptx":     "structured",
	".xlsx":     "structured",
	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "text",
	".text":     "text",
}

// IsSupported reports whether the filename's extension can be parsed.
func IsSupported(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// EngineFor returns the parser engine name for a filename, or "".
func EngineFor(filename string) string {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Result is the unified parser output. Blocks carry the structured layout
// when the engine produced one; Markdown alone signals the degrade path.
type Result struct {
	Blocks   []map[string]any `json:"content_list"`
	Markdown string           `json:"markdown"`
	Engine   string           `json:"engine"`
	Version  string           `json:"version"`
}

// Parser parses raw file bytes into blocks or markdown.
type Parser interface {
	Parse(ctx context.Context, filename string, data []byte) (*Result, error)
}

// Client calls the remote structured parser over HTTP, short-circuiting
// text-family files locally.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewClient creates a parser client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// Parse parses one file. Unsupported extensions error before any network
// call; empty payloads error unconditionally.
func (c *Client) Parse(ctx context.Context, filename string, data []byte) (*Result, error) {
	engine := EngineFor(filename)
	if engine == "" {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file payload")
	}

	switch engine {
	case "markdown", "text":
		return parseTextLocal(data, engine), nil
	}
	return c.parseRemote(ctx, filename, data)
}

// parseTextLocal decodes text-family bytes into a markdown-only result,
// routing the document through the markdown degrade adapter downstream.
func parseTextLocal(data []byte, engine string) *Result {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return &Result{Markdown: text, Engine: engine, Version: "local"}
}

func (c *Client) parseRemote(ctx context.Context, filename string, data []byte) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/parse", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call parser service: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("parser service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode parser response: %w", err)
	}
	if result.Engine == "" {
		result.Engine = "structured"
	}
	if len(result.Blocks) == 0 && strings.TrimSpace(result.Markdown) == "" {
		return nil, fmt.Errorf("parser produced no blocks and no markdown")
	}
	return &result, nil
}
