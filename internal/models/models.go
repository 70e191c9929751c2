// Package models holds the domain types shared across the ingestion and
// retrieval pipeline: notebooks, documents, chunks and search results.
package models

import "time"

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus string

const (
	StatusUploaded  DocumentStatus = "UPLOADED"
	StatusParsing   DocumentStatus = "PARSING"
	StatusParsed    DocumentStatus = "PARSED"
	StatusEmbedding DocumentStatus = "EMBEDDING"
	StatusReady     DocumentStatus = "READY"
	StatusFailed    DocumentStatus = "FAILED"
)

// ChunkType classifies chunk content.
type ChunkType string

const (
	ChunkTypeText         ChunkType = "TEXT"
	ChunkTypeTable        ChunkType = "TABLE"
	ChunkTypeImageCaption ChunkType = "IMAGE_CAPTION"
	ChunkTypeCode         ChunkType = "CODE"
)

// ValidChunkType reports whether s names a known chunk type.
func ValidChunkType(s string) bool {
	switch ChunkType(s) {
	case ChunkTypeText, ChunkTypeTable, ChunkTypeImageCaption, ChunkTypeCode:
		return true
	}
	return false
}

// Notebook is a tenant/workspace. Every document, chunk and vector record
// belongs to exactly one notebook and every query is scoped to one.
type Notebook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OwnerID     int64     `json:"owner_id"`
	SourceCount int       `json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document is an ingested file and its lifecycle state.
type Document struct {
	ID               string         `json:"id"`
	NotebookID       string         `json:"notebook_id"`
	OwnerID          int64          `json:"owner_id"`
	Filename         string         `json:"filename"`
	ContentHash      string         `json:"content_hash"`
	ByteSize         int64          `json:"byte_size"`
	StoragePath      string         `json:"storage_path"`
	ParserEngine     string         `json:"parser_engine"`
	ParserVersion    string         `json:"parser_version"`
	ChunkingStrategy string         `json:"chunking_strategy"`
	Status           DocumentStatus `json:"status"`
	ErrorDetail      string         `json:"error_detail,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Chunk is one unit of the parent/child chunk tree. A parent has
// ParentChunkID == "" and IsParent == true and is never embedded; a child
// (or a standalone chunk) is what the vector store indexes. Chunks are
// immutable after creation except for the IsActive flag.
type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	NotebookID    string    `json:"notebook_id"`
	ParentChunkID string    `json:"parent_chunk_id,omitempty"`
	ChunkIndex    int       `json:"chunk_index"`
	PageNumbers   []int     `json:"page_numbers"`
	Type          ChunkType `json:"chunk_type"`
	Content       string    `json:"content"`
	TokenCount    int       `json:"token_count"`
	IsParent      bool      `json:"is_parent"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// SearchHit is one retrieval result. Ephemeral; never persisted.
type SearchHit struct {
	ChunkID       string    `json:"chunk_id"`
	DocumentID    string    `json:"document_id"`
	Content       string    `json:"content"`
	Type          ChunkType `json:"chunk_type"`
	PageNumbers   []int     `json:"page_numbers"`
	Score         float64   `json:"score"`
	RerankScore   *float64  `json:"rerank_score,omitempty"`
	Sources       []string  `json:"sources"`
	ParentContent string    `json:"parent_content,omitempty"`
}

// SearchRequest drives the three-stage retrieval pipeline. The three recall
// paths and the rerank stage are individually toggleable.
type SearchRequest struct {
	NotebookID              string   `json:"notebook_id"`
	Query                   string   `json:"query"`
	DocumentIDs             []string `json:"document_ids,omitempty"`
	ChunkTypes              []string `json:"chunk_types,omitempty"`
	TopK                    int      `json:"top_k,omitempty"`
	UseParent               bool     `json:"use_parent"`
	EnableExact             bool     `json:"enable_exact"`
	EnableSparse            bool     `json:"enable_sparse"`
	EnableDense             bool     `json:"enable_dense"`
	EnableRerank            bool     `json:"enable_rerank"`
	RerankThreshold         *float64 `json:"rerank_threshold,omitempty"`
	FallbackCosineThreshold *float64 `json:"fallback_cosine_threshold,omitempty"`
}

// SearchResponse carries the final hits plus per-path diagnostics.
// PathStats records how many candidates each recall path contributed
// (0 for a path that failed or was disabled but requested).
type SearchResponse struct {
	Query     string         `json:"query"`
	Hits      []SearchHit    `json:"hits"`
	Total     int            `json:"total"`
	PathStats map[string]int `json:"path_stats"`
}
