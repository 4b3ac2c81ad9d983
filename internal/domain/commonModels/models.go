package commonModels

import "time"

// Document is the raw source for one topic. It is read once by the ingestion
// entry point and discarded after chunking.
type Document struct {
	Topic               string    `json:"topic"`
	Name                string    `json:"doc_name"`
	Content             string    `json:"content"`
	ContentType         DocType   `json:"contentType"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
}

// DocChunk is a contiguous, bounded slice of a Document.
type DocChunk struct {
	Topic   string `json:"topic"`
	Ordinal int    `json:"chunk_order"`
	Text    string `json:"content"`
}

// SearchResult is one retrieved chunk, best-first ordering is the caller's contract.
type SearchResult struct {
	Text    string  `json:"content"`
	Ordinal int     `json:"chunk_order"`
	Score   float32 `json:"score"`
}

// Topic is a named, isolated partition of the corpus.
type Topic struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Source      string `json:"source,omitempty" yaml:"source"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var MD DocType = "MD"
var ERR DocType = "ERROR"
