package models

import "time"

// Metadata keys attached to every indexed chunk.
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaSheet      = "sheet"
	MetaType       = "type"
	MetaTotalPages = "total_pages"
	MetaSession    = "session"
	MetaRole       = "role"
	MetaTimestamp  = "timestamp"
	MetaTurn       = "turn"
	MetaChunk      = "chunk"
)

// SourceConversation is the source identifier carried by conversational
// memory chunks instead of a file path.
const SourceConversation = "conversation"

// TypeVerticalJapanese marks content extracted through the vertical OCR path.
const TypeVerticalJapanese = "vertical_japanese"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentUnit is one semantically coherent extracted unit: a PDF page, a
// spreadsheet sheet, or an OCR'd page. Units are produced by the loader and
// are never persisted directly; only chunks derived from them are.
type ContentUnit struct {
	Text   string
	Source string
	Page   int // 1-based, 0 when the source has no pages
	Extra  map[string]string
}

// Chunk is a bounded slice of a content unit's text plus a copy of its
// provenance metadata. Chunks are the atomic unit of indexing and retrieval.
type Chunk struct {
	Content    string
	Source     string
	PageNumber int // 0 when the source has no pages
	ChunkID    int // 1-based within the originating unit
	Extra      map[string]string
}

// ConversationTurn is one utterance of a chat session. Turns are immutable
// once created.
type ConversationTurn struct {
	ID        string
	SessionID string
	Role      string
	Text      string
	Timestamp time.Time
}
