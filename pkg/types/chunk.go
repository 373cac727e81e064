package types

import "fmt"

// ChunkKind classifies how a chunk was carved out of its source file.
type ChunkKind string

const (
	// ChunkFunction is a top-level function declaration.
	ChunkFunction ChunkKind = "function"
	// ChunkMethod is a top-level method definition.
	ChunkMethod ChunkKind = "method"
	// ChunkClass is a top-level type/class declaration.
	ChunkClass ChunkKind = "class"
	// ChunkTextWindow is a fixed-size window of lines from a file that
	// was not (or could not be) parsed syntactically.
	ChunkTextWindow ChunkKind = "text-window"
)

// Metadata keys as persisted with every record.
const (
	MetaFilePath = "file_path"
	MetaNodeKind = "node_kind"
	MetaLanguage = "language"
)

// ChunkMetadata describes where a chunk came from.
type ChunkMetadata struct {
	FilePath string
	NodeKind string
	Language string
}

// Map converts metadata to the flat key/value form stored with a record.
func (m ChunkMetadata) Map() map[string]string {
	return map[string]string{
		MetaFilePath: m.FilePath,
		MetaNodeKind: m.NodeKind,
		MetaLanguage: m.Language,
	}
}

// MetadataFromMap rebuilds structured metadata from its stored form.
// Missing keys are left empty.
func MetadataFromMap(m map[string]string) ChunkMetadata {
	return ChunkMetadata{
		FilePath: m[MetaFilePath],
		NodeKind: m[MetaNodeKind],
		Language: m[MetaLanguage],
	}
}

// Chunk is a contiguous, meaningfully bounded excerpt of a file. Chunks
// are created by the chunker, consumed by the indexer, and never
// mutated after creation. Line numbers are 1-based and inclusive.
type Chunk struct {
	Content   string
	Kind      ChunkKind
	StartLine int
	EndLine   int
	Metadata  ChunkMetadata
}

// Validate checks the chunk's structural invariants.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return fmt.Errorf("chunk content is empty")
	}
	if c.StartLine < 1 {
		return fmt.Errorf("start line %d is not 1-based", c.StartLine)
	}
	if c.EndLine < c.StartLine {
		return fmt.Errorf("end line %d precedes start line %d", c.EndLine, c.StartLine)
	}
	return nil
}

// RecordID builds the stable record id for a chunk: the source path
// joined with the chunk's 0-based position within that file's chunk
// list. Ordinals follow source appearance order, so re-indexing an
// unchanged file reproduces the same ids.
func RecordID(filePath string, ordinal int) string {
	return fmt.Sprintf("%s_%d", filePath, ordinal)
}

// ScoredChunk is a retrieval result: the stored document text, its
// metadata, and the distance to the query vector. Distance is
// non-negative; smaller means more similar.
type ScoredChunk struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}
