package chunker

import (
	"path/filepath"
	"strings"

	"github.com/codelens/codelens/internal/parser"
	"github.com/codelens/codelens/internal/pathfilter"
	"github.com/codelens/codelens/pkg/types"
)

const (
	// WindowLines is the height of a fallback text window.
	WindowLines = 50

	// MinChunkChars is the minimum trimmed length for a syntax chunk.
	// Smaller declarations carry too little context to be worth a
	// record. The windowed strategy has no such minimum: a region
	// discarded here is still recovered if the file is windowed.
	MinChunkChars = 50
)

// Chunker splits file content into content-addressable chunks. Code
// files with a registered parser get declaration-level chunks; parse
// failures, unregistered languages, documentation, and configuration
// files get fixed 50-line windows. A Chunker is stateless and safe for
// concurrent use.
type Chunker struct {
	registry *parser.Registry
	filter   *pathfilter.Filter
}

// New creates a Chunker over the given parser registry.
func New(registry *parser.Registry) *Chunker {
	return &Chunker{
		registry: registry,
		filter:   pathfilter.New(),
	}
}

// Chunk splits a file into chunks in source appearance order. Files
// whose extension is not indexable yield no chunks. Parse failures
// never propagate: the file silently degrades to windowed chunking.
func (c *Chunker) Chunk(path string, content []byte) []types.Chunk {
	switch c.filter.Categorize(path) {
	case pathfilter.CategoryCode:
		return c.chunkCode(path, content)
	case pathfilter.CategoryDoc:
		text := string(content)
		if strings.EqualFold(filepath.Ext(path), ".md") {
			text = StripMarkdown(text)
		}
		return c.windowChunks(path, text)
	case pathfilter.CategoryConfig:
		// Config files are always windowed, never parsed.
		return c.windowChunks(path, string(content))
	default:
		return nil
	}
}

// chunkCode applies the syntax-aware strategy when a parser is
// registered for the file's language and it accepts the source.
func (c *Chunker) chunkCode(path string, content []byte) []types.Chunk {
	lang := languageOf(path)
	if !c.registry.Supported(lang) {
		return c.windowChunks(path, string(content))
	}

	nodes, err := c.registry.Parse(lang, content)
	if err != nil {
		return c.windowChunks(path, string(content))
	}

	chunks := make([]types.Chunk, 0, len(nodes))
	for _, node := range nodes {
		if node.StartByte < 0 || node.EndByte > len(content) || node.StartByte >= node.EndByte {
			continue
		}
		text := string(content[node.StartByte:node.EndByte])
		if len(strings.TrimSpace(text)) <= MinChunkChars {
			continue
		}
		chunks = append(chunks, types.Chunk{
			Content:   text,
			Kind:      kindOf(node.Tag),
			StartLine: node.StartLine,
			EndLine:   node.EndLine,
			Metadata: types.ChunkMetadata{
				FilePath: path,
				NodeKind: node.Tag,
				Language: lang,
			},
		})
	}
	return chunks
}

// windowChunks splits content into non-overlapping 50-line windows in
// source order; the final window may be shorter and windows that trim
// to nothing are skipped.
func (c *Chunker) windowChunks(path, content string) []types.Chunk {
	lines := strings.Split(content, "\n")
	lang := languageOf(path)

	var chunks []types.Chunk
	for i := 0; i < len(lines); i += WindowLines {
		end := i + WindowLines
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[i:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, types.Chunk{
			Content:   text,
			Kind:      types.ChunkTextWindow,
			StartLine: i + 1,
			EndLine:   end,
			Metadata: types.ChunkMetadata{
				FilePath: path,
				NodeKind: string(types.ChunkTextWindow),
				Language: lang,
			},
		})
	}
	return chunks
}

// languageOf derives the language tag from the file extension, or the
// sentinel "text" when there is none.
func languageOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text"
	}
	return ext[1:]
}

// kindOf maps a parser node tag to a chunk kind.
func kindOf(tag string) types.ChunkKind {
	switch tag {
	case parser.TagMethod:
		return types.ChunkMethod
	case parser.TagClass:
		return types.ChunkClass
	default:
		return types.ChunkFunction
	}
}
