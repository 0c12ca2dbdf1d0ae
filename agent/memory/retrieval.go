package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// ErrSummaryNotFound is returned for a path that was never indexed.
var ErrSummaryNotFound = errors.New("file summary not found")

// DefaultMaxChunkLines 每个代码块的默认最大行数
const DefaultMaxChunkLines = 40

// CodeChunk is one indexed slice of a file.
type CodeChunk struct {
	ID        string `json:"chunk_id"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	StartLine int    `json:"start_line"`
}

// RetrievalResult is a chunk and its relevance score.
type RetrievalResult struct {
	Chunk CodeChunk `json:"chunk"`
	Score float64   `json:"score"`
}

// Retriever indexes project text and answers relevance queries over it.
type Retriever interface {
	// IndexText replaces everything indexed for path with text.
	IndexText(ctx context.Context, path, text string) error
	// FileSummary returns the summary stored for path.
	FileSummary(ctx context.Context, path string) (string, error)
	// Query returns up to limit chunks ranked by relevance, best first.
	Query(ctx context.Context, query string, limit int) ([]RetrievalResult, error)
}

// =============================================================================
// 🔍 进程内检索
// =============================================================================

// InMemoryRetriever scores chunks by how many distinct query terms they contain.
type InMemoryRetriever struct {
	maxChunkLines int

	mu        sync.RWMutex
	summaries map[string]string
	chunks    []CodeChunk
}

// NewInMemoryRetriever creates an empty index. maxChunkLines <= 0 uses DefaultMaxChunkLines.
func NewInMemoryRetriever(maxChunkLines int) *InMemoryRetriever {
	if maxChunkLines <= 0 {
		maxChunkLines = DefaultMaxChunkLines
	}
	return &InMemoryRetriever{
		maxChunkLines: maxChunkLines,
		summaries:     make(map[string]string),
	}
}

// IndexText summarizes text and splits it into line chunks, dropping any
// chunks previously indexed for path.
func (r *InMemoryRetriever) IndexText(_ context.Context, path, text string) error {
	if path == "" {
		return errors.New("path is required")
	}
	chunks := chunkLines(path, text, r.maxChunkLines)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[path] = summarize(text)
	r.chunks = slices.DeleteFunc(r.chunks, func(c CodeChunk) bool { return c.Path == path })
	r.chunks = append(r.chunks, chunks...)
	return nil
}

// FileSummary returns the first three non-blank lines of the indexed file, joined by spaces.
func (r *InMemoryRetriever) FileSummary(_ context.Context, path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.summaries[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSummaryNotFound, path)
	}
	return s, nil
}

// Query ranks chunks by term overlap. Chunks sharing no term are left out;
// equal scores keep indexing order.
func (r *InMemoryRetriever) Query(_ context.Context, query string, limit int) ([]RetrievalResult, error) {
	if limit <= 0 {
		limit = 5
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	var results []RetrievalResult
	for _, c := range r.chunks {
		if score := overlap(terms, tokenize(c.Content)); score > 0 {
			results = append(results, RetrievalResult{Chunk: c, Score: score})
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(results, func(a, b RetrievalResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Paths returns the indexed paths, sorted.
func (r *InMemoryRetriever) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.summaries))
	for p := range r.summaries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

var termPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, m := range termPattern.FindAllString(text, -1) {
		terms[strings.ToLower(m)] = struct{}{}
	}
	return terms
}

func overlap(query, chunk map[string]struct{}) float64 {
	n := 0
	for t := range query {
		if _, ok := chunk[t]; ok {
			n++
		}
	}
	return float64(n)
}

func summarize(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
			if len(lines) == 3 {
				break
			}
		}
	}
	return strings.Join(lines, " ")
}

func chunkLines(path, text string, maxLines int) []CodeChunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	chunks := make([]CodeChunk, 0, (len(lines)+maxLines-1)/maxLines)
	for start := 0; start < len(lines); start += maxLines {
		end := min(start+maxLines, len(lines))
		chunks = append(chunks, CodeChunk{
			ID:        fmt.Sprintf("%s:%d", path, len(chunks)),
			Path:      path,
			Content:   strings.Join(lines[start:end], "\n"),
			StartLine: start + 1,
		})
	}
	return chunks
}
