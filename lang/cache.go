package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/raumaankidwai/nim/log"
)

// globalCache stores compiled documents keyed by the hash of
// (fileID, source).
var globalCache sync.Map

// state tracks one compilation shared by all renders of the same input.
type state struct {
	once   sync.Once
	doc    *Document
	err    error
	source string
	fileID string
}

func cacheKey(source, fileID string) xxh3.Uint128 {
	h := xxh3.New()

	_, _ = h.WriteString(fileID)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(source)

	return h.Sum128()
}

// compileCached compiles source once per distinct (fileID, source) pair.
func compileCached(
	ctx context.Context,
	source, fileID string,
	logger log.Logger,
) (*Document, error) {
	key := cacheKey(source, fileID)

	value, cacheHit := globalCache.LoadOrStore(key,
		&state{source: source, fileID: fileID})

	entry, ok := value.(*state)
	if !ok || entry.source != source || entry.fileID != fileID {
		logger.TraceContext(ctx, "cache bypass",
			slog.String("file", fileID),
			slog.Bool("collision", ok))

		return Compile(source, fileID)
	}

	logger.TraceContext(ctx, "cache lookup",
		slog.String("file", fileID),
		slog.String("key", strconv.FormatUint(key.Hi, 16)+
			strconv.FormatUint(key.Lo, 16)),
		slog.Bool("cache_hit", cacheHit))

	entry.once.Do(func() {
		entry.doc, entry.err = Compile(source, fileID)
	})

	return entry.doc, entry.err
}

// ClearCache removes all compiled documents.
// This is primarily useful for testing or when memory needs to be reclaimed.
func ClearCache() {
	globalCache.Clear()
}

// RenderReader reads a document from r and renders it.
func (e *Engine) RenderReader(
	ctx context.Context,
	r io.Reader,
	fileID string,
) (string, error) {
	// Wrap reader with async read-ahead for concurrent I/O.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrReadInput.Wrap(err).In(fileID)
	}

	e.logger.TraceContext(ctx, "read input",
		slog.String("file", fileID),
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true))

	return e.Render(ctx, string(data), fileID)
}
