// Package ingest indexes local documentation files.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/yaml"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of files processed at once.
const DefaultConcurrency = 4

var _ docindex.IngestService = (*Ingester)(nil)

// Ingester loads files from disk into a DocumentService.
type Ingester struct {
	Documents docindex.DocumentService
	Embedder  docindex.Embedder

	// Maximum chunk size passed to the chunker.
	ChunkSize int

	Concurrency int
	Logger      *slog.Logger
}

// file is a supported file found under the ingest root.
type file struct {
	abs string
	rel string // slash-separated, relative to the ingest base
}

// Ingest indexes every supported file under root and returns one outcome
// per file in path order. A root that is a single file is ingested on its
// own with its name as the path.
func (in *Ingester) Ingest(ctx context.Context, root string, opts docindex.IngestOptions) ([]*docindex.IngestOutcome, error) {
	files, err := scan(root)
	if err != nil {
		return nil, err
	}

	logger := in.logger().With("run", uuid.NewString())
	logger.Info("ingest started", "root", root, "files", len(files), "dryRun", opts.DryRun)

	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	outcomes := make([]*docindex.IngestOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = in.ingestFile(gctx, f, opts)
			logger.Debug("ingested file", "path", f.rel, "outcome", outcomes[i].Outcome, "chunks", outcomes[i].Chunks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return compact(outcomes), err
	}
	if err := ctx.Err(); err != nil {
		return compact(outcomes), err
	}
	return outcomes, nil
}

// compact drops the slots of files that were never processed.
func compact(outcomes []*docindex.IngestOutcome) []*docindex.IngestOutcome {
	out := outcomes[:0:0]
	for _, o := range outcomes {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (in *Ingester) ingestFile(ctx context.Context, f file, opts docindex.IngestOptions) *docindex.IngestOutcome {
	out := &docindex.IngestOutcome{Path: f.rel}

	raw, err := os.ReadFile(f.abs)
	if err != nil {
		out.Outcome, out.Detail = docindex.OutcomeError, err.Error()
		return out
	}
	text := strings.ToValidUTF8(string(raw), "�")
	if len(strings.TrimSpace(text)) < docindex.MinContentLength {
		out.Outcome, out.Detail = docindex.OutcomeSkipped, "content too short"
		return out
	}

	hash := contentHash(text)
	if !opts.Force && !opts.DryRun {
		if doc, err := in.Documents.FindDocument(ctx, f.rel); err == nil && doc.ContentHash == hash {
			out.Outcome, out.Chunks = docindex.OutcomeUnchanged, doc.ChunkCount
			return out
		}
	}

	fm, body, err := yaml.ParseFrontMatter(Convert(text, f.rel))
	if err != nil {
		out.Outcome, out.Detail = docindex.OutcomeError, docindex.ErrorMessage(err)
		return out
	}

	doc := &docindex.Document{
		Path:        f.rel,
		Title:       firstNonEmpty(docindex.ExtractTitle(body), fm.Title, stem(f.rel)),
		Category:    firstNonEmpty(fm.Category, parentDir(f.rel), docindex.DefaultCategory),
		Audience:    firstNonEmpty(fm.Audience, docindex.DefaultAudience),
		Tags:        fm.Tags,
		ContentHash: hash,
		Links:       fm.Links(f.rel),
	}
	chunks := docindex.NewChunks(f.rel, docindex.SplitMarkdown(body, doc.Title, in.ChunkSize))
	out.Chunks = len(chunks)

	if opts.DryRun {
		out.Outcome = docindex.OutcomeDryRun
		return out
	}

	if opts.Embed && in.Embedder != nil {
		if err := embedChunks(ctx, in.Embedder, chunks); err != nil {
			in.logger().Warn("embed chunks, leaving them pending", "path", f.rel, "err", err)
		}
	}

	if err := in.Documents.UpsertDocument(ctx, doc, chunks); err != nil {
		out.Outcome, out.Detail = docindex.OutcomeError, docindex.ErrorMessage(err)
		return out
	}
	out.Outcome = docindex.OutcomeIngested
	return out
}

// Diff classifies the files under root against the stored documents. Only
// stored local documents can be reported as deleted; crawled pages, whose
// paths are URLs, are never compared with the file system.
func (in *Ingester) Diff(ctx context.Context, root string) (*docindex.DiffReport, error) {
	files, err := scan(root)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]*docindex.Document)
	const page = 500
	for offset := 0; ; offset += page {
		docs, err := in.Documents.FindDocuments(ctx, docindex.DocumentFilter{Offset: offset, Limit: page})
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if !strings.Contains(d.Path, "://") {
				stored[d.Path] = d
			}
		}
		if len(docs) < page {
			break
		}
	}

	report := &docindex.DiffReport{New: []string{}, Modified: []string{}, Deleted: []string{}, Unchanged: []string{}}
	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		onDisk[f.rel] = true
		doc, ok := stored[f.rel]
		if !ok {
			report.New = append(report.New, f.rel)
			continue
		}
		raw, err := os.ReadFile(f.abs)
		if err != nil {
			return nil, docindex.Errorf(docindex.EINTERNAL, "read %s: %v", f.rel, err)
		}
		if contentHash(strings.ToValidUTF8(string(raw), "�")) == doc.ContentHash {
			report.Unchanged = append(report.Unchanged, f.rel)
		} else {
			report.Modified = append(report.Modified, f.rel)
		}
	}
	for p := range stored {
		if !onDisk[p] {
			report.Deleted = append(report.Deleted, p)
		}
	}
	sortAll(report)
	return report, nil
}

// scan returns the supported files under root sorted by relative path.
// Hidden directories are not descended into.
func scan(root string) ([]file, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid path %q: %v", root, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "path %q does not exist", root)
	} else if err != nil {
		return nil, docindex.Errorf(docindex.EINTERNAL, "stat %q: %v", root, err)
	}

	if !info.IsDir() {
		if !supported(abs) {
			return nil, docindex.Errorf(docindex.EINVALID, "unsupported file type %q", filepath.Ext(abs))
		}
		return []file{{abs: abs, rel: filepath.Base(abs)}}, nil
	}

	var files []file
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !supported(p) {
			return nil
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		files = append(files, file{abs: p, rel: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, docindex.Errorf(docindex.EINTERNAL, "scan %q: %v", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range docindex.SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func contentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// embedChunks stores an embedding on every chunk or leaves all unset.
func embedChunks(ctx context.Context, e docindex.Embedder, chunks []*docindex.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.EmbeddingText()
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(chunks) {
		return docindex.Errorf(docindex.EINTERNAL, "embedder returned %d vectors for %d texts", len(vecs), len(chunks))
	}
	for i, ch := range chunks {
		ch.Embedding = vecs[i]
	}
	return nil
}

func (in *Ingester) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return in.Logger
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// stem returns the file name without directory or extension.
func stem(rel string) string {
	base := filepath.Base(filepath.FromSlash(rel))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parentDir returns the name of the file's directory, or "" for files at
// the ingest root.
func parentDir(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return path.Base(dir)
}

func sortAll(r *docindex.DiffReport) {
	for _, list := range [][]string{r.New, r.Modified, r.Deleted, r.Unchanged} {
		sort.Strings(list)
	}
}
