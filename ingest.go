package docindex

import "context"

// SupportedExtensions lists the file types ingestion reads.
var SupportedExtensions = []string{".md", ".txt", ".ipynb", ".toml", ".csv", ".json"}

// IngestOptions controls a single ingestion run.
type IngestOptions struct {
	Force  bool `json:"force"`
	DryRun bool `json:"dryRun"`
	Embed  bool `json:"embed"`
}

// IngestOutcome records what happened to a single file.
type IngestOutcome struct {
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	Chunks  int     `json:"chunks"`
	Detail  string  `json:"detail,omitempty"`
}

// DiffReport classifies files under a root against the stored documents.
// Every list is sorted.
type DiffReport struct {
	New       []string `json:"new"`
	Modified  []string `json:"modified"`
	Deleted   []string `json:"deleted"`
	Unchanged []string `json:"unchanged"`
}

// IngestService loads local files into a backend.
type IngestService interface {
	// Ingest indexes every supported file under root. Per-file problems are
	// reported as outcomes; a missing root returns ENOTFOUND.
	Ingest(ctx context.Context, root string, opts IngestOptions) ([]*IngestOutcome, error)

	// Diff compares the files under root with the stored documents.
	Diff(ctx context.Context, root string) (*DiffReport, error)
}
