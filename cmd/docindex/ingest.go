package main

import (
	"fmt"

	"github.com/fwojciec/docindex"
)

// Run executes the ingest command.
func (c *IngestCmd) Run(deps *Dependencies) error {
	if c.Embed && deps.Embedder == nil {
		fmt.Fprintln(deps.Stderr, "error: --embed requires an embedding provider. Set embed.provider in the config file.")
		return docindex.Errorf(docindex.ECONFIG, "no embedding provider configured")
	}

	outcomes, err := deps.Ingester.Ingest(deps.Ctx, c.Path, docindex.IngestOptions{
		Force:  c.Force,
		DryRun: c.DryRun,
		Embed:  c.Embed,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	counts := make(map[docindex.Outcome]int)
	var chunks int
	for _, o := range outcomes {
		counts[o.Outcome]++
		chunks += o.Chunks
		if o.Outcome == docindex.OutcomeUnchanged {
			continue
		}
		line := fmt.Sprintf("%-9s %s", o.Outcome, o.Path)
		if o.Chunks > 0 {
			line += fmt.Sprintf(" (%d chunks)", o.Chunks)
		}
		if o.Detail != "" {
			line += ": " + o.Detail
		}
		fmt.Fprintln(deps.Stdout, line)
	}

	fmt.Fprintf(deps.Stdout, "%d files: %d ingested, %d unchanged, %d skipped, %d errors, %d chunks\n",
		len(outcomes),
		counts[docindex.OutcomeIngested]+counts[docindex.OutcomeDryRun],
		counts[docindex.OutcomeUnchanged],
		counts[docindex.OutcomeSkipped],
		counts[docindex.OutcomeError],
		chunks,
	)
	return nil
}

// Run executes the diff command.
func (c *DiffCmd) Run(deps *Dependencies) error {
	report, err := deps.Ingester.Diff(deps.Ctx, c.Path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	for _, group := range []struct {
		mark  string
		paths []string
	}{
		{"+", report.New},
		{"~", report.Modified},
		{"-", report.Deleted},
	} {
		for _, p := range group.paths {
			fmt.Fprintf(deps.Stdout, "%s %s\n", group.mark, p)
		}
	}
	fmt.Fprintf(deps.Stdout, "%d new, %d modified, %d deleted, %d unchanged\n",
		len(report.New), len(report.Modified), len(report.Deleted), len(report.Unchanged))
	return nil
}
