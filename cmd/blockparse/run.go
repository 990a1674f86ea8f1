package main

import (
	"context"
	"path/filepath"
	"slices"
	stdsync "sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/oops"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"

	"github.com/g5becks/blockparse/internal/config"
	"github.com/g5becks/blockparse/internal/document"
	"github.com/g5becks/blockparse/internal/textparse"
	"github.com/g5becks/blockparse/internal/textsource"
	"github.com/g5becks/blockparse/internal/ui"
)

type parseOutcome struct {
	doc      *document.Document
	warnings int
	err      error
}

// expandInputs resolves each argument as a doublestar glob, falling
// back to a literal path when the pattern has no metacharacters.
func expandInputs(patterns []string) ([]string, error) {
	var paths []string

	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			paths = append(paths, pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, oops.
				Code("INVALID_PATTERN").
				With("pattern", pattern).
				Hint("Use doublestar glob syntax, e.g. 'scripts/**/*.blk'").
				Wrapf(err, "expanding input pattern %q", pattern)
		}

		paths = append(paths, matches...)
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)

	if len(paths) == 0 {
		return nil, oops.
			Code("NO_INPUTS").
			Hint("Pass input files or set inputs in blockparse.toml").
			Errorf("no input files matched")
	}

	return paths, nil
}

func hasGlobMeta(pattern string) bool {
	for _, ch := range pattern {
		switch ch {
		case '*', '?', '[', '{':
			return true
		}
	}

	return false
}

// parseAll parses every path, at most maxParallel at a time. Each
// parse is single-threaded; the workers only share the buffer pool,
// which serializes lease and return itself.
func parseAll(
	ctx context.Context,
	cfg *config.Config,
	paths []string,
	printer *ui.DiagnosticPrinter,
) map[string]parseOutcome {
	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = config.DefaultMaxParallel
	}

	pool := textparse.NewBufferPool(maxParallel)
	client := resty.New()
	rules := cfg.ToRules()

	results := make(map[string]parseOutcome, len(paths))
	var resultsMu stdsync.Mutex

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(maxParallel)

	for _, path := range paths {
		group.Go(func() error {
			outcome := parseFile(rules, pool, client, path, printer)

			if outcome.err != nil && printer != nil {
				printer.PrintFatal(path, outcome.err)
			}

			resultsMu.Lock()
			results[path] = outcome
			resultsMu.Unlock()

			return nil
		})
	}

	// Workers never return errors; failures land in their outcome.
	_ = group.Wait()

	return results
}

func parseFile(
	rules textparse.Rules,
	pool *textparse.BufferPool,
	client *resty.Client,
	path string,
	printer *ui.DiagnosticPrinter,
) parseOutcome {
	builder := document.NewBuilder(document.Options{
		Rules:   rules,
		BaseDir: filepath.Dir(path),
		HTTP:    client,
	})

	outcome := parseOutcome{}

	diagnostic := func(pos textparse.Position, msg string) {
		outcome.warnings++

		if printer != nil {
			printer.Handle(pos, msg)
		}
	}

	parser := textparse.New(path, textsource.NewFile(path), builder, textparse.Options[*document.Document, *document.Block]{
		Rules:      rules,
		Commands:   builder.Commands(),
		Pool:       pool,
		Diagnostic: diagnostic,
	})
	builder.Bind(parser)

	if err := parser.Run(); err != nil {
		outcome.err = err
		return outcome
	}

	outcome.doc = parser.Package()

	return outcome
}

func summarize(paths []string, results map[string]parseOutcome) ([]ui.FileSummary, int) {
	summaries := make([]ui.FileSummary, 0, len(paths))
	failed := 0

	for _, path := range paths {
		outcome := results[path]

		summary := ui.FileSummary{
			Path:     path,
			Warnings: outcome.warnings,
			Status:   "ok",
		}

		switch {
		case outcome.err != nil:
			failed++
			summary.Status = "failed"
			summary.Error = outcome.err.Error()

		case outcome.doc != nil:
			summary.Blocks = len(outcome.doc.Blocks)
			summary.Lines = outcome.doc.Lines

			if outcome.doc.HadError {
				failed++
				summary.Status = "errors"
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, failed
}

func resolveInputs(cmd *cli.Command, cfg *config.Config) ([]string, error) {
	patterns := cmd.Args().Slice()
	if len(patterns) == 0 {
		patterns = cfg.Inputs
	}

	return expandInputs(patterns)
}
