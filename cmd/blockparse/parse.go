package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/blockparse/internal/config"
	"github.com/g5becks/blockparse/internal/ui"
)

func newParseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse input files and print a summary",
		ArgsUsage: "[file-or-glob...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON output"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress per-line diagnostics"},
		},
		Action: parseAction,
	}
}

func parseAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	paths, err := resolveInputs(cmd, cfg)
	if err != nil {
		return err
	}

	var printer *ui.DiagnosticPrinter
	if !cmd.Bool("quiet") {
		printer = ui.NewDiagnosticPrinter()
	}

	results := parseAll(ctx, cfg, paths, printer)
	summaries, failed := summarize(paths, results)

	if err := ui.RenderParseSummary(os.Stdout, summaries, cmd.Bool("json")); err != nil {
		return err
	}

	if failed > 0 {
		return oops.
			Code("PARSE_FAILED").
			With("failed_files", failed).
			Errorf("%d file(s) had parse errors", failed)
	}

	return nil
}
