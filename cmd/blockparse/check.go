package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/blockparse/internal/config"
	"github.com/g5becks/blockparse/internal/ui"
)

func newCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Parse inputs and report diagnostics without producing output",
		ArgsUsage: "[file-or-glob...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
		},
		Action: checkAction,
	}
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	paths, err := resolveInputs(cmd, cfg)
	if err != nil {
		return err
	}

	printer := ui.NewDiagnosticPrinter()
	results := parseAll(ctx, cfg, paths, printer)
	_, failed := summarize(paths, results)

	if failed > 0 {
		return oops.
			Code("CHECK_FAILED").
			With("failed_files", failed).
			With("total_files", len(paths)).
			Errorf("%d of %d file(s) failed", failed, len(paths))
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ %d file(s) ok", len(paths))
	if printer.Count() > 0 {
		color.New(color.FgYellow).Printf(" (%d warning(s))", printer.Count())
	}
	green.Println()

	return nil
}
