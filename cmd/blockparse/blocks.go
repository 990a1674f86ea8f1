package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"
	"resty.dev/v3"

	"github.com/g5becks/blockparse/internal/config"
	"github.com/g5becks/blockparse/internal/textparse"
	"github.com/g5becks/blockparse/internal/ui"
)

func newBlocksCommand() *cli.Command {
	return &cli.Command{
		Name:      "blocks",
		Usage:     "List the blocks of a single input file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON output"},
		},
		Action: blocksAction,
	}
}

func blocksAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: blockparse blocks <file>").
			Errorf("expected exactly one file argument, got %d", cmd.Args().Len())
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	path := cmd.Args().First()
	printer := ui.NewDiagnosticPrinter()

	outcome := parseFile(cfg.ToRules(), textparse.NewBufferPool(1), resty.New(), path, printer)
	if outcome.err != nil {
		return outcome.err
	}

	return ui.RenderBlockList(os.Stdout, outcome.doc, cmd.Bool("json"))
}
