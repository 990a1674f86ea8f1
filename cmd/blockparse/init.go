package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/samber/oops"
	"github.com/urfave/cli/v3"
)

const starterConfig = `# blockparse configuration

# Files or globs parsed when no arguments are given.
inputs = ["**/*.blk"]

# Maximum number of files parsed concurrently (0 = default).
max_parallel = 0

[rules]
block_id = "::"
block_meta = "@"
block_end = "==="
package_meta = "#"
comment = "//"
delimiters = ":= \t"
require_end = false

# How package metadata inside a block is handled:
#   "disallow" - report an error
#   "allow"    - evaluate without touching the block
#   "close"    - complete the block first
package_meta_mode = "allow"
`

func newInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a starter blockparse.toml in the current directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: initAction,
	}
}

func initAction(_ context.Context, cmd *cli.Command) error {
	const path = "blockparse.toml"

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return oops.
			Code("CONFIG_EXISTS").
			With("path", path).
			Hint("Use --force to overwrite").
			Errorf("%s already exists", path)
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return oops.
			Code("CONFIG_WRITE_FAILED").
			With("path", path).
			Wrapf(err, "failed to write %s", path)
	}

	color.New(color.FgGreen).Printf("✓ wrote %s\n", path)

	return nil
}
