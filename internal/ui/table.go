package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/g5becks/blockparse/internal/document"
)

// FileSummary is one row of the parse summary.
type FileSummary struct {
	Path     string `json:"path"`
	Blocks   int    `json:"blocks"`
	Lines    int    `json:"lines"`
	Warnings int    `json:"warnings"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// RenderParseSummary prints one row per parsed file, as a table or as
// JSON.
func RenderParseSummary(w io.Writer, files []FileSummary, jsonOut bool) error {
	if jsonOut {
		return renderJSON(w, files)
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)
	writer.AppendHeader(table.Row{"FILE", "BLOCKS", "LINES", "WARNINGS", "STATUS"})

	for _, file := range files {
		writer.AppendRow(table.Row{
			file.Path,
			file.Blocks,
			file.Lines,
			file.Warnings,
			file.Status,
		})
	}

	writer.Render()

	return nil
}

// RenderBlockList prints the blocks of one document with their
// metadata.
func RenderBlockList(w io.Writer, doc *document.Document, jsonOut bool) error {
	if jsonOut {
		return renderJSON(w, blockRows(doc))
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)
	writer.AppendHeader(table.Row{"BLOCK", "METADATA", "CONTENT LINES", "STATUS"})

	for _, row := range blockRows(doc) {
		writer.AppendRow(table.Row{
			row.ID,
			strings.Join(row.Meta, ", "),
			row.ContentLines,
			row.Status,
		})
	}

	writer.Render()

	return nil
}

// BlockRow is one row of the block listing.
type BlockRow struct {
	ID           string   `json:"id"`
	Meta         []string `json:"meta,omitempty"`
	ContentLines int      `json:"content_lines"`
	Status       string   `json:"status"`
}

func blockRows(doc *document.Document) []BlockRow {
	rows := make([]BlockRow, 0, len(doc.Blocks))

	for _, block := range doc.Blocks {
		meta := make([]string, 0, len(block.Meta))
		for key, value := range block.Meta {
			meta = append(meta, key+"="+value)
		}

		slices.Sort(meta)

		status := "ok"
		if block.HadError {
			status = "error"
		}

		rows = append(rows, BlockRow{
			ID:           block.ID,
			Meta:         meta,
			ContentLines: len(block.Lines),
			Status:       status,
		})
	}

	return rows
}

func renderJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}

	return nil
}
