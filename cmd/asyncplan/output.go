// Copyright 2026 Oliver Eikemeier. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"fillmore-labs.com/asyncplan/internal/graph"
)

// printDecisions writes one row per function node. Terminals get a styled
// table, everything else tab-separated columns.
func printDecisions(w io.Writer, g *graph.Graph) error {
	rows := decisionRows(g)

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil {
			width = 0
		}

		_, err = fmt.Fprintln(w, decisionTable(lipgloss.NewRenderer(w), rows, width))

		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r[0], r[1], r[2])
	}

	return tw.Flush()
}

func decisionRows(g *graph.Graph) [][]string {
	rows := make([][]string, 0, len(g.Functions()))

	for _, n := range g.Functions() {
		note := n.IgnoreReason
		if n.State == graph.Async && n.CancellationRequired {
			note = "cancellation " + n.Cancellation.String()
		}

		rows = append(rows, []string{n.State.String(), string(n.Key), note})
	}

	return rows
}

func decisionTable(r *lipgloss.Renderer, rows [][]string, width int) *table.Table {
	var (
		header = r.NewStyle().Bold(true).Padding(0, 1)
		cell   = r.NewStyle().Padding(0, 1)
		states = map[string]lipgloss.Style{
			graph.Async.String():  cell.Foreground(lipgloss.Color("#98FB98")),
			graph.Ignore.String(): cell.Foreground(lipgloss.Color("#666666")),
			graph.Copy.String():   cell.Foreground(lipgloss.Color("#87CEEB")),
		}
	)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("#7D56F4"))).
		Headers("STATE", "DECLARATION", "NOTE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header

			case col == 0:
				if s, ok := states[rows[row][0]]; ok {
					return s
				}
			}

			return cell
		})

	if width > 0 {
		t = t.Width(width)
	}

	return t
}
