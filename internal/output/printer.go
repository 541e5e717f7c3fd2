package output

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// ConsolePrinter writes results to a terminal as a table.
type ConsolePrinter struct {
	out io.Writer
}

// NewConsolePrinter prints to w, or stdout when w is nil.
func NewConsolePrinter(w io.Writer) *ConsolePrinter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsolePrinter{out: w}
}

func (cp *ConsolePrinter) WriteResult(_ context.Context, res model.ScanResult) error {
	if res.TotalFound() == 0 {
		fmt.Fprintln(cp.out, "No airdrops found.")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(cp.out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Source", "Name", "Status", "Value", "Link"})
		for i, a := range res.Airdrops {
			t.AppendRow(table.Row{i + 1, a.Source, a.Name, orNA(a.Status), orNA(a.Value), a.Link})
		}
		t.Render()
	}

	for _, s := range res.Failed() {
		fmt.Fprintf(cp.out, "skipped %s (%s): %s\n", s.Source, s.Status, s.Error)
	}
	_, err := fmt.Fprintf(cp.out, "Total: %s found.\n", plural(res.TotalFound(), "airdrop"))
	return err
}

func (cp *ConsolePrinter) WriteText(_ context.Context, text string) error {
	_, err := fmt.Fprintln(cp.out, text)
	return err
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
