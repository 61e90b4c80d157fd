package presenter

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Render writes a plain-text rendition of the display to w.
func (p *Presenter) Render(w io.Writer) error {
	return RenderText(w, p.State())
}

// RenderText writes s as a block of aligned lines.
func RenderText(w io.Writer, s DisplayState) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "== %s ==\n", s.Title)
	if !s.Ready {
		fmt.Fprintln(tw, "Waiting for the first weather report...")
	} else {
		fmt.Fprintln(tw, s.Header)
		if s.IconURL != "" {
			fmt.Fprintf(tw, "Icon:\t%s\n", s.IconURL)
		}
		for _, r := range s.Rows {
			fmt.Fprintf(tw, "%s:\t%s\n", r.Label, r.Value)
		}
		fmt.Fprintf(tw, "Currently:\t%s\n", s.Currently)
	}
	fmt.Fprintln(tw, s.Clock)
	if s.LastError != "" {
		label := "Error"
		if s.Stale {
			label = "Stale"
		}
		fmt.Fprintf(tw, "%s (%s):\t%s\n", label, s.ErrorKind, s.LastError)
	}
	return tw.Flush()
}
